package executor

import (
	"time"

	"github.com/vk/gridcomp/internal/workpackage"
)

// Stats summarizes the last evaluation.
type Stats struct {
	Groups   int
	Packages int
	Executed int
	// Tiers lists the priority tiers in the order they were executed.
	Tiers         []workpackage.Priority
	TierDurations map[workpackage.Priority]time.Duration
	Duration      time.Duration
}
