package workpackage

import "fmt"

// State is the lifecycle position of a WorkPackage.
type State int32

const (
	NotScheduled State = iota
	Scheduled
	Executed
)

func (s State) String() string {
	switch s {
	case NotScheduled:
		return "not_scheduled"
	case Scheduled:
		return "scheduled"
	case Executed:
		return "executed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Priority is the coarse scheduling tier of a package or group. Tiers run
// one after another, blocking in between.
type Priority int32

const (
	Unset Priority = iota
	Low
	Medium
	High
)

// Tiers lists the priorities in execution order.
var Tiers = []Priority{High, Medium, Low}

func (p Priority) String() string {
	switch p {
	case Unset:
		return "unset"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int32(p))
	}
}
