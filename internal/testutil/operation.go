package testutil

import (
	"context"
	"sync"

	"github.com/vk/gridcomp/internal/operation"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/workpackage"
)

// RecordingOutput is an output operation that records every region it is
// asked to execute. Err, when set, is returned for every region.
type RecordingOutput struct {
	operation.Base
	Priority workpackage.Priority
	Err      error

	mu      sync.Mutex
	regions []rect.Rect
}

// NewRecordingOutput creates a recording output reading from input.
func NewRecordingOutput(id int, name string, input operation.Operation) *RecordingOutput {
	o := &RecordingOutput{
		Base:     operation.NewBase(id, name, operation.FlagOutput, 1),
		Priority: workpackage.High,
	}
	o.SetInput(0, input)
	return o
}

func (o *RecordingOutput) ReadPixel(_, _ int, out []float32) {
	clear(out)
}

func (o *RecordingOutput) RenderPriority() workpackage.Priority {
	return o.Priority
}

func (o *RecordingOutput) ExecuteRegion(ctx context.Context, r rect.Rect) error {
	o.mu.Lock()
	o.regions = append(o.regions, r)
	o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	return ctx.Err()
}

// Regions returns the executed regions in execution order.
func (o *RecordingOutput) Regions() []rect.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]rect.Rect(nil), o.regions...)
}
