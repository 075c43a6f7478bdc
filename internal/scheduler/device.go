package scheduler

import (
	"context"
	"fmt"
)

// Capability is the device class a task prefers or a device provides.
type Capability int

const (
	CPU Capability = iota
	GPU
)

func (c Capability) String() string {
	switch c {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Task is one unit of work.
type Task interface {
	// Capability reports the device class the task would like to run on.
	Capability() Capability
	// Execute does the work.
	Execute(ctx context.Context) error
	// Complete is called exactly once with the result of Execute, or with
	// the reason the task was not executed.
	Complete(err error)
}

// Device executes tasks. Each device is driven by a single goroutine.
type Device interface {
	Capability() Capability
	Execute(ctx context.Context, task Task) error
}

// CPUDevice runs tasks on the calling goroutine.
type CPUDevice struct {
	ID int
}

// Capability implements Device.
func (d *CPUDevice) Capability() Capability {
	return CPU
}

// Execute implements Device.
func (d *CPUDevice) Execute(ctx context.Context, task Task) error {
	return task.Execute(ctx)
}
