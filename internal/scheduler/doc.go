// Package scheduler provides the worker pool that executes tiles.
//
// # How It Works
//
// A WorkScheduler owns a set of devices. Each device is driven by one
// goroutine that pulls tasks from the queue of its capability class (CPU or
// GPU). Callers hand in tasks that are already known to be runnable; the
// scheduler never looks at dependencies. When a task finishes, its Complete
// method is called on the worker goroutine, which is where the caller
// releases dependent work.
//
// # Lifecycle
//
//  1. Init creates the CPU devices and registers extra devices. This is
//     process scope and happens once.
//  2. Start launches one goroutine per device. Start and Stop bracket exactly
//     one evaluation; a second Start before Stop fails with ErrAlreadyStarted.
//  3. Schedule or Submit enqueue tasks. Finish blocks until every enqueued
//     task has completed.
//  4. Stop drains the queues and joins the workers.
//  5. Shutdown releases the devices.
//
// # Device Routing
//
// A task whose Capability is GPU goes to the GPU queue only when the current
// run was started with UseGPU and at least one GPU device is registered.
// Otherwise it runs on a CPU device.
package scheduler
