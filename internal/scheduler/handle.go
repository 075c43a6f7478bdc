package scheduler

import "context"

// Handle is the pending result of a submitted task.
type Handle struct {
	done chan struct{}
	err  error
}

// Await blocks until the task completed or ctx is done.
func (h *Handle) Await(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the task completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type handleTask struct {
	Task
	handle *Handle
}

func (t *handleTask) Complete(err error) {
	t.Task.Complete(err)
	t.handle.err = err
	close(t.handle.done)
}
