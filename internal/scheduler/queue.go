package scheduler

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO of tasks shared by the workers of one device
// class.
type queue struct {
	mu     sync.Mutex
	items  []Task
	closed bool
	// signal wakes one idle worker; it is closed together with the queue.
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

// push appends t. It returns false when the queue is closed.
func (q *queue) push(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, t)
	q.wake()
	return true
}

// pop blocks until a task is available. It returns false once the queue is
// closed and empty, or when ctx is done.
func (q *queue) pop(ctx context.Context) (Task, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.wake()
			}
			q.mu.Unlock()
			return t, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// wake must be called with mu held.
func (q *queue) wake() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// close stops accepting tasks. Queued tasks can still be popped.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// drain closes the queue and returns whatever is still queued.
func (q *queue) drain() []Task {
	q.close()

	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
