package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameQueue is a bounded FIFO between the capture loop and its consumer.
// Push never blocks: when the queue is full the oldest frame is evicted.
type FrameQueue struct {
	mu     sync.Mutex
	ring   []Frame // fixed size; live frames are ring[head], ring[head+1], ... mod len
	head   int
	n      int
	closed bool
	notify chan struct{} // buffered(1); signalled on push
	done   chan struct{}
	drops  atomic.Uint64
}

// NewFrameQueue creates a queue holding at most capacity frames (minimum 1).
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{
		ring:   make([]Frame, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends f, evicting exactly one oldest frame if the queue is full.
// Pushing to a closed queue is ignored.
func (q *FrameQueue) Push(f Frame) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.n == len(q.ring) {
		q.take()
		q.drops.Add(1)
	}
	q.ring[(q.head+q.n)%len(q.ring)] = f
	q.n++
	q.mu.Unlock()
	q.signal()
}

// Pop returns the oldest frame, waiting up to timeout for one to arrive.
func (q *FrameQueue) Pop(timeout time.Duration) (Frame, error) {
	var timer *time.Timer
	for {
		q.mu.Lock()
		if q.n > 0 {
			f := q.take()
			more := q.n > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			if timer != nil {
				timer.Stop()
			}
			return f, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Frame{}, ErrQueueClosed
		}
		if timeout <= 0 {
			return Frame{}, ErrQueueTimeout
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.notify:
		case <-q.done:
		case <-timer.C:
			return Frame{}, ErrQueueTimeout
		}
	}
}

// take removes the oldest frame. The caller holds mu and ensures n > 0.
func (q *FrameQueue) take() Frame {
	f := q.ring[q.head]
	q.ring[q.head] = Frame{}
	q.head = (q.head + 1) % len(q.ring)
	q.n--
	return f
}

// Close wakes waiters; subsequent Pops on an empty queue return ErrQueueClosed.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *FrameQueue) Cap() int { return len(q.ring) }

// Drops returns how many frames were evicted to make room.
func (q *FrameQueue) Drops() uint64 { return q.drops.Load() }

func (q *FrameQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
