package reactor

import (
	"runtime"
	"sync/atomic"
)

// taskNode is a single element of the task queue
type taskNode struct {
	fn   func()
	next atomic.Pointer[taskNode]
}

// taskQueue is a lock-free multi-producer single-consumer queue of loop
// tasks, backed by a linked list with atomic appends. Any goroutine may
// push concurrently; the loop goroutine is the only consumer, draining
// between poll turns, so consumption needs no synchronization beyond the
// atomic links. Tasks pushed by the same goroutine run in push order.
type taskQueue struct {
	head atomic.Pointer[taskNode] // consumer side, always points at a sentinel
	tail atomic.Pointer[taskNode]
}

func newTaskQueue() *taskQueue {
	sentinel := &taskNode{}
	q := &taskQueue{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// push appends fn to the queue. Thread-safe, wait-free for the common
// uncontended case.
func (q *taskQueue) push(fn func()) {
	n := &taskNode{fn: fn}

	var backoff uint8
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				// CAS may fail when another producer helps update the tail,
				// which is fine: the tail still converges
				q.tail.CompareAndSwap(tail, n)
				return
			}
		} else {
			// another producer appended but has not published the tail yet;
			// help it along
			q.tail.CompareAndSwap(tail, next)
		}

		// exponential backoff under contention: spin a little first, back
		// off harder the longer the CAS keeps losing
		if backoff < 10 {
			backoff++
		}
		for i := 0; i < 1<<backoff; i++ {
			runtime.Gosched()
		}
	}
}

// pop removes and returns the oldest task. Consumer goroutine only.
func (q *taskQueue) pop() (func(), bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil, false
	}

	fn := next.fn
	next.fn = nil // the popped node becomes the new sentinel
	q.head.Store(next)
	return fn, true
}
