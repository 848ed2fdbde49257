// Package queue implements the bounded multi-producer/multi-consumer task
// queue shared by all peer workers.
package queue

import "github.com/cmccoy/gopiece/task"

// Queue is a bounded FIFO of task.Task, safe for concurrent Push/Pop from
// many goroutines. Capacity equals the total piece count: every task is
// present at most once across (queue) ∪ (tasks held by workers), so a
// Push can never block.
type Queue struct {
	ch chan task.Task
}

// New creates a Queue with the given capacity (normally piece_count).
func New(capacity int) *Queue {
	return &Queue{ch: make(chan task.Task, capacity)}
}

// Push inserts t at the tail of the queue. Never blocks: capacity is
// sized so the queue can hold every task the system knows about at once.
func (q *Queue) Push(t task.Task) {
	q.ch <- t
}

// Pop removes and returns the task at the head of the queue. ok is false
// if the queue is empty (all tasks are currently held by other workers or
// verified), signalling the caller should exit.
func (q *Queue) Pop() (t task.Task, ok bool) {
	select {
	case t, ok = <-q.ch:
		return t, ok
	default:
		return task.Task{}, false
	}
}

// Close marks the queue as no longer accepting new work. The orchestrator
// never calls it (workers exit on Pop's empty signal instead); it exists
// for callers that want the closed-channel drain semantics.
func (q *Queue) Close() {
	close(q.ch)
}

// Len reports the number of tasks currently waiting in the queue.
func (q *Queue) Len() int {
	return len(q.ch)
}
