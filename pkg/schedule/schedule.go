// Package schedule provides a deadline-ordered task runner. It is used to
// pace multi-message reply sequences onto the mesh without holding a
// goroutine per pending send.
package schedule

import (
	"context"
	"sync"
	"time"
)

type Task func()

type entry struct {
	task Task
	due  time.Time
	next *entry
}

// Runner executes posted tasks on a single goroutine once their deadline has
// passed. Tasks with expired deadlines run in posting order.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	wake chan struct{}

	mutex sync.Mutex
	head  *entry
	tail  *entry
}

func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
}

// Run processes tasks until Stop is called. It is meant to be run on its own
// goroutine.
func (r *Runner) Run() {
	var sleepDuration time.Duration = 0

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
			sleepDuration = r.process()
		case <-time.After(sleepDuration):
			sleepDuration = r.process()
		}
	}
}

// process drains the queue, runs every expired task and returns how long the
// runner may sleep before the next deadline.
func (r *Runner) process() time.Duration {
	r.mutex.Lock()
	pending := r.head
	r.head = nil
	r.tail = nil
	r.mutex.Unlock()

	var sleepDuration time.Duration = -1

	for pending != nil {
		next := pending.next

		if time.Since(pending.due) >= 0 {
			pending.task()

			// A task may post follow-up work, do not oversleep it
			sleepDuration = 0
		} else {
			remaining := time.Until(pending.due)
			if sleepDuration < 0 || remaining < sleepDuration {
				sleepDuration = remaining
			}

			pending.next = nil
			r.enqueue(pending)
		}

		pending = next
	}

	if sleepDuration < 0 {
		// Nothing pending
		sleepDuration = 100 * time.Millisecond
	}

	return sleepDuration
}

func (r *Runner) enqueue(e *entry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.head == nil {
		r.head = e
		r.tail = e
	} else {
		r.tail.next = e
		r.tail = e
	}
}

func (r *Runner) wakeUp() {
	select {
	case r.wake <- struct{}{}:
	default:
		// Already woken up
	}
}

// Stop terminates the runner. Pending tasks are discarded.
func (r *Runner) Stop() {
	r.cancel()
}

// Now schedules a task for immediate execution.
func (r *Runner) Now(task Task) {
	r.At(task, time.Now())
}

// At schedules a task to run once the given time has passed.
func (r *Runner) At(task Task, due time.Time) {
	r.enqueue(&entry{
		task: task,
		due:  due,
	})
	r.wakeUp()
}
