package progress

import (
	"sync"
	"time"
)

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskDone
	taskCanceled
)

// Task is a unit of work scheduled to run once after a delay. It can be
// canceled until it starts.
type Task struct {
	mu    sync.Mutex
	state taskState
	timer *time.Timer
	run   func()
	done  chan struct{}
}

// Schedule runs fn after delay on its own goroutine.
func Schedule(delay time.Duration, fn func()) *Task {
	t := &Task{run: fn, done: make(chan struct{})}
	t.mu.Lock()
	t.timer = time.AfterFunc(delay, t.fire)
	t.mu.Unlock()
	return t
}

func (t *Task) fire() {
	if !t.start() {
		return
	}
	defer t.finish()
	t.run()
}

// start moves a pending task to running. It reports false when the task
// was canceled or already started.
func (t *Task) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskPending {
		return false
	}
	t.state = taskRunning
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

func (t *Task) finish() {
	t.mu.Lock()
	t.state = taskDone
	t.mu.Unlock()
	close(t.done)
}

// Cancel stops the task if it has not started. It reports whether the task
// was prevented from running.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskPending {
		return false
	}
	t.state = taskCanceled
	t.timer.Stop()
	close(t.done)
	return true
}

// RunNow starts the task immediately on the calling goroutine instead of
// waiting for the timer. It reports false if the task was no longer pending.
func (t *Task) RunNow() bool {
	if !t.start() {
		return false
	}
	defer t.finish()
	t.run()
	return true
}

// Pending reports whether the task is still waiting for its timer.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskPending
}

// Done is closed once the task has run or been canceled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
