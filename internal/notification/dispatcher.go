package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of background delivery.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs tasks on a fixed pool of workers. Submit never blocks;
// a full queue drops the task.
type Dispatcher struct {
	tasks   chan Task
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{tasks: make(chan Task, queueSize), timeout: timeout}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification task panicked", "task", t.Name, "panic", r)
		}
	}()
	if err := t.Run(ctx); err != nil {
		slog.Warn("notification task failed", "task", t.Name, "error", err)
	}
}

// Submit queues t and reports whether it was accepted.
func (d *Dispatcher) Submit(t Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.tasks <- t:
		return true
	default:
		slog.Warn("notification queue full, dropping task", "task", t.Name)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones until ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
