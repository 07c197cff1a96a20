package network

import (
	"fmt"
	"log/slog"
	"sync"
)

// serialQueue runs submitted tasks one at a time in submission order. A
// worker goroutine is started when work arrives and exits when the queue
// drains, so an idle queue holds no goroutine. submit never blocks, which
// lets a running task submit more work.
type serialQueue struct {
	mu      sync.Mutex
	tasks   []func()
	running bool
	logger  *slog.Logger
}

func newSerialQueue(logger *slog.Logger) *serialQueue {
	return &serialQueue{logger: logger}
}

func (q *serialQueue) submit(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.drain()
}

func (q *serialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(task)
	}
}

// run executes one task, keeping the worker alive if it panics.
func (q *serialQueue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("request callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}
