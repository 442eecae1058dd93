// Package pool provides a fixed-size worker pool: long-lived goroutines
// pulling tasks from one FIFO queue, with a result handle per submission
// and a graceful, idempotent shutdown that drains the queue.
package pool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolStopped is returned by Submit once Shutdown has begun.
var ErrPoolStopped = errors.New("pool: submit on stopped pool")

// Task is the handle to one submitted unit of work. Its outcome becomes
// readable through Wait once the executing worker has finished.
type Task struct {
	fn    func() (any, error)
	value any
	err   error
	done  chan struct{}
}

// Wait blocks until the task has executed and returns its outcome. A panic
// inside the task surfaces here as an error.
func (t *Task) Wait() (any, error) {
	<-t.done
	return t.value, t.err
}

func (t *Task) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("pool: task panic: %v", r)
		}
	}()
	t.value, t.err = t.fn()
}

type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	stopped bool
	wg      sync.WaitGroup
}

// New starts a pool of the given size. A size of zero resolves to the
// host's available parallelism, falling back to 4 workers if that cannot
// be determined.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers == 0 {
			workers = 4
		}
	}

	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues fn for the first available worker and returns its result
// handle. Queue order is strict FIFO; there is no cancellation.
func (p *Pool) Submit(fn func() (any, error)) (*Task, error) {
	t := &Task{fn: fn, done: make(chan struct{})}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()

	p.cond.Signal()
	return t, nil
}

// Shutdown stops accepting work, wakes every idle worker and waits until
// all queued and in-flight tasks have run to completion. The first call
// does the draining; subsequent calls return immediately.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	already := p.stopped
	p.stopped = true
	p.mu.Unlock()

	p.cond.Broadcast()
	if already {
		return
	}
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			// Stopped and drained.
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		t.run()
	}
}
