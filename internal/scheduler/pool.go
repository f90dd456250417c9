package scheduler

import (
	"log/slog"
	"sync"
)

// Pool is a fixed-size worker pool. Tasks are plain closures; a panicking
// task takes down its job, never its worker.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker task panicked", "panic", r)
		}
	}()
	task()
}

// Submit blocks while all workers are busy and the buffer is full, which
// naturally bounds how fast sweeps can claim work.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Close stops accepting work and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
