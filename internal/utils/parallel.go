package utils

import (
	"sync"

	"go.uber.org/zap"
)

// ParallelTask is a unit of work whose result is collected by RunParallelTasks
type ParallelTask func() (any, error)

// RunParallelTasks executes tasks concurrently and returns their results in
// order, together with the first error encountered.
func RunParallelTasks(tasks ...ParallelTask) ([]any, error) {
	var wg sync.WaitGroup
	results := make([]any, len(tasks))
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t ParallelTask) {
			defer wg.Done()
			results[index], errs[index] = t()
		}(i, task)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// WorkerPool runs background tasks on a fixed number of goroutines
type WorkerPool struct {
	taskChan chan func()
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(maxWorkers int, logger *zap.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool := &WorkerPool{
		taskChan: make(chan func(), maxWorkers*64),
		logger:   logger,
	}
	for i := 0; i < maxWorkers; i++ {
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	for task := range p.taskChan {
		p.run(task)
	}
}

// run executes one task; a panicking task is logged and does not take the worker down.
func (p *WorkerPool) run(task func()) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// AddTask queues a task. It reports false once the pool is closed.
func (p *WorkerPool) AddTask(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	p.taskChan <- task
	return true
}

// Wait waits for all queued tasks to complete
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks, drains the queue and stops the workers.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.taskChan)
}
