package review

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrPoolFull   = errors.New("review: queue is full")
	ErrPoolClosed = errors.New("review: pool is closed")
)

const (
	DefaultWorkers = 4
	DefaultQueue   = 100
)

// Pool is a fixed set of workers reading from a buffered job queue. It bounds
// the number of grammar API calls in flight for the whole process.
type Pool struct {
	jobs   chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

func NewPool(workers, queue int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queue <= 0 {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{jobs: make(chan func(), queue), logger: logger}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker()
		}()
	}
	return p
}

func (p *Pool) worker() {
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("review job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	job()
}

// Submit queues job without blocking.
func (p *Pool) Submit(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting jobs, runs the ones already queued and waits for the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
