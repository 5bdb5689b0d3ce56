package bidding

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolSaturated is returned by Submit when the queue is full and no
// burst worker slot is free.
var ErrPoolSaturated = errors.New("worker pool saturated")

// PoolConfig sizes the evaluation worker pool. CoreSize workers run for the
// pool's lifetime; when the queue of QueueSize tasks is full, transient
// workers are started up to MaxSize total. Beyond that, submissions are
// rejected rather than queued unboundedly.
type PoolConfig struct {
	CoreSize  int
	MaxSize   int
	QueueSize int
}

// Pool is a bounded worker pool for auction evaluations.
type Pool struct {
	queue chan func()
	burst chan struct{} // semaphore for workers beyond the core set
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// NewPool starts the core workers and returns the pool.
func NewPool(cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.CoreSize < 1 {
		cfg.CoreSize = 1
	}
	if cfg.MaxSize < cfg.CoreSize {
		cfg.MaxSize = cfg.CoreSize
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	p := &Pool{
		queue:  make(chan func(), cfg.QueueSize),
		burst:  make(chan struct{}, cfg.MaxSize-cfg.CoreSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	for i := 0; i < cfg.CoreSize; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.queue:
			task()
		case <-p.done:
			return
		}
	}
}

// Submit enqueues a task. When the queue is full a transient worker runs the
// task directly if a burst slot is free; otherwise ErrPoolSaturated is
// returned and the task never runs.
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.done:
		return ErrPoolSaturated
	default:
	}

	select {
	case p.queue <- task:
		return nil
	default:
	}

	select {
	case p.burst <- struct{}{}:
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer func() { <-p.burst }()
			task()
		}()
		return nil
	default:
		return ErrPoolSaturated
	}
}

// Shutdown stops accepting work and waits for in-flight tasks to finish.
// Queued tasks that no worker picked up before shutdown are dropped.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
