package taskpool

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	// DefaultBacklog bounds how many detached units may wait for a worker
	DefaultBacklog = 1024

	// DefaultDrainGrace is how long Stop waits for in-flight tasks
	DefaultDrainGrace = 30 * time.Second
)

var ErrNotRunning = errors.New("taskpool: pool is not running")
var ErrBacklogFull = errors.New("taskpool: backlog full")

// Pool runs detached background units of work on a fixed set of workers.
// Delivery is at-most-once and best-effort: a task submitted while the
// backlog is full or the pool is stopped is dropped with an error, never
// queued durably.
type Pool struct {
	workers int
	tasks   chan func()
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewPool creates a pool with the given worker count
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Pool{
		workers: workers,
		tasks:   make(chan func(), DefaultBacklog),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	log.Infof("[TaskPool] Starting %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit hands a task to the pool without blocking the caller
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		return ErrNotRunning
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Stop shuts the pool down, letting in-flight and queued tasks drain
// within the grace period. Tasks still pending afterwards are abandoned.
func (p *Pool) Stop(grace time.Duration) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	log.Info("[TaskPool] Stopping workers...")
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("[TaskPool] All workers stopped")
	case <-time.After(grace):
		log.Warnf("[TaskPool] Drain grace of %s expired, abandoning %d queued tasks", grace, len(p.tasks))
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			p.run(id, task)
		case <-p.stopCh:
			// drain what is already queued before exiting
			for {
				select {
				case task := <-p.tasks:
					p.run(id, task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[TaskPool] Worker %d recovered from panic: %v", id, r)
		}
	}()

	task()
}
