// Package queue runs CPU-heavy password work on a fixed set of goroutines so
// bursts of logins cannot occupy every request handler at once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
)

const channelBuffer = 256

// ErrPoolClosed is returned for work submitted after Stop.
var ErrPoolClosed = errors.New("hash pool closed")

// HashPool wraps a PasswordHasher and executes its calls on numWorkers
// goroutines. It satisfies ports.PasswordHasher itself.
type HashPool struct {
	hasher  ports.PasswordHasher
	jobs    chan func()
	quit    chan struct{}
	stopped chan struct{}
	workers int
	log     zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHashPool creates a pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewHashPool(numWorkers int, hasher ports.PasswordHasher, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &HashPool{
		hasher:  hasher,
		jobs:    make(chan func(), channelBuffer),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		workers: numWorkers,
		log:     log,
	}
}

// Start launches the worker goroutines. Workers stop when ctx is cancelled
// or Stop is called.
func (p *HashPool) Start(ctx context.Context) {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.runWorker(ctx, i)
	}
	p.log.Debug().Int("workers", p.workers).Msg("hash pool started")
}

// Stop signals the workers and waits for them to exit. Queued jobs that
// never started are abandoned and their callers receive ErrPoolClosed.
func (p *HashPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		close(p.stopped)
	})
}

// Pending reports how many jobs are waiting for a worker.
func (p *HashPool) Pending() int {
	return len(p.jobs)
}

func (p *HashPool) Hash(ctx context.Context, plaintext string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	done := make(chan result, 1)

	err := p.run(ctx, func() {
		hash, err := p.hasher.Hash(ctx, plaintext)
		done <- result{hash: hash, err: err}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHashing, err)
	}
	r := <-done
	return r.hash, r.err
}

func (p *HashPool) Verify(ctx context.Context, plaintext, encoded string) bool {
	done := make(chan bool, 1)

	err := p.run(ctx, func() {
		done <- p.hasher.Verify(ctx, plaintext, encoded)
	})
	if err != nil {
		p.log.Debug().Err(err).Msg("password verification not run")
		return false
	}
	return <-done
}

// run enqueues job and blocks until it finished, the caller gave up, or the
// pool was stopped.
func (p *HashPool) run(ctx context.Context, job func()) error {
	wrapped := make(chan struct{})
	task := func() {
		defer close(wrapped)
		job()
	}

	select {
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- task:
	}

	select {
	case <-wrapped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		select {
		case <-wrapped:
			return nil
		default:
			return ErrPoolClosed
		}
	}
}

func (p *HashPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.jobs:
			task()
			p.log.Trace().Int("worker_id", id).Msg("hash job done")
		}
	}
}
