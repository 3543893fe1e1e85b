package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
)

// Pool bounds the parallelism of a fan-out. It holds no goroutines between
// calls, so it needs no shutdown.
type Pool struct {
	name   string
	size   int
	logger logger.Logger
}

// NewPool creates a pool with configuration options.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		name: "worker",
		size: runtime.NumCPU() * defaultWorkerMultiplier,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get()
	}
	p.logger = p.logger.Named(p.name)
	metrics.UpdateWorkerCount(p.size)
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Map runs fn over items with at most p.Size() in flight and returns the
// results in input order. The first failure cancels the context handed to
// the remaining tasks; Map still waits for every started task before
// returning that error.
func Map[In, Out any](ctx context.Context, p *Pool, items []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := fn(gctx, item)
			metrics.RecordWorkerTask(float64(time.Since(start).Microseconds())/1000.0, err != nil)
			if err != nil {
				return fmt.Errorf("%s task %d: %w", p.name, i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Each runs fn over every item with at most p.Size() in flight. Unlike Map
// a failure does not stop the other tasks; all failures are joined.
func Each[In any](ctx context.Context, p *Pool, items []In, fn func(context.Context, In) error) error {
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(p.size)
	for _, item := range items {
		g.Go(func() error {
			start := time.Now()
			err := fn(ctx, item)
			metrics.RecordWorkerTask(float64(time.Since(start).Microseconds())/1000.0, err != nil)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		p.logger.Warn(ctx, "tasks failed", logger.Int("failed", len(errs)), logger.Int("total", len(items)))
	}
	return errors.Join(errs...)
}
