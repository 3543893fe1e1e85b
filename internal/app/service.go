// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	workerpool "github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const tracerName = "github.com/okian/podium/internal/app"

// Service finishes and reopens events and serves the derived views.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	authorizer Authorizer
	inFlight   dedupe.Deduper
	pool       *workerpool.Pool
	clock      clockwork.Clock
	tracer     trace.Tracer

	// Configuration
	workerCount int
	seasonYear  int

	// State
	started bool
	running sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets how many participants are scored or written at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithSeasonYear sets which season's picks are used as fallback.
func WithSeasonYear(year int) Option {
	return func(s *Service) {
		if year > 0 {
			s.seasonYear = year
		}
	}
}

// WithStore sets the backing store. Without it Start creates an empty
// memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAuthorizer replaces the default admin check.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

// WithClock sets the clock used for finalization timestamps and pass timing.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 4,
		seasonYear:  time.Now().Year(),
		clock:       clockwork.NewRealClock(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components. It is safe to call twice.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		mem, err := repository.NewMemoryStore(ctx)
		if err != nil {
			return fmt.Errorf("create memory store: %w", err)
		}
		s.store = mem
		s.logger.Info(ctx, "using empty memory store")
	}
	if s.authorizer == nil {
		s.authorizer = DirectoryAuthorizer{Directory: s.store}
	}
	s.inFlight = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	s.pool = workerpool.NewPool(
		workerpool.WithName("scoring"),
		workerpool.WithSize(s.workerCount),
		workerpool.WithLogger(s.logger),
	)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("seasonYear", s.seasonYear),
	)
	return nil
}

// Stop refuses new operations, waits for running ones to finish and then
// releases the store if it holds resources.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	// a pass that is mid-write or mid-restore must not see a closed store
	s.running.Wait()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
	}
	s.logger.Info(context.Background(), "scoring service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"seasonYear":  s.seasonYear,
	}
	if s.started {
		stats["inFlightEvents"] = s.inFlight.Size()
		stats["store"] = fmt.Sprintf("%T", s.store)
	}
	return stats
}

// begin registers a running operation so Stop can wait for it. It fails if
// the service is not started. The returned func must be called when the
// operation is done.
func (s *Service) begin(op string) (func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, newError(KindPersistence, op, nil, "service not started")
	}
	s.running.Add(1)
	return s.running.Done, nil
}

// observe records pass metrics and closes out the span.
func (s *Service) observe(op string, start time.Time, span trace.Span, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordPass(op, outcome, float64(s.clock.Since(start).Microseconds())/1000.0)
}
