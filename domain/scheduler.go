package domain

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/entities"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type FetchFunc func(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error)

func (f FetchFunc) Fetch(ctx context.Context, unit entities.WorkUnit) ([]entities.Block, error) {
	return f(ctx, unit)
}

type SchedulerConfig struct {
	Concurrency     int
	RequestInterval time.Duration // minimum spacing between two dispatches, across all workers
	RequestTimeout  time.Duration
	Backoff         Backoff
}

// Scheduler executes work units against a provider. It never touches cursor or tally state, it
// only turns units into outcomes.
type Scheduler struct {
	concurrency    int
	requestTimeout time.Duration
	backoff        Backoff
	limiter        *rate.Limiter
	sleep          func(ctx context.Context, d time.Duration) error
	metrics        *Metrics
	logger         *zap.SugaredLogger
}

func NewScheduler(cfg SchedulerConfig, metrics *Metrics, logger *zap.SugaredLogger) *Scheduler {
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Scheduler{
		concurrency:    max(cfg.Concurrency, 1),
		requestTimeout: cfg.RequestTimeout,
		backoff:        cfg.Backoff,
		limiter:        rate.NewLimiter(limit, 1),
		sleep:          sleepContext,
		metrics:        metrics,
		logger:         logger,
	}
}

// Execute returns exactly one outcome per unit, in submission order. A failing unit never
// cancels its siblings.
func (s *Scheduler) Execute(ctx context.Context, units []entities.WorkUnit, fetch FetchFunc) []entities.FetchOutcome {
	outcomes := make([]entities.FetchOutcome, len(units))

	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i, unit := range units {
		group.Go(func() error {
			outcomes[i] = s.execute(ctx, unit, fetch)
			return nil
		})
	}
	_ = group.Wait() // workers report failures as outcomes

	return outcomes
}

func (s *Scheduler) execute(ctx context.Context, unit entities.WorkUnit, fetch FetchFunc) entities.FetchOutcome {
	outcome := entities.FetchOutcome{Unit: unit}
	maxAttempts := s.backoff.attempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt

		if err := s.limiter.Wait(ctx); err != nil {
			// abandoned, the unit can be fetched again by a later run
			outcome.Err = errors.Wrap(err, "waiting for dispatch")
			outcome.Retriable = true
			return outcome
		}
		s.metrics.IncDispatchedRequests()

		blocks, err := s.fetchOnce(ctx, unit, fetch)
		// an adapter may return the decoded part of a malformed response together with the error
		outcome.Blocks = blocks
		outcome.Err = err
		if err == nil {
			return outcome
		}

		if ctx.Err() != nil {
			outcome.Retriable = true
			return outcome
		}
		if !s.retriable(err) {
			return outcome
		}
		if attempt == maxAttempts {
			break
		}

		delay := s.backoff.Delay(attempt)
		s.logger.Debugw("Retrying unit", "unit", unit.String(), "attempt", attempt, "delay", delay, "error", err)
		s.metrics.IncRetries()
		if err := s.sleep(ctx, delay); err != nil {
			outcome.Err = errors.Wrap(err, "waiting for retry")
			outcome.Retriable = true
			return outcome
		}
	}

	outcome.Err = errors.Wrapf(entities.ErrRetriesExhausted, "%s failed %d times, last error: %v", unit.String(), outcome.Attempts, outcome.Err)
	return outcome
}

func (s *Scheduler) fetchOnce(ctx context.Context, unit entities.WorkUnit, fetch FetchFunc) ([]entities.Block, error) {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	start := time.Now()
	blocks, err := fetch(ctx, unit)
	s.metrics.ObserveFetchDuration(time.Since(start))
	return blocks, err
}

// retriable is only called while the parent context is alive, so an expired deadline belongs to
// the single request.
func (s *Scheduler) retriable(err error) bool {
	return entities.IsRetriable(err) || errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
