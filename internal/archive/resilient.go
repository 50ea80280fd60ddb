package archive

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ResilientConfig holds configuration for the resilient archiver wrapper.
type ResilientConfig struct {
	// Name identifies the circuit breaker for logging.
	Name string

	// MaxRetries is the number of retries per archive call.
	// Default: 2
	MaxRetries uint64

	// RetryInterval is the constant delay between retries.
	// Default: 500ms
	RetryInterval time.Duration

	// BreakerTimeout is the period of open state before half-open.
	// Default: 30 seconds
	BreakerTimeout time.Duration

	// ReadyToTrip determines when to trip the circuit breaker.
	// If nil, trips at 5+ requests with a 50%+ failure rate.
	ReadyToTrip func(counts gobreaker.Counts) bool

	Logger zerolog.Logger
}

// DefaultReadyToTrip trips the breaker when at least 5 requests have been
// made and the failure rate is 50% or higher.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && failureRatio >= 0.5
}

// ResilientArchiver wraps an Archiver with a circuit breaker and retry
// logic. Archive calls go to an external object-storage backend; one slow
// or failing backend must not stall an entire retention run.
type ResilientArchiver struct {
	inner   Archiver
	breaker *gobreaker.CircuitBreaker[*Result]
	retries uint64
	wait    time.Duration
	logger  zerolog.Logger
}

// NewResilientArchiver creates a resilient wrapper around the given archiver.
func NewResilientArchiver(inner Archiver, cfg ResilientConfig) *ResilientArchiver {
	if cfg.Name == "" {
		cfg.Name = "storage-archiver"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = DefaultReadyToTrip
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("archiver circuit breaker state changed")
		},
	})

	return &ResilientArchiver{
		inner:   inner,
		breaker: breaker,
		retries: cfg.MaxRetries,
		wait:    cfg.RetryInterval,
		logger:  logger,
	}
}

// ArchiveReportFiles archives a single report's files through the breaker.
func (a *ResilientArchiver) ArchiveReportFiles(ctx context.Context, screenshotURL, replayURL *string) (*Result, error) {
	return a.execute(ctx, func(ctx context.Context) (*Result, error) {
		return a.inner.ArchiveReportFiles(ctx, screenshotURL, replayURL)
	})
}

// ArchiveBatch archives multiple reports' files through the breaker.
func (a *ResilientArchiver) ArchiveBatch(ctx context.Context, refs []FileRef) (*Result, error) {
	return a.execute(ctx, func(ctx context.Context) (*Result, error) {
		return a.inner.ArchiveBatch(ctx, refs)
	})
}

// State returns the current circuit breaker state.
func (a *ResilientArchiver) State() gobreaker.State {
	return a.breaker.State()
}

func (a *ResilientArchiver) execute(ctx context.Context, op func(context.Context) (*Result, error)) (*Result, error) {
	return a.breaker.Execute(func() (*Result, error) {
		var result *Result

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(a.wait), a.retries),
			ctx,
		)

		err := backoff.Retry(func() error {
			var opErr error
			result, opErr = op(ctx)
			return opErr
		}, policy)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

// Ensure ResilientArchiver implements Archiver interface.
var _ Archiver = (*ResilientArchiver)(nil)
