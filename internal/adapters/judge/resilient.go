package judge

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// BreakerSettings configures the circuit breaker around the generation service
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// ResilientGenerator retries transient generation failures and stops calling a
// failing service until the breaker half-opens again
type ResilientGenerator struct {
	next       core.Generator
	cb         *gobreaker.CircuitBreaker
	maxRetries uint64
	retryBase  time.Duration
	logger     *zap.Logger
}

// NewResilientGenerator wraps next with a circuit breaker and bounded Fibonacci retries
func NewResilientGenerator(next core.Generator, breaker BreakerSettings, maxRetries int, retryBase time.Duration, logger *zap.Logger) *ResilientGenerator {
	if breaker.ConsecutiveFailures == 0 {
		breaker.ConsecutiveFailures = 5
	}
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breaker.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Generation circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A caller giving up is not a service failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &ResilientGenerator{
		next:       next,
		cb:         gobreaker.NewCircuitBreaker(settings),
		maxRetries: uint64(maxRetries),
		retryBase:  retryBase,
		logger:     logger,
	}
}

// Name returns the wrapped generator's name
func (g *ResilientGenerator) Name() string {
	return g.next.Name()
}

// Close closes the wrapped generator when it holds a connection
func (g *ResilientGenerator) Close() error {
	if closer, ok := g.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// State reports the breaker state
func (g *ResilientGenerator) State() gobreaker.State {
	return g.cb.State()
}

// Generate calls the wrapped generator through the breaker, retrying transient failures
func (g *ResilientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0

	b := retry.WithMaxRetries(g.maxRetries, retry.NewFibonacci(g.retryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		res, err := g.cb.Execute(func() (interface{}, error) {
			return g.next.Generate(ctx, prompt)
		})
		if err != nil {
			if !retryable(ctx, err) {
				return err
			}
			g.logger.Debug("Generation attempt failed",
				zap.String("generator", g.next.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		out = res.(string)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
