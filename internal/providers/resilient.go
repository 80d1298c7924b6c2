package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/metrics"
	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
)

// RetryOptions bounds how hard a provider is pushed.
type RetryOptions struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
}

func RetryOptionsFromConfig(cfg config.ProviderConfig) RetryOptions {
	return RetryOptions{
		MaxAttempts:      cfg.MaxAttempts,
		InitialBackoff:   cfg.InitialBackoff,
		MaxBackoff:       cfg.MaxBackoff,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		BreakerFailures:  cfg.BreakerFailures,
		BreakerOpenDelay: cfg.BreakerOpenDelay,
	}
}

// Guard is the per-provider state shared by every generator built for that provider.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewGuard(provider string, opts RetryOptions) *Guard {
	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	burst := opts.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	failures := uint32(opts.BreakerFailures)
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     opts.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		// Only transient failures count against the provider.
		IsSuccessful: func(err error) bool {
			return err == nil || !common.IsRetryable(err)
		},
	}

	return &Guard{
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ResilientGenerator retries transient failures with exponential backoff.
// Client, authentication and parse errors are returned after the first attempt.
type ResilientGenerator struct {
	inner    TextGenerator
	guard    *Guard
	opts     RetryOptions
	recorder *metrics.Recorder
}

func NewResilientGenerator(inner TextGenerator, guard *Guard, opts RetryOptions, recorder *metrics.Recorder) *ResilientGenerator {
	if guard == nil {
		guard = NewGuard(inner.GetProviderName(), opts)
	}
	return &ResilientGenerator{
		inner:    inner,
		guard:    guard,
		opts:     opts,
		recorder: recorder,
	}
}

func (g *ResilientGenerator) GetProviderName() string {
	return g.inner.GetProviderName()
}

func (g *ResilientGenerator) Generate(ctx context.Context, req common.GenerationRequest) (*common.GenerationResponse, error) {
	logger := zerolog.Ctx(ctx)
	name := g.inner.GetProviderName()

	attempts := g.opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(attempts-1)), ctx)

	operation := func() (*common.GenerationResponse, error) {
		if err := g.guard.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		start := time.Now()
		result, err := g.guard.breaker.Execute(func() (interface{}, error) {
			return g.inner.Generate(ctx, req)
		})
		g.recorder.ObserveProviderCall(name, outcome(err), time.Since(start))

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(common.NewProviderError(common.KindTransient, name, "circuit breaker open", err))
			}
			if !common.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		resp, ok := result.(*common.GenerationResponse)
		if !ok || resp == nil {
			return nil, backoff.Permanent(common.ParseError(name, "empty response", nil))
		}
		return resp, nil
	}

	notify := func(err error, wait time.Duration) {
		g.recorder.IncProviderRetry(name)
		logger.Warn().
			Err(err).
			Str("provider", name).
			Dur("backoff", wait).
			Msg("transient provider failure, retrying")
	}

	resp, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", name, err)
	}
	return resp, nil
}

func (g *ResilientGenerator) newBackOff() backoff.BackOff {
	initial := g.opts.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	maxInterval := g.opts.MaxBackoff
	if maxInterval < initial {
		maxInterval = initial * 8
	}
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithMaxElapsedTime(0),
	)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if kind := common.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
