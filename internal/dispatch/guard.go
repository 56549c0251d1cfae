package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"trackersms/internal/observability"
	"trackersms/internal/util"
)

const guardProvider = "guard"

var errOutcomeFailed = errors.New("dispatch outcome failed")

// Guard paces and protects an inner Dispatcher. Limiter and Breaker are optional.
type Guard struct {
	Next    Dispatcher
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker

	// LimitWait bounds how long a send waits for a limiter token.
	LimitWait time.Duration
}

func NewBreaker(name string, consecutiveFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= consecutiveFailures },
	})
}

func (g *Guard) Send(ctx context.Context, phone, command, model string) Outcome {
	start := time.Now()
	out := g.send(ctx, phone, command, model)

	result := "ok"
	if !out.Success {
		result = "failed"
	}
	observability.DispatchOutcomes.WithLabelValues(result, out.ErrorCode).Inc()
	observability.DispatchLatency.Observe(time.Since(start).Seconds())
	return out
}

func (g *Guard) send(ctx context.Context, phone, command, model string) Outcome {
	if g.Limiter != nil {
		wait := g.LimitWait
		if wait <= 0 {
			wait = 2 * time.Second
		}
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		err := g.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return failure(guardProvider, CodeCancelled, "Send cancelled while waiting for capacity", util.NowUTC())
			}
			return failure(guardProvider, CodeRateLimited, "Dispatch capacity exhausted, try again later", util.NowUTC())
		}
	}

	if g.Breaker == nil {
		return g.Next.Send(ctx, phone, command, model)
	}

	var out Outcome
	_, err := g.Breaker.Execute(func() (any, error) {
		out = g.Next.Send(ctx, phone, command, model)
		// A cancelled caller says nothing about the provider's health.
		if !out.Success && out.ErrorCode != CodeCancelled {
			return nil, errOutcomeFailed
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return failure(guardProvider, CodeCircuitOpen, "Dispatch temporarily suspended after repeated failures", util.NowUTC())
	}
	return out
}
