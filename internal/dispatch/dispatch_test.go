package dispatch

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func fixedMock(roll float64) *Mock {
	m := NewMock(0.9, 0)
	m.Float = func() float64 { return roll }
	m.IDGen = func() string { return "msg_TEST" }
	m.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return m
}

func TestMockSuccess(t *testing.T) {
	out := fixedMock(0.1).Send(context.Background(), "+5511999999999", "STATUS123456", "TK103")
	if !out.Success || out.MessageID != "msg_TEST" || out.ErrorCode != "" {
		t.Fatalf("expected success, got %+v", out)
	}
	if !strings.Contains(out.Details, "STATUS123456") || !strings.Contains(out.Details, "TK103") {
		t.Fatalf("details should name command and model: %q", out.Details)
	}
}

func TestMockFailure(t *testing.T) {
	out := fixedMock(0.95).Send(context.Background(), "+5511999999999", "RESET123456", "TK103")
	if out.Success || out.ErrorCode != CodeNetworkError || out.MessageID != "" {
		t.Fatalf("expected network error, got %+v", out)
	}
}

func TestMockSuccessRateRoughlyHonoured(t *testing.T) {
	m := NewMock(0.9, 0)
	ok := 0
	const n = 5000
	for i := 0; i < n; i++ {
		if m.Send(context.Background(), "+5511999999999", "X", "Y").Success {
			ok++
		}
	}
	got := float64(ok) / n
	if got < 0.85 || got > 0.95 {
		t.Fatalf("success rate %.3f outside tolerance", got)
	}
}

func TestMockHonoursCancellation(t *testing.T) {
	m := NewMock(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := m.Send(ctx, "+5511999999999", "X", "Y")
	if out.Success || out.ErrorCode != CodeCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", out)
	}
}

type countingDispatcher struct {
	calls   atomic.Int32
	succeed bool
	code    string
}

func (c *countingDispatcher) Send(ctx context.Context, phone, command, model string) Outcome {
	c.calls.Add(1)
	if c.succeed {
		return Outcome{Success: true, MessageID: "msg_1", Provider: "fake"}
	}
	if c.code != "" {
		return failure("fake", c.code, "boom", time.Now())
	}
	return failure("fake", CodeNetworkError, "boom", time.Now())
}

func TestGuardPassThrough(t *testing.T) {
	inner := &countingDispatcher{succeed: true}
	g := &Guard{Next: inner}
	out := g.Send(context.Background(), "p", "c", "m")
	if !out.Success || inner.calls.Load() != 1 {
		t.Fatalf("expected pass-through success, got %+v calls=%d", out, inner.calls.Load())
	}
}

func TestGuardBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingDispatcher{}
	g := &Guard{Next: inner, Breaker: NewBreaker("test", 3, time.Minute)}

	for i := 0; i < 3; i++ {
		out := g.Send(context.Background(), "p", "c", "m")
		if out.ErrorCode != CodeNetworkError {
			t.Fatalf("attempt %d: expected inner failure, got %+v", i, out)
		}
	}
	out := g.Send(context.Background(), "p", "c", "m")
	if out.Success || out.ErrorCode != CodeCircuitOpen {
		t.Fatalf("expected open circuit, got %+v", out)
	}
	if inner.calls.Load() != 3 {
		t.Fatalf("inner must not be called while open, calls=%d", inner.calls.Load())
	}
}

func TestGuardCancelledSendsKeepBreakerClosed(t *testing.T) {
	inner := &countingDispatcher{code: CodeCancelled}
	g := &Guard{Next: inner, Breaker: NewBreaker("test", 3, time.Minute)}

	for i := 0; i < 10; i++ {
		out := g.Send(context.Background(), "p", "c", "m")
		if out.ErrorCode != CodeCancelled {
			t.Fatalf("attempt %d: expected cancelled outcome, got %+v", i, out)
		}
	}
	if inner.calls.Load() != 10 {
		t.Fatalf("every send should reach the provider, calls=%d", inner.calls.Load())
	}

	inner.code = ""
	for i := 0; i < 2; i++ {
		g.Send(context.Background(), "p", "c", "m")
	}
	if out := g.Send(context.Background(), "p", "c", "m"); out.ErrorCode != CodeNetworkError {
		t.Fatalf("cancellations must not count toward the trip threshold, got %+v", out)
	}
}

func TestGuardRateLimitExhausted(t *testing.T) {
	inner := &countingDispatcher{succeed: true}
	g := &Guard{
		Next:      inner,
		Limiter:   rate.NewLimiter(rate.Every(time.Hour), 1),
		LimitWait: 10 * time.Millisecond,
	}
	if out := g.Send(context.Background(), "p", "c", "m"); !out.Success {
		t.Fatalf("first send should use the burst token: %+v", out)
	}
	out := g.Send(context.Background(), "p", "c", "m")
	if out.Success || out.ErrorCode != CodeRateLimited {
		t.Fatalf("expected rate limited outcome, got %+v", out)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one inner call, got %d", inner.calls.Load())
	}
}
