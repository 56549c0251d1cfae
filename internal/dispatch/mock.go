package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trackersms/internal/util"
)

const mockProvider = "mock"

type Mock struct {
	SuccessRate float64
	Latency     time.Duration

	// Overridable for tests.
	Float func() float64
	IDGen func() string
	Now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewMock(successRate float64, latency time.Duration) *Mock {
	return &Mock{
		SuccessRate: successRate,
		Latency:     latency,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Mock) Send(ctx context.Context, phone, command, model string) Outcome {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return failure(mockProvider, CodeCancelled, "Send cancelled before completion", m.now())
		case <-timer.C:
		}
	}

	if m.roll() >= m.SuccessRate {
		return failure(mockProvider, CodeNetworkError,
			fmt.Sprintf("Simulated network error while sending to %s", phone), m.now())
	}
	return Outcome{
		Success:   true,
		MessageID: m.newID(),
		Details:   fmt.Sprintf("Command %s sent to %s (%s)", command, phone, model),
		Provider:  mockProvider,
		Timestamp: m.now(),
	}
}

func (m *Mock) roll() float64 {
	if m.Float != nil {
		return m.Float()
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m.rng.Float64()
}

func (m *Mock) newID() string {
	if m.IDGen != nil {
		return m.IDGen()
	}
	return util.NewMessageID()
}

func (m *Mock) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return util.NowUTC()
}
