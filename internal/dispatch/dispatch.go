// Package dispatch delivers a command to a tracker phone number. The only
// implementation today is a mock; a carrier integration plugs in behind
// Dispatcher without touching the send workflow.
package dispatch

import (
	"context"
	"time"
)

const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeCircuitOpen  = "CIRCUIT_OPEN"
	CodeRateLimited  = "RATE_LIMITED"
	CodeCancelled    = "CANCELLED"
)

// Outcome is always definite: Success or a failure with ErrorCode set.
type Outcome struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"messageId,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Details   string    `json:"details"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

type Dispatcher interface {
	Send(ctx context.Context, phone, command, model string) Outcome
}

func failure(provider, code, details string, now time.Time) Outcome {
	return Outcome{Success: false, ErrorCode: code, Details: details, Provider: provider, Timestamp: now}
}
