// Package providers defines the uniform contract every external scanner
// client implements: submit a local file, then poll the vendor until the
// scan settles. Payload shapes differ per provider; each client returns its
// own typed report through the tagged domain payload types.
package providers

import (
	"context"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
)

// Handle is an opaque per-provider reference to a submitted scan. Each
// client type-asserts its own handle type in Poll.
type Handle any

// PollState classifies one poll response.
type PollState int

const (
	StatePending PollState = iota
	StateDone
	StateFailed
)

// PollResult is the outcome of a single poll. Payload is set for StateDone;
// Reason is set for StateFailed. An error return from Poll (as opposed to
// StateFailed) is treated as transient and retried by the driver.
type PollResult struct {
	State   PollState
	Payload domain.ProviderPayload
	Reason  string
}

// Client is implemented once per vendor.
type Client interface {
	Name() domain.Provider

	// Submit uploads the file and starts the scan. A *domain.SkipError
	// return means a provider precondition is violated and the provider
	// must settle as skipped rather than failed.
	Submit(ctx context.Context, path string) (Handle, error)

	Poll(ctx context.Context, h Handle) (PollResult, error)
}
