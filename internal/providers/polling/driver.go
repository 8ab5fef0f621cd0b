// Package polling turns a provider's submit/poll pair into a bounded-wait
// synchronous result: constant interval, fixed attempt budget, transient
// errors retried, waits always cancellable through ctx.
package polling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
)

// Policy bounds one provider's polling loop.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// errPending marks a poll that returned no signal yet.
var errPending = errors.New("scan still pending")

// Await polls the client until the scan settles or the attempt budget runs
// out. It returns the payload on a valid completion signal, a
// domain.ErrScanFailed-wrapped error on a recognized failure signal, and
// domain.ErrScanTimeout after exhaustion. Transient poll errors (network
// hiccups, malformed intermediate responses) are logged and retried within
// the same budget. A done signal without a structurally valid payload is
// treated as failure, never as completion.
func Await(ctx context.Context, c providers.Client, h providers.Handle, pol Policy) (domain.ProviderPayload, error) {
	attempts := pol.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := pol.Interval
	if interval <= 0 {
		interval = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(interval))

	var payload domain.ProviderPayload
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, perr := c.Poll(ctx, h)
		if perr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[polling] %s: transient poll error: %v", c.Name(), perr)
			return retry.RetryableError(perr)
		}
		switch res.State {
		case providers.StateDone:
			if res.Payload == nil {
				return fmt.Errorf("%w: completion signal without a valid payload", domain.ErrScanFailed)
			}
			payload = res.Payload
			return nil
		case providers.StateFailed:
			return fmt.Errorf("%w: %s", domain.ErrScanFailed, res.Reason)
		default:
			return retry.RetryableError(errPending)
		}
	})
	if err != nil {
		if errors.Is(err, domain.ErrScanFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Budget exhausted while pending or flapping on transient errors.
		return nil, fmt.Errorf("%w after %d attempts (%s): %v", domain.ErrScanTimeout, attempts, c.Name(), err)
	}
	return payload, nil
}
