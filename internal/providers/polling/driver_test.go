package polling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/polling"
)

// step scripts one poll response.
type step struct {
	res providers.PollResult
	err error
}

type scriptedClient struct {
	steps []step
	calls int
}

func (c *scriptedClient) Name() domain.Provider { return "scripted" }

func (c *scriptedClient) Submit(ctx context.Context, path string) (providers.Handle, error) {
	return "handle", nil
}

func (c *scriptedClient) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	s := c.steps[len(c.steps)-1]
	if c.calls < len(c.steps) {
		s = c.steps[c.calls]
	}
	c.calls++
	return s.res, s.err
}

func pending() step {
	return step{res: providers.PollResult{State: providers.StatePending}}
}

func done(p domain.ProviderPayload) step {
	return step{res: providers.PollResult{State: providers.StateDone, Payload: p}}
}

var fastPolicy = polling.Policy{Interval: time.Millisecond, MaxAttempts: 5}

func TestAwait_DoneBeforeBudget(t *testing.T) {
	payload := &domain.StaticReport{AppName: "demo"}
	c := &scriptedClient{steps: []step{pending(), pending(), done(payload)}}

	got, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if err != nil {
		t.Fatalf("Await returned unexpected error: %v", err)
	}
	if got != domain.ProviderPayload(payload) {
		t.Errorf("Await payload = %v, want the scripted report", got)
	}
	if c.calls != 3 {
		t.Errorf("poll calls = %d, want 3", c.calls)
	}
}

func TestAwait_AllPendingTimesOut(t *testing.T) {
	c := &scriptedClient{steps: []step{pending()}}

	_, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if !errors.Is(err, domain.ErrScanTimeout) {
		t.Fatalf("Await error = %v, want ErrScanTimeout", err)
	}
	if c.calls != fastPolicy.MaxAttempts {
		t.Errorf("poll calls = %d, want full budget of %d", c.calls, fastPolicy.MaxAttempts)
	}
}

func TestAwait_FailureSignalAbortsImmediately(t *testing.T) {
	c := &scriptedClient{steps: []step{
		pending(),
		{res: providers.PollResult{State: providers.StateFailed, Reason: "scan engine crashed"}},
	}}

	_, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if !errors.Is(err, domain.ErrScanFailed) {
		t.Fatalf("Await error = %v, want ErrScanFailed", err)
	}
	if c.calls != 2 {
		t.Errorf("poll calls = %d, want 2 (no budget exhaustion on failure)", c.calls)
	}
}

func TestAwait_TransientErrorsAreRetried(t *testing.T) {
	payload := &domain.AVReport{Total: 10}
	c := &scriptedClient{steps: []step{
		{err: errors.New("connection reset")},
		pending(),
		{err: errors.New("malformed response")},
		done(payload),
	}}

	got, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if err != nil {
		t.Fatalf("Await returned unexpected error: %v", err)
	}
	if got != domain.ProviderPayload(payload) {
		t.Errorf("Await payload = %v, want the scripted report", got)
	}
}

func TestAwait_TransientErrorsThroughExhaustion(t *testing.T) {
	c := &scriptedClient{steps: []step{{err: errors.New("connection reset")}}}

	_, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if !errors.Is(err, domain.ErrScanTimeout) {
		t.Fatalf("Await error = %v, want ErrScanTimeout after transient exhaustion", err)
	}
}

func TestAwait_DoneWithoutPayloadIsFailure(t *testing.T) {
	c := &scriptedClient{steps: []step{{res: providers.PollResult{State: providers.StateDone}}}}

	_, err := polling.Await(context.Background(), c, "handle", fastPolicy)
	if !errors.Is(err, domain.ErrScanFailed) {
		t.Fatalf("Await error = %v, want ErrScanFailed for done without payload", err)
	}
}

func TestAwait_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &scriptedClient{steps: []step{pending()}}

	_, err := polling.Await(ctx, c, "handle", polling.Policy{Interval: time.Second, MaxAttempts: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await error = %v, want context.Canceled", err)
	}
}
