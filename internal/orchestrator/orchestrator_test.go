package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/orchestrator"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/polling"
)

// fakeClient settles on its first poll according to its script.
type fakeClient struct {
	name      domain.Provider
	submitErr error
	pollRes   providers.PollResult
	pollErr   error
}

func (c *fakeClient) Name() domain.Provider { return c.name }

func (c *fakeClient) Submit(ctx context.Context, path string) (providers.Handle, error) {
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	return string(c.name) + "-handle", nil
}

func (c *fakeClient) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	return c.pollRes, c.pollErr
}

func succeeding(name domain.Provider, p domain.ProviderPayload) *fakeClient {
	return &fakeClient{name: name, pollRes: providers.PollResult{State: providers.StateDone, Payload: p}}
}

func policies(names ...domain.Provider) map[domain.Provider]polling.Policy {
	out := make(map[domain.Provider]polling.Policy, len(names))
	for _, n := range names {
		out[n] = polling.Policy{Interval: time.Millisecond, MaxAttempts: 3}
	}
	return out
}

func TestRunAll_AllProvidersSucceed(t *testing.T) {
	mandatory := succeeding(domain.ProviderMobSF, &domain.StaticReport{})
	optional := []providers.Client{
		succeeding(domain.ProviderVirusTotal, &domain.AVReport{Total: 10}),
		succeeding(domain.ProviderMetaDefender, &domain.ReputationReport{TotalEngines: 20}),
		succeeding(domain.ProviderHybridAnalysis, &domain.SandboxReport{Verdict: domain.VerdictClean}),
	}
	o := orchestrator.New(mandatory, optional, policies(orchestratorNames()...))

	bundle, err := o.RunAll(context.Background(), "app.apk")
	if err != nil {
		t.Fatalf("RunAll returned unexpected error: %v", err)
	}
	if len(bundle) != 4 {
		t.Fatalf("bundle has %d outcomes, want 4", len(bundle))
	}
	for p, out := range bundle {
		if out.Kind != domain.OutcomeSuccess {
			t.Errorf("outcome for %s = %s, want success", p, out.Kind)
		}
	}
}

func TestRunAll_OptionalFailureIsContained(t *testing.T) {
	mandatory := succeeding(domain.ProviderMobSF, &domain.StaticReport{})
	failing := &fakeClient{
		name:    domain.ProviderVirusTotal,
		pollRes: providers.PollResult{State: providers.StateFailed, Reason: "quota exceeded"},
	}
	optional := []providers.Client{
		failing,
		succeeding(domain.ProviderMetaDefender, &domain.ReputationReport{}),
		succeeding(domain.ProviderHybridAnalysis, &domain.SandboxReport{Verdict: domain.VerdictClean}),
	}
	o := orchestrator.New(mandatory, optional, policies(orchestratorNames()...))

	bundle, err := o.RunAll(context.Background(), "app.apk")
	if err != nil {
		t.Fatalf("RunAll must not fail on an optional provider error, got: %v", err)
	}
	if got := bundle[domain.ProviderVirusTotal].Kind; got != domain.OutcomeFailed {
		t.Errorf("virustotal outcome = %s, want failed", got)
	}
	for _, p := range []domain.Provider{domain.ProviderMobSF, domain.ProviderMetaDefender, domain.ProviderHybridAnalysis} {
		if got := bundle[p].Kind; got != domain.OutcomeSuccess {
			t.Errorf("outcome for %s = %s, want success", p, got)
		}
	}
}

func TestRunAll_SkipPreconditionYieldsSkipped(t *testing.T) {
	mandatory := succeeding(domain.ProviderMobSF, &domain.StaticReport{})
	skipping := &fakeClient{
		name:      domain.ProviderMetaDefender,
		submitErr: domain.Skipf("file exceeds size limit"),
	}
	o := orchestrator.New(mandatory, []providers.Client{skipping}, policies(orchestratorNames()...))

	bundle, err := o.RunAll(context.Background(), "app.apk")
	if err != nil {
		t.Fatalf("RunAll returned unexpected error: %v", err)
	}
	out := bundle[domain.ProviderMetaDefender]
	if out.Kind != domain.OutcomeSkipped {
		t.Fatalf("outcome kind = %s, want skipped", out.Kind)
	}
	if out.Reason == "" {
		t.Error("skipped outcome must carry a reason")
	}
}

func TestRunAll_MandatoryFailureAborts(t *testing.T) {
	mandatory := &fakeClient{name: domain.ProviderMobSF, submitErr: errors.New("upload rejected")}
	optional := []providers.Client{succeeding(domain.ProviderVirusTotal, &domain.AVReport{})}
	o := orchestrator.New(mandatory, optional, policies(orchestratorNames()...))

	bundle, err := o.RunAll(context.Background(), "app.apk")
	var merr *domain.MandatoryProviderError
	if !errors.As(err, &merr) {
		t.Fatalf("RunAll error = %v, want MandatoryProviderError", err)
	}
	if merr.Provider != domain.ProviderMobSF {
		t.Errorf("failing provider = %s, want mobsf", merr.Provider)
	}
	if bundle != nil {
		t.Errorf("bundle = %v, want nil when the mandatory provider fails", bundle)
	}
}

func TestRunAll_MandatoryTimeoutAborts(t *testing.T) {
	mandatory := &fakeClient{name: domain.ProviderMobSF, pollRes: providers.PollResult{State: providers.StatePending}}
	o := orchestrator.New(mandatory, nil, policies(orchestratorNames()...))

	_, err := o.RunAll(context.Background(), "app.apk")
	if !errors.Is(err, domain.ErrScanTimeout) {
		t.Fatalf("RunAll error = %v, want timeout from the mandatory provider", err)
	}
}

func orchestratorNames() []domain.Provider {
	return []domain.Provider{
		domain.ProviderMobSF,
		domain.ProviderVirusTotal,
		domain.ProviderMetaDefender,
		domain.ProviderHybridAnalysis,
	}
}
