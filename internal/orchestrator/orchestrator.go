// Package orchestrator runs every configured provider against one local
// file and assembles the combined result bundle. The mandatory provider's
// failure aborts the run; every optional provider settles independently to
// success, failed or skipped and can never fail the job.
package orchestrator

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/polling"
)

// Orchestrator holds the configured provider clients and their poll
// policies.
type Orchestrator struct {
	mandatory providers.Client
	optional  []providers.Client
	policies  map[domain.Provider]polling.Policy
}

// New builds an orchestrator. The mandatory client must be non-nil;
// optional clients may be empty.
func New(mandatory providers.Client, optional []providers.Client, policies map[domain.Provider]polling.Policy) *Orchestrator {
	return &Orchestrator{mandatory: mandatory, optional: optional, policies: policies}
}

// Providers lists every configured provider name, mandatory first.
func (o *Orchestrator) Providers() []domain.Provider {
	out := []domain.Provider{o.mandatory.Name()}
	for _, c := range o.optional {
		out = append(out, c.Name())
	}
	return out
}

// RunAll scans the file with every provider. The mandatory provider runs
// first and its error propagates as a MandatoryProviderError; the optional
// providers then fan out concurrently, all dispatched before any is joined,
// and the bundle is assembled only after all have settled.
func (o *Orchestrator) RunAll(ctx context.Context, path string) (domain.ResultBundle, error) {
	bundle := make(domain.ResultBundle, 1+len(o.optional))

	payload, err := o.awaitScan(ctx, o.mandatory, path)
	if err != nil {
		return nil, &domain.MandatoryProviderError{Provider: o.mandatory.Name(), Err: err}
	}
	bundle[o.mandatory.Name()] = domain.Success(payload)

	outcomes := make([]domain.Outcome, len(o.optional))
	var g errgroup.Group
	for i, c := range o.optional {
		i, c := i, c
		g.Go(func() error {
			outcomes[i] = o.settle(ctx, c, path)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range o.optional {
		bundle[c.Name()] = outcomes[i]
	}
	return bundle, nil
}

// settle runs one optional provider to a terminal outcome. Errors are
// contained here and never escape to the pipeline.
func (o *Orchestrator) settle(ctx context.Context, c providers.Client, path string) domain.Outcome {
	payload, err := o.awaitScan(ctx, c, path)
	if err != nil {
		var skip *domain.SkipError
		if errors.As(err, &skip) {
			log.Printf("[orchestrator] %s skipped: %s", c.Name(), skip.Reason)
			return domain.Skipped(skip.Reason)
		}
		log.Printf("[orchestrator] %s failed: %v", c.Name(), err)
		return domain.Failed(err.Error())
	}
	return domain.Success(payload)
}

func (o *Orchestrator) awaitScan(ctx context.Context, c providers.Client, path string) (domain.ProviderPayload, error) {
	h, err := c.Submit(ctx, path)
	if err != nil {
		return nil, err
	}
	return polling.Await(ctx, c, h, o.policies[c.Name()])
}
