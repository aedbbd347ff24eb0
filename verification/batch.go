// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOptions bounds a batch run.
type BatchOptions struct {
	// Workers is the number of concurrent confirmations.
	Workers int
	// Rate is the request budget in requests per second; zero disables it.
	Rate float64
	// OnDone is called once per form as soon as its outcome is known.
	// Calls may come from several goroutines.
	OnDone func(i int, out *Outcome)
}

// VerifyBatch confirms every form. Outcomes keep the input order. Forms
// with missing fields do not consume the request budget.
func (v *Verifier) VerifyBatch(ctx context.Context, forms []AddressFormData, opts BatchOptions) ([]*Outcome, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	outcomes := make([]*Outcome, len(forms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, form := range forms {
		g.Go(func() error {
			if limiter != nil && CanConfirm(form) {
				if err := limiter.Wait(gctx); err != nil {
					return fmt.Errorf("form %d: %w", i, err)
				}
			}

			out := v.Verify(gctx, form)
			outcomes[i] = out

			if opts.OnDone != nil {
				opts.OnDone(i, out)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	return outcomes, nil
}
