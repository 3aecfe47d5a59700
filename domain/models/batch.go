package models

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FetchFunc produces one partial aggregate, typically a filtered view
// returned by a domain fetch.
type FetchFunc func(ctx context.Context) (*Aggregate, error)

type pendingFetch struct {
	name  string
	fetch FetchFunc
}

// Batch collects fetches to be run together and merged in registration
// order once all of them completed.
type Batch struct {
	pending []pendingFetch
}

// Add registers a fetch under a name used in error messages.
func (b *Batch) Add(name string, fetch FetchFunc) {
	if fetch == nil {
		return
	}
	b.pending = append(b.pending, pendingFetch{name: name, fetch: fetch})
}

// Len returns the number of registered fetches.
func (b *Batch) Len() int {
	return len(b.pending)
}

// Resolve runs every registered fetch concurrently and merges the results
// into dst in registration order. When any fetch fails the shared context
// is cancelled, nothing is merged and the first error is returned. The
// batch is empty afterwards.
func (b *Batch) Resolve(ctx context.Context, dst *Aggregate) error {
	pending := b.pending
	b.pending = nil

	results := make([]*Aggregate, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pending {
		g.Go(func() error {
			res, err := p.fetch(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		if err := dst.Merge(res); err != nil {
			return fmt.Errorf("merge %s: %w", pending[i].name, err)
		}
	}
	return nil
}
