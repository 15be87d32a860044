// Package memory provides an in-memory layout gateway. It backs tests and
// the default zero-configuration serve mode, and supports per-call failure
// injection so the engine's resync paths can be exercised.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/incari/dashgrid/pkg/domain"
)

// Gateway implements ports.Gateway over process memory.
type Gateway struct {
	mu     sync.Mutex
	layout *domain.Layout

	batchErr   error
	reorderErr error
	fetchErr   error
}

// New creates an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{}
}

// SeedLayout primes the gateway with a full layout.
func (g *Gateway) SeedLayout(ctx context.Context, layout *domain.Layout) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	l := layout.Clone()
	g.layout = &l
	return nil
}

// FailBatch makes subsequent BatchReposition calls return err. Pass nil to
// restore normal behavior.
func (g *Gateway) FailBatch(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batchErr = err
}

// FailReorder makes subsequent ReorderSections calls return err.
func (g *Gateway) FailReorder(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reorderErr = err
}

// FailFetch makes subsequent FetchCanonicalLayout calls return err.
func (g *Gateway) FailFetch(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchErr = err
}

// BatchReposition applies the triples atomically and re-densifies every
// container, the way a real backend recomputes positions on write.
func (g *Gateway) BatchReposition(ctx context.Context, placements []domain.ItemPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.batchErr != nil {
		return g.batchErr
	}
	if g.layout == nil {
		return domain.ErrLayoutNotFound
	}

	idx := make(map[string]int, len(g.layout.Items))
	for i, it := range g.layout.Items {
		idx[it.ID] = i
	}
	for _, p := range placements {
		if _, ok := idx[p.ItemID]; !ok {
			return fmt.Errorf("reposition %s: %w", p.ItemID, domain.ErrUnknownItem)
		}
	}
	for _, p := range placements {
		it := &g.layout.Items[idx[p.ItemID]]
		it.Container = p.Container
		it.Position = p.Position
	}
	densify(g.layout)
	return nil
}

// ReorderSections applies the section positions atomically.
func (g *Gateway) ReorderSections(ctx context.Context, placements []domain.SectionPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reorderErr != nil {
		return g.reorderErr
	}
	if g.layout == nil {
		return domain.ErrLayoutNotFound
	}

	idx := make(map[string]int, len(g.layout.Sections))
	for i, sec := range g.layout.Sections {
		idx[sec.ID] = i
	}
	for _, p := range placements {
		if _, ok := idx[p.SectionID]; !ok {
			return fmt.Errorf("reorder %s: %w", p.SectionID, domain.ErrUnknownSection)
		}
	}
	for _, p := range placements {
		g.layout.Sections[idx[p.SectionID]].Position = p.Position
	}
	return nil
}

// FetchCanonicalLayout returns a copy of the stored layout.
func (g *Gateway) FetchCanonicalLayout(ctx context.Context) (*domain.Layout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	if g.layout == nil {
		return nil, domain.ErrLayoutNotFound
	}
	l := g.layout.Clone()
	return &l, nil
}

// densify rewrites every container's positions to a dense zero-based
// sequence, preserving relative order.
func densify(layout *domain.Layout) {
	byContainer := make(map[string][]*domain.Item)
	for i := range layout.Items {
		it := &layout.Items[i]
		byContainer[it.Container] = append(byContainer[it.Container], it)
	}
	for _, items := range byContainer {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Position != items[j].Position {
				return items[i].Position < items[j].Position
			}
			return items[i].ID < items[j].ID
		})
		for i, it := range items {
			it.Position = i
		}
	}
}
