// Package redis provides a layout gateway backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	backend "github.com/redis/go-redis/v9"

	"github.com/incari/dashgrid/pkg/domain"
)

// Gateway implements ports.Gateway using Redis. Items and sections are
// stored as two JSON documents under a configurable key prefix and written
// together in one pipeline, so a reader never observes a half-applied batch.
type Gateway struct {
	client *backend.Client
	prefix string

	mu sync.Mutex // serializes read-modify-write cycles
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithPrefix sets the key prefix for layout documents.
func WithPrefix(prefix string) Option {
	return func(g *Gateway) {
		g.prefix = prefix
	}
}

// NewFromClient creates a Redis gateway from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		prefix: "dashgrid:layout:",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) itemsKey() string    { return g.prefix + "items" }
func (g *Gateway) sectionsKey() string { return g.prefix + "sections" }

// SeedLayout primes Redis with a full layout.
func (g *Gateway) SeedLayout(ctx context.Context, layout *domain.Layout) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.save(ctx, layout)
}

// BatchReposition applies the triples to the stored layout atomically.
func (g *Gateway) BatchReposition(ctx context.Context, placements []domain.ItemPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	layout, err := g.load(ctx)
	if err != nil {
		return err
	}

	idx := make(map[string]int, len(layout.Items))
	for i, it := range layout.Items {
		idx[it.ID] = i
	}
	for _, p := range placements {
		if _, ok := idx[p.ItemID]; !ok {
			return fmt.Errorf("reposition %s: %w", p.ItemID, domain.ErrUnknownItem)
		}
	}
	for _, p := range placements {
		it := &layout.Items[idx[p.ItemID]]
		it.Container = p.Container
		it.Position = p.Position
	}
	densify(layout)
	return g.save(ctx, layout)
}

// ReorderSections applies the section positions atomically.
func (g *Gateway) ReorderSections(ctx context.Context, placements []domain.SectionPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	layout, err := g.load(ctx)
	if err != nil {
		return err
	}

	idx := make(map[string]int, len(layout.Sections))
	for i, sec := range layout.Sections {
		idx[sec.ID] = i
	}
	for _, p := range placements {
		if _, ok := idx[p.SectionID]; !ok {
			return fmt.Errorf("reorder %s: %w", p.SectionID, domain.ErrUnknownSection)
		}
	}
	for _, p := range placements {
		layout.Sections[idx[p.SectionID]].Position = p.Position
	}
	return g.save(ctx, layout)
}

// FetchCanonicalLayout loads the layout from Redis.
func (g *Gateway) FetchCanonicalLayout(ctx context.Context) (*domain.Layout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load(ctx)
}

func (g *Gateway) load(ctx context.Context) (*domain.Layout, error) {
	vals, err := g.client.MGet(ctx, g.itemsKey(), g.sectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}
	if vals[0] == nil && vals[1] == nil {
		return nil, domain.ErrLayoutNotFound
	}

	layout := &domain.Layout{}
	if raw, ok := vals[0].(string); ok {
		if err := json.Unmarshal([]byte(raw), &layout.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	if raw, ok := vals[1].(string); ok {
		if err := json.Unmarshal([]byte(raw), &layout.Sections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
		}
	}
	return layout, nil
}

func (g *Gateway) save(ctx context.Context, layout *domain.Layout) error {
	items, err := json.Marshal(layout.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	sections, err := json.Marshal(layout.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	pipe := g.client.TxPipeline()
	pipe.Set(ctx, g.itemsKey(), items, 0)
	pipe.Set(ctx, g.sectionsKey(), sections, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}
	return nil
}

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
