// Package file provides a layout gateway backed by a single JSON document on
// disk. The file is the integration point for external tooling (scripts,
// provisioning): a Watch-enabled gateway notices outside edits and surfaces
// them as layout events.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/incari/dashgrid/pkg/domain"
)

// Gateway implements ports.Gateway over a JSON file.
type Gateway struct {
	path string
	mu   sync.Mutex
}

// New creates a file gateway. If path is empty it defaults to
// ".dashgrid/layout.json".
func New(path string) *Gateway {
	if path == "" {
		path = filepath.Join(".dashgrid", "layout.json")
	}
	return &Gateway{path: path}
}

// Path returns the backing file path.
func (g *Gateway) Path() string {
	return g.path
}

// SeedLayout writes a full layout to disk.
func (g *Gateway) SeedLayout(ctx context.Context, layout *domain.Layout) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.save(layout)
}

// BatchReposition applies the triples and rewrites the file atomically
// (write to a temp file, then rename).
func (g *Gateway) BatchReposition(ctx context.Context, placements []domain.ItemPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	layout, err := g.load()
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
	return g.save(layout)
}

// ReorderSections applies the section positions.
func (g *Gateway) ReorderSections(ctx context.Context, placements []domain.SectionPlacement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	layout, err := g.load()
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
	return g.save(layout)
}

// FetchCanonicalLayout reads the layout file.
func (g *Gateway) FetchCanonicalLayout(ctx context.Context) (*domain.Layout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.load()
}

func (g *Gateway) load() (*domain.Layout, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrLayoutNotFound
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	var layout domain.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout file: %w", err)
	}
	return &layout, nil
}

func (g *Gateway) save(layout *domain.Layout) error {
	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return fmt.Errorf("failed to ensure layout directory: %w", err)
	}
	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("failed to replace layout file: %w", err)
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
