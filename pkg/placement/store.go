package placement

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
)

// Store holds the canonical, server-confirmed placement of every item and
// section. It is mutated only by the reconciliation engine (optimistic apply,
// canonical replace) and by out-of-band CRUD intake; drag sessions work on
// ephemeral live views and never write here.
type Store struct {
	mu       sync.RWMutex
	items    map[string]domain.Item
	sections map[string]domain.Section
	logger   *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for defensive invariant reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		items:    make(map[string]domain.Item),
		sections: make(map[string]domain.Section),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace swaps the entire store contents for the given canonical layout.
// This is the resync path: no merging, the server wins wholesale.
func (s *Store) Replace(layout domain.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.Item, len(layout.Items))
	for _, it := range layout.Items {
		s.items[it.ID] = it
	}
	s.sections = make(map[string]domain.Section, len(layout.Sections))
	for _, sec := range layout.Sections {
		s.sections[sec.ID] = sec
	}
}

// Snapshot returns a deep copy of the current layout, items ordered by
// (container, position) and sections by position.
func (s *Store) Snapshot() domain.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layout := domain.Layout{
		Items:    make([]domain.Item, 0, len(s.items)),
		Sections: make([]domain.Section, 0, len(s.sections)),
	}
	for _, it := range s.items {
		layout.Items = append(layout.Items, it)
	}
	for _, sec := range s.sections {
		layout.Sections = append(layout.Sections, sec)
	}
	sort.Slice(layout.Items, func(i, j int) bool {
		a, b := layout.Items[i], layout.Items[j]
		if a.Container != b.Container {
			return a.Container < b.Container
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	sort.Slice(layout.Sections, func(i, j int) bool {
		a, b := layout.Sections[i], layout.Sections[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return layout
}

// Item returns the item with the given ID.
func (s *Store) Item(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

// Container returns the items of one container ordered by position.
// Use domain.Unsectioned for the unsectioned bucket.
func (s *Store) Container(containerID string) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containerLocked(containerID)
}

func (s *Store) containerLocked(containerID string) []domain.Item {
	var items []domain.Item
	for _, it := range s.items {
		if it.Container == containerID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Sections returns all sections ordered by position.
func (s *Store) Sections() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sections := make([]domain.Section, 0, len(s.sections))
	for _, sec := range s.sections {
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].Position != sections[j].Position {
			return sections[i].Position < sections[j].Position
		}
		return sections[i].ID < sections[j].ID
	})
	return sections
}

// Apply assigns the given placements to the store. Every referenced item must
// exist; on an unknown ID nothing is applied. Each move is a single atomic
// reassignment of container and position, never a delete+create.
func (s *Store) Apply(placements []domain.ItemPlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range placements {
		if _, ok := s.items[p.ItemID]; !ok {
			return fmt.Errorf("apply %s: %w", p.ItemID, domain.ErrUnknownItem)
		}
	}
	for _, p := range placements {
		it := s.items[p.ItemID]
		it.Container = p.Container
		it.Position = p.Position
		s.items[p.ItemID] = it
	}
	return nil
}

// ApplySections assigns the given section positions. Every referenced section
// must exist; on an unknown ID nothing is applied.
func (s *Store) ApplySections(placements []domain.SectionPlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range placements {
		if _, ok := s.sections[p.SectionID]; !ok {
			return fmt.Errorf("apply %s: %w", p.SectionID, domain.ErrUnknownSection)
		}
	}
	for _, p := range placements {
		sec := s.sections[p.SectionID]
		sec.Position = p.Position
		s.sections[p.SectionID] = sec
	}
	return nil
}

// UpsertItem inserts or updates an item from an out-of-band CRUD event.
// The item lands in its container at the requested position (clamped); both
// the target container and, on a move, the former container are compacted so
// positions stay dense.
func (s *Store) UpsertItem(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.items[item.ID]

	siblings := s.containerLocked(item.Container)
	if existed {
		siblings = removeByID(siblings, item.ID)
	}
	idx := item.Position
	if idx < 0 || idx > len(siblings) {
		idx = len(siblings)
	}

	s.items[item.ID] = item
	s.resettleLocked(item.Container, spliceIn(siblings, item, idx))

	if existed && prev.Container != item.Container {
		s.compactLocked(prev.Container)
	}
}

// RemoveItem deletes an item and compacts its former container.
func (s *Store) RemoveItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, domain.ErrUnknownItem)
	}
	delete(s.items, id)
	s.compactLocked(it.Container)
	return nil
}

// UpsertSection inserts or updates a section. Section positions are an
// independent collection and are not re-densified here.
func (s *Store) UpsertSection(section domain.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[section.ID] = section
}

// RemoveSection deletes a section. Its items are appended to the unsectioned
// bucket in their relative order, so no item is orphaned into a container
// that no longer exists.
func (s *Store) RemoveSection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sections[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, domain.ErrUnknownSection)
	}
	delete(s.sections, id)

	orphans := s.containerLocked(id)
	base := len(s.containerLocked(domain.Unsectioned))
	for i, it := range orphans {
		it.Container = domain.Unsectioned
		it.Position = base + i
		s.items[it.ID] = it
	}
	return nil
}

// Validate checks that every container's positions form a dense zero-based
// sequence. A violation is a bug signal: the caller should log it and force a
// canonical resync rather than attempt a local heal.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.containerIDsLocked() {
		items := s.containerLocked(id)
		seen := make(map[int]string, len(items))
		for _, it := range items {
			if other, dup := seen[it.Position]; dup {
				s.logger.Error("duplicate position detected",
					"container", id, "position", it.Position, "items", []string{other, it.ID})
				return fmt.Errorf("container %q position %d held by %s and %s: %w",
					id, it.Position, other, it.ID, domain.ErrDuplicatePosition)
			}
			seen[it.Position] = it.ID
		}
		for i, it := range items {
			if it.Position != i {
				return fmt.Errorf("container %q: positions not dense at index %d (item %s has %d)",
					id, i, it.ID, it.Position)
			}
		}
	}
	return nil
}

func (s *Store) containerIDsLocked() []string {
	seen := map[string]bool{domain.Unsectioned: true}
	ids := []string{domain.Unsectioned}
	for _, sec := range s.sections {
		if !seen[sec.ID] {
			seen[sec.ID] = true
			ids = append(ids, sec.ID)
		}
	}
	// Items may reference a container whose section record arrived late.
	for _, it := range s.items {
		if !seen[it.Container] {
			seen[it.Container] = true
			ids = append(ids, it.Container)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) compactLocked(containerID string) {
	s.resettleLocked(containerID, s.containerLocked(containerID))
}

func (s *Store) resettleLocked(containerID string, ordered []domain.Item) {
	for i, it := range ordered {
		it.Container = containerID
		it.Position = i
		s.items[it.ID] = it
	}
}

func removeByID(items []domain.Item, id string) []domain.Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func spliceIn(items []domain.Item, item domain.Item, idx int) []domain.Item {
	out := make([]domain.Item, 0, len(items)+1)
	out = append(out, items[:idx]...)
	out = append(out, item)
	out = append(out, items[idx:]...)
	return out
}
