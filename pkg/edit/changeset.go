package edit

import (
	"sort"

	"github.com/incari/dashgrid/pkg/domain"
)

// PendingChangeSet buffers placement intents accumulated during one edit
// session. It is keyed by item ID so repeated moves of the same item collapse
// to its final placement: last write wins per item, not an append log.
type PendingChangeSet struct {
	changes map[string]domain.ItemPlacement
}

// NewPendingChangeSet returns an empty set.
func NewPendingChangeSet() *PendingChangeSet {
	return &PendingChangeSet{changes: make(map[string]domain.ItemPlacement)}
}

// Set records a placement intent, superseding any prior entry for the item.
func (c *PendingChangeSet) Set(p domain.ItemPlacement) {
	c.changes[p.ItemID] = p
}

// Get returns the buffered placement for an item, if any.
func (c *PendingChangeSet) Get(itemID string) (domain.ItemPlacement, bool) {
	p, ok := c.changes[itemID]
	return p, ok
}

// Len returns the number of buffered items.
func (c *PendingChangeSet) Len() int {
	return len(c.changes)
}

// Empty reports whether nothing has been recorded.
func (c *PendingChangeSet) Empty() bool {
	return len(c.changes) == 0
}

// Changes returns the buffered placements as explicit triples in a
// deterministic order (container, then position, then item ID), so a flush
// batch is reproducible for a given set.
func (c *PendingChangeSet) Changes() []domain.ItemPlacement {
	out := make([]domain.ItemPlacement, 0, len(c.changes))
	for _, p := range c.changes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Container != out[j].Container {
			return out[i].Container < out[j].Container
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}
