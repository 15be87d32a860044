package drag

import (
	"github.com/incari/dashgrid/pkg/domain"
)

// liveView is the ephemeral, render-only reordering maintained while a drag
// is active. It is seeded from a canonical snapshot when the dragged entity
// is lifted and discarded on drop or cancel; it never touches the
// PlacementStore.
type liveView struct {
	order    map[string][]string // container ID -> ordered item IDs
	items    map[string]domain.Item
	sections []string // ordered section IDs (section mode)
	secByID  map[string]domain.Section
}

func newLiveView(base domain.Layout) *liveView {
	v := &liveView{
		order:   make(map[string][]string),
		items:   make(map[string]domain.Item, len(base.Items)),
		secByID: make(map[string]domain.Section, len(base.Sections)),
	}
	// base.Items arrive (container, position)-ordered from Store.Snapshot.
	for _, it := range base.Items {
		v.items[it.ID] = it
		v.order[it.Container] = append(v.order[it.Container], it.ID)
	}
	if _, ok := v.order[domain.Unsectioned]; !ok {
		v.order[domain.Unsectioned] = nil
	}
	for _, sec := range base.Sections {
		v.secByID[sec.ID] = sec
		v.sections = append(v.sections, sec.ID)
		if _, ok := v.order[sec.ID]; !ok {
			v.order[sec.ID] = nil
		}
	}
	return v
}

// moveItem splices an item into container at idx. Repeating the call with the
// same inputs yields the same ordering.
func (v *liveView) moveItem(itemID, container string, idx int) {
	it, ok := v.items[itemID]
	if !ok {
		return
	}
	from := it.Container
	v.order[from] = removeID(v.order[from], itemID)

	dst := v.order[container]
	if idx < 0 || idx > len(dst) {
		idx = len(dst)
	}
	v.order[container] = spliceID(dst, itemID, idx)

	it.Container = container
	v.items[itemID] = it
}

// moveSection splices a section to idx in the section ordering.
func (v *liveView) moveSection(sectionID string, idx int) {
	if _, ok := v.secByID[sectionID]; !ok {
		return
	}
	rest := removeID(v.sections, sectionID)
	if idx < 0 || idx > len(rest) {
		idx = len(rest)
	}
	v.sections = spliceID(rest, sectionID, idx)
}

// container returns the items of one container with settled display indices.
func (v *liveView) container(containerID string) []domain.Item {
	ids := v.order[containerID]
	items := make([]domain.Item, 0, len(ids))
	for i, id := range ids {
		it := v.items[id]
		it.Container = containerID
		it.Position = i
		items = append(items, it)
	}
	return items
}

// indexOf returns the display index of an item in its current container.
func (v *liveView) indexOf(itemID string) (container string, idx int, ok bool) {
	it, found := v.items[itemID]
	if !found {
		return "", 0, false
	}
	for i, id := range v.order[it.Container] {
		if id == itemID {
			return it.Container, i, true
		}
	}
	return "", 0, false
}

// itemDiff returns the settled placements that differ from the base layout:
// the moved item plus every sibling whose index shifted. An unchanged view
// yields an empty diff.
func (v *liveView) itemDiff(base domain.Layout) []domain.ItemPlacement {
	orig := make(map[string]domain.ItemPlacement, len(base.Items))
	for _, it := range base.Items {
		orig[it.ID] = domain.ItemPlacement{ItemID: it.ID, Container: it.Container, Position: it.Position}
	}

	var diff []domain.ItemPlacement
	for _, containerID := range v.containerIDs() {
		for i, id := range v.order[containerID] {
			settled := domain.ItemPlacement{ItemID: id, Container: containerID, Position: i}
			if orig[id] != settled {
				diff = append(diff, settled)
			}
		}
	}
	return diff
}

// sectionDiff returns settled section placements differing from the base.
func (v *liveView) sectionDiff(base domain.Layout) []domain.SectionPlacement {
	orig := make(map[string]int, len(base.Sections))
	for _, sec := range base.Sections {
		orig[sec.ID] = sec.Position
	}

	var diff []domain.SectionPlacement
	for i, id := range v.sections {
		if orig[id] != i {
			diff = append(diff, domain.SectionPlacement{SectionID: id, Position: i})
		}
	}
	return diff
}

func (v *liveView) containerIDs() []string {
	ids := []string{domain.Unsectioned}
	for _, id := range v.sections {
		ids = append(ids, id)
	}
	seen := map[string]bool{domain.Unsectioned: true}
	for _, id := range ids {
		seen[id] = true
	}
	for id := range v.order {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	return ids
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func spliceID(ids []string, id string, idx int) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:idx]...)
	out = append(out, id)
	out = append(out, ids[idx:]...)
	return out
}
