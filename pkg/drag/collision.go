package drag

import (
	"math"
	"sort"
)

// Point is a pointer coordinate in layout space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies strictly inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Center returns the rect's centroid.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// TargetKind classifies a candidate drop target.
type TargetKind string

const (
	// TargetItem is an insertion slot adjacent to an existing item.
	TargetItem TargetKind = "item"
	// TargetContainer is a whole section or the unsectioned bucket; dropping
	// on it resolves to "insert at end", which makes empty sections usable.
	TargetContainer TargetKind = "container"
	// TargetSection is a slot in the section ordering itself.
	TargetSection TargetKind = "section"
)

// Target is a candidate drop location, described by the geometry of the
// current live layout.
type Target struct {
	Kind      TargetKind
	ID        string // item, section, or container ID
	Container string // owning container; for container targets, equal to ID
	Index     int    // insertion index this target resolves to
	Bounds    Rect
}

// Mode selects which family of targets a gesture may resolve to.
type Mode string

const (
	// ModeItem drags an item between and within containers.
	ModeItem Mode = "item"
	// ModeSection reorders sections relative to each other.
	ModeSection Mode = "section"
)

// Resolve picks the drop target for a pointer position. It is a pure function
// of the position and the current live layout, deterministic regardless of
// drag history. Candidates are ranked by priority, not nearest-pixel match:
//
//  1. A section drag only ever resolves to section targets, no matter how
//     close the pointer is to item-level targets underneath.
//  2. Item targets whose bounds strictly contain the pointer beat everything
//     resolved by centroid distance.
//  3. Container targets containing the pointer catch drops into the empty
//     space of a section, resolving to insert-at-end instead of a no-op.
//  4. Nearest centroid over the remaining candidates, as a last resort.
//
// The second result is false when no target matches at all.
func Resolve(p Point, targets []Target, mode Mode) (Target, bool) {
	candidates := make([]Target, 0, len(targets))
	for _, t := range targets {
		if mode == ModeSection {
			if t.Kind == TargetSection {
				candidates = append(candidates, t)
			}
			continue
		}
		if t.Kind != TargetSection {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return Target{}, false
	}

	if mode == ModeSection {
		if t, ok := pick(p, containing(p, candidates)); ok {
			return t, true
		}
		return pick(p, candidates)
	}

	var items, containers []Target
	for _, t := range candidates {
		if t.Kind == TargetItem {
			items = append(items, t)
		} else {
			containers = append(containers, t)
		}
	}

	if t, ok := pick(p, containing(p, items)); ok {
		return t, true
	}
	if t, ok := pick(p, containing(p, containers)); ok {
		return t, true
	}
	return pick(p, candidates)
}

func containing(p Point, targets []Target) []Target {
	var hit []Target
	for _, t := range targets {
		if t.Bounds.Contains(p) {
			hit = append(hit, t)
		}
	}
	return hit
}

// pick returns the candidate whose centroid is nearest to p, ties broken by
// ID so the result is stable for identical geometry.
func pick(p Point, targets []Target) (Target, bool) {
	if len(targets) == 0 {
		return Target{}, false
	}
	sorted := make([]Target, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		di := distance(p, sorted[i].Bounds.Center())
		dj := distance(p, sorted[j].Bounds.Center())
		if di != dj {
			return di < dj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0], true
}
