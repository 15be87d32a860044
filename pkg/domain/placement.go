package domain

// Unsectioned is the container ID of the implicit bucket that holds every
// item not assigned to a section.
const Unsectioned = ""

// Item is a placeable dashboard shortcut.
//
// Container refers to the owning Section ID, or Unsectioned. Position is a
// zero-based index meaningful only relative to other items sharing the same
// container. The remaining fields are opaque payload owned by other
// subsystems; placement code carries them through persistence untouched.
type Item struct {
	ID        string `json:"id"`
	Container string `json:"container,omitempty"`
	Position  int    `json:"position"`

	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
}

// Section is a named, user-ordered group of items.
// Collapsed is display state only; it never affects placement semantics.
type Section struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Position  int    `json:"position"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

// Layout is the canonical placement snapshot exchanged with gateways.
type Layout struct {
	Items    []Item    `json:"items"`
	Sections []Section `json:"sections"`
}

// ItemPlacement is the wire triple for a single item reposition.
type ItemPlacement struct {
	ItemID    string `json:"itemId"`
	Container string `json:"container,omitempty"`
	Position  int    `json:"position"`
}

// SectionPlacement is the wire pair for a single section reposition.
type SectionPlacement struct {
	SectionID string `json:"sectionId"`
	Position  int    `json:"position"`
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	c := Layout{
		Items:    make([]Item, len(l.Items)),
		Sections: make([]Section, len(l.Sections)),
	}
	copy(c.Items, l.Items)
	copy(c.Sections, l.Sections)
	return c
}
