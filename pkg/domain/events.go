package domain

import "time"

// LayoutEventType defines the category of an out-of-band layout change.
type LayoutEventType string

const (
	EventItemUpserted    LayoutEventType = "item_upserted"
	EventItemRemoved     LayoutEventType = "item_removed"
	EventSectionUpserted LayoutEventType = "section_upserted"
	EventSectionRemoved  LayoutEventType = "section_removed"
	// EventLayoutReplaced signals an external rewrite of the whole layout,
	// e.g. the backing file changed on disk. The receiver should refetch.
	EventLayoutReplaced LayoutEventType = "layout_replaced"
)

// LayoutEvent is a CRUD notification produced outside the reconciliation
// engine (shortcut created, section deleted, backing store rewritten).
// The engine absorbs these as out-of-band PlacementStore updates.
type LayoutEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      LayoutEventType `json:"type"`
	Item      *Item           `json:"item,omitempty"`
	Section   *Section        `json:"section,omitempty"`
}
