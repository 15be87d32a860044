package ports

import (
	"context"

	"github.com/incari/dashgrid/pkg/domain"
)

// Gateway defines the interface for persisting layout placements.
// The reconciliation engine treats every rejection uniformly, whether caused
// by timeout, validation, or connectivity loss; timeouts are the adapter's
// concern via ctx.
type Gateway interface {
	// BatchReposition persists a set of item placements as one atomic batch.
	// Either every triple is applied or none is.
	BatchReposition(ctx context.Context, placements []domain.ItemPlacement) error

	// ReorderSections persists the ordering of sections.
	ReorderSections(ctx context.Context, placements []domain.SectionPlacement) error

	// FetchCanonicalLayout returns the server-confirmed layout, used for the
	// initial load and for post-failure resync.
	// Returns domain.ErrLayoutNotFound if nothing has been persisted yet.
	FetchCanonicalLayout(ctx context.Context) (*domain.Layout, error)
}

// Seeder is implemented by gateways that can be primed with a full layout,
// used at first run and by tests.
type Seeder interface {
	SeedLayout(ctx context.Context, layout *domain.Layout) error
}

// Watcher is implemented by gateways that can observe out-of-band mutation of
// their backing store (e.g. a layout file edited on disk). Events carry CRUD
// notifications the serve loop applies to the PlacementStore.
type Watcher interface {
	// Watch delivers layout events until ctx is cancelled. The channel is
	// closed when watching stops.
	Watch(ctx context.Context) (<-chan domain.LayoutEvent, error)
}
