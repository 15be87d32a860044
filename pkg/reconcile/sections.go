package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/incari/dashgrid/pkg/domain"
)

// SectionOrderController is the section-ordering instance of the
// reconciliation pattern. It is structurally identical to the item path but
// deliberately simpler in commit timing: every settled section reorder is
// committed immediately rather than buffered until edit mode ends. Sections
// are reordered rarely, so the coarser policy is acceptable; the asymmetry
// with item moves is intentional.
type SectionOrderController struct {
	mu     sync.Mutex
	engine *Engine
}

// NewSectionOrderController creates a controller sharing the engine's store
// and gateway.
func NewSectionOrderController(engine *Engine) *SectionOrderController {
	return &SectionOrderController{engine: engine}
}

// Commit applies settled section placements optimistically and persists them
// as one batch. On rejection the store is replaced wholesale from the
// canonical layout, mirroring the item flush policy. Reordering sections
// never touches any item's container or position.
func (c *SectionOrderController) Commit(ctx context.Context, placements []domain.SectionPlacement) error {
	if len(placements) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.engine
	if err := e.store.ApplySections(placements); err != nil {
		e.logger.Error("optimistic section apply failed, resyncing", "err", err)
		if rerr := e.Resync(ctx); rerr != nil {
			return fmt.Errorf("resync after section apply failure: %w", rerr)
		}
		return nil
	}

	if err := e.gateway.ReorderSections(ctx, placements); err != nil {
		if e.metrics != nil {
			e.metrics.SectionCommits.WithLabelValues("failure").Inc()
		}
		e.logger.Warn("section reorder rejected, resyncing", "sections", len(placements), "err", err)
		if rerr := e.Resync(ctx); rerr != nil {
			return fmt.Errorf("resync after rejected section reorder: %w", rerr)
		}
		return nil
	}

	if e.metrics != nil {
		e.metrics.SectionCommits.WithLabelValues("success").Inc()
	}
	e.logger.Debug("section order committed", "sections", len(placements))
	return nil
}
