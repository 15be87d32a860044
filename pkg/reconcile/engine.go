package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/incari/dashgrid/internal/logging"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/observability"
	"github.com/incari/dashgrid/pkg/placement"
	"github.com/incari/dashgrid/pkg/ports"
)

// Engine reconciles buffered placement changes with the persistence gateway.
//
// The policy is optimistic-update with wholesale resync on failure: the local
// store is updated before the batch is sent, and any gateway rejection
// (timeout, validation, connectivity, all treated uniformly) discards the
// optimistic state by replacing the store with a fresh canonical fetch. There
// is no field-level rollback and no retry of a rejected batch: the server's
// canonical state always beats an unconfirmed local mutation.
type Engine struct {
	store   *placement.Store
	gateway ports.Gateway
	logger  *slog.Logger
	metrics *observability.Metrics

	inFlight atomic.Bool
	sf       singleflight.Group
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine over the canonical store and a gateway.
func NewEngine(store *placement.Store, gateway ports.Gateway, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		gateway: gateway,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the canonical placement store.
func (e *Engine) Store() *placement.Store {
	return e.store
}

// Snapshot returns a deep copy of the canonical layout.
func (e *Engine) Snapshot() domain.Layout {
	return e.store.Snapshot()
}

// InFlight reports whether a flush (including its failure resync) is still
// resolving. Edit sessions gate on this so two canonical-replacement
// operations never race each other.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// Load performs the initial canonical fetch into the store.
func (e *Engine) Load(ctx context.Context) error {
	return e.Resync(ctx)
}

// Flush sends one edit session's net placement changes to the gateway as a
// single batch. The store is updated optimistically first, so the UI never
// waits on the network for its own already-confirmed feedback. An empty batch
// is a no-op.
func (e *Engine) Flush(ctx context.Context, placements []domain.ItemPlacement) error {
	if len(placements) == 0 {
		return nil
	}

	e.inFlight.Store(true)
	defer e.inFlight.Store(false)

	if e.metrics != nil {
		e.metrics.FlushBatchSize.Observe(float64(len(placements)))
	}

	if err := e.store.Apply(placements); err != nil {
		// Local state references items the store no longer knows. A bug
		// signal: do not heal locally, take the canonical state instead.
		e.logger.Error("optimistic apply failed, resyncing", "err", err)
		if rerr := e.Resync(ctx); rerr != nil {
			return fmt.Errorf("resync after apply failure: %w", rerr)
		}
		return nil
	}

	if err := e.gateway.BatchReposition(ctx, placements); err != nil {
		if e.metrics != nil {
			e.metrics.FlushTotal.WithLabelValues("failure").Inc()
		}
		// Silent-but-logged recovery: the user's layout stays locally
		// coherent until the canonical replacement lands.
		e.logger.Warn("flush rejected, resyncing from canonical layout",
			"changes", len(placements), "err", err)
		if rerr := e.Resync(ctx); rerr != nil {
			return fmt.Errorf("resync after rejected flush: %w", rerr)
		}
		return nil
	}

	if e.metrics != nil {
		e.metrics.FlushTotal.WithLabelValues("success").Inc()
	}
	e.logger.Debug("flush committed", "changes", len(placements))
	return nil
}

// Resync replaces the store wholesale with the gateway's canonical layout.
// Concurrent callers collapse into a single fetch.
func (e *Engine) Resync(ctx context.Context) error {
	_, err, _ := e.sf.Do("canonical-layout", func() (any, error) {
		layout, err := e.gateway.FetchCanonicalLayout(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch canonical layout: %w", err)
		}
		e.store.Replace(*layout)
		if e.metrics != nil {
			e.metrics.ResyncTotal.Inc()
		}
		return nil, nil
	})
	return err
}

// Verify runs the store's invariant checks and forces a canonical resync on
// any violation. Duplicate positions are never healed locally.
func (e *Engine) Verify(ctx context.Context) error {
	if err := e.store.Validate(); err != nil {
		e.logger.Error("placement invariant violated, resyncing", "err", err)
		if rerr := e.Resync(ctx); rerr != nil {
			return fmt.Errorf("resync after invariant violation: %w", rerr)
		}
	}
	return nil
}
