package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/memory"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/placement"
	"github.com/incari/dashgrid/pkg/ports"
	"github.com/incari/dashgrid/pkg/reconcile"
)

func newEngine(t *testing.T) (*reconcile.Engine, *memory.Gateway) {
	t.Helper()
	gw := memory.New()
	require.NoError(t, gw.SeedLayout(context.Background(), ports.ContractLayout()))

	engine := reconcile.NewEngine(placement.New(), gw)
	require.NoError(t, engine.Load(context.Background()))
	return engine, gw
}

func positions(l domain.Layout, container string) map[string]int {
	out := map[string]int{}
	for _, it := range l.Items {
		if it.Container == container {
			out[it.ID] = it.Position
		}
	}
	return out
}

func TestEngine_LoadPopulatesStore(t *testing.T) {
	engine, _ := newEngine(t)

	snap := engine.Snapshot()
	assert.Len(t, snap.Items, 4)
	assert.Len(t, snap.Sections, 2)
}

func TestEngine_LoadMissingLayout(t *testing.T) {
	engine := reconcile.NewEngine(placement.New(), memory.New())
	err := engine.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
}

func TestEngine_FlushCommitsBatch(t *testing.T) {
	engine, gw := newEngine(t)

	err := engine.Flush(context.Background(), []domain.ItemPlacement{
		{ItemID: "it-d", Container: "sec-1", Position: 0},
		{ItemID: "it-a", Container: "sec-1", Position: 1},
		{ItemID: "it-b", Container: "sec-1", Position: 2},
	})
	require.NoError(t, err)

	// Locally applied.
	assert.Equal(t, map[string]int{"it-d": 0, "it-a": 1, "it-b": 2},
		positions(engine.Snapshot(), "sec-1"))

	// Persisted.
	canonical, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"it-d": 0, "it-a": 1, "it-b": 2},
		positions(*canonical, "sec-1"))

	// Every container is dense zero-based after a cross-container move.
	require.NoError(t, engine.Store().Validate())
}

func TestEngine_FlushEmptyBatchIsNoOp(t *testing.T) {
	engine, gw := newEngine(t)
	before := engine.Snapshot()

	gw.FailBatch(errors.New("must not be called"))
	require.NoError(t, engine.Flush(context.Background(), nil))
	assert.Equal(t, before, engine.Snapshot())
}

func TestEngine_FlushRejectionResyncs(t *testing.T) {
	engine, gw := newEngine(t)
	gw.FailBatch(errors.New("server error"))

	err := engine.Flush(context.Background(), []domain.ItemPlacement{
		{ItemID: "it-a", Container: "sec-2", Position: 0},
	})
	require.NoError(t, err, "a rejected flush recovers silently")

	// The optimistic move is gone: the store equals the canonical layout.
	gw.FailBatch(nil)
	canonical, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	snap := engine.Snapshot()
	assert.Equal(t, positions(*canonical, "sec-1"), positions(snap, "sec-1"))
	assert.Equal(t, positions(*canonical, "sec-2"), positions(snap, "sec-2"))
	assert.Equal(t, "sec-1", mustItem(t, snap, "it-a").Container, "optimistic move discarded wholesale")
}

func TestEngine_FlushRejectionWithFetchFailure(t *testing.T) {
	engine, gw := newEngine(t)
	gw.FailBatch(errors.New("server error"))
	gw.FailFetch(errors.New("connection refused"))

	err := engine.Flush(context.Background(), []domain.ItemPlacement{
		{ItemID: "it-a", Container: "sec-2", Position: 1},
	})
	require.Error(t, err, "only a failed resync propagates")
}

func TestEngine_FlushUnknownItemResyncs(t *testing.T) {
	engine, gw := newEngine(t)

	// A stale intent for an item the store no longer knows.
	err := engine.Flush(context.Background(), []domain.ItemPlacement{
		{ItemID: "it-ghost", Container: "sec-1", Position: 0},
	})
	require.NoError(t, err)

	// Store came back canonical, nothing was sent.
	canonical, ferr := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, ferr)
	assert.Equal(t, positions(*canonical, "sec-1"), positions(engine.Snapshot(), "sec-1"))
}

func TestEngine_InFlightClearsAfterFlush(t *testing.T) {
	engine, _ := newEngine(t)
	require.False(t, engine.InFlight())

	require.NoError(t, engine.Flush(context.Background(), []domain.ItemPlacement{
		{ItemID: "it-b", Container: "sec-1", Position: 0},
		{ItemID: "it-a", Container: "sec-1", Position: 1},
	}))
	assert.False(t, engine.InFlight())
}

func TestEngine_VerifyResyncsOnViolation(t *testing.T) {
	engine, _ := newEngine(t)

	// Corrupt the local store with a duplicate position.
	engine.Store().Replace(domain.Layout{
		Items: []domain.Item{
			{ID: "it-a", Container: "sec-1", Position: 0},
			{ID: "it-b", Container: "sec-1", Position: 0},
		},
		Sections: []domain.Section{{ID: "sec-1", Position: 0}},
	})
	require.Error(t, engine.Store().Validate())

	require.NoError(t, engine.Verify(context.Background()))
	require.NoError(t, engine.Store().Validate(), "verify healed the store from canonical state")
	assert.Len(t, engine.Snapshot().Items, 4)
}

func mustItem(t *testing.T, l domain.Layout, id string) domain.Item {
	t.Helper()
	for _, it := range l.Items {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %s not in layout", id)
	return domain.Item{}
}
