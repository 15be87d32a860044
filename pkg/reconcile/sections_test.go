package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/reconcile"
)

func sectionPositions(l domain.Layout) map[string]int {
	out := map[string]int{}
	for _, s := range l.Sections {
		out[s.ID] = s.Position
	}
	return out
}

func TestSectionController_CommitPersistsImmediately(t *testing.T) {
	engine, gw := newEngine(t)
	ctrl := reconcile.NewSectionOrderController(engine)

	err := ctrl.Commit(context.Background(), []domain.SectionPlacement{
		{SectionID: "sec-2", Position: 0},
		{SectionID: "sec-1", Position: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"sec-2": 0, "sec-1": 1}, sectionPositions(engine.Snapshot()))

	canonical, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sec-2": 0, "sec-1": 1}, sectionPositions(*canonical))
}

func TestSectionController_ReorderLeavesItemsUntouched(t *testing.T) {
	engine, _ := newEngine(t)
	ctrl := reconcile.NewSectionOrderController(engine)
	before := positions(engine.Snapshot(), "sec-1")

	require.NoError(t, ctrl.Commit(context.Background(), []domain.SectionPlacement{
		{SectionID: "sec-2", Position: 0},
		{SectionID: "sec-1", Position: 1},
	}))

	snap := engine.Snapshot()
	assert.Equal(t, before, positions(snap, "sec-1"), "items keep container and position across a section reorder")
	assert.Equal(t, "sec-2", mustItem(t, snap, "it-c").Container)
}

func TestSectionController_RejectionResyncs(t *testing.T) {
	engine, gw := newEngine(t)
	ctrl := reconcile.NewSectionOrderController(engine)
	gw.FailReorder(errors.New("server error"))

	err := ctrl.Commit(context.Background(), []domain.SectionPlacement{
		{SectionID: "sec-2", Position: 0},
		{SectionID: "sec-1", Position: 1},
	})
	require.NoError(t, err)

	// Original order restored from canonical state.
	assert.Equal(t, map[string]int{"sec-1": 0, "sec-2": 1}, sectionPositions(engine.Snapshot()))
}

func TestSectionController_UnknownSectionResyncs(t *testing.T) {
	engine, _ := newEngine(t)
	ctrl := reconcile.NewSectionOrderController(engine)

	err := ctrl.Commit(context.Background(), []domain.SectionPlacement{
		{SectionID: "sec-ghost", Position: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sec-1": 0, "sec-2": 1}, sectionPositions(engine.Snapshot()))
}

func TestSectionController_EmptyCommitIsNoOp(t *testing.T) {
	engine, gw := newEngine(t)
	ctrl := reconcile.NewSectionOrderController(engine)

	gw.FailReorder(errors.New("must not be called"))
	require.NoError(t, ctrl.Commit(context.Background(), nil))
	assert.Equal(t, map[string]int{"sec-1": 0, "sec-2": 1}, sectionPositions(engine.Snapshot()))
}
