package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/pkg/domain"
)

// ContractLayout returns the layout every gateway contract run starts from:
// two sections and four items, one of them unsectioned.
func ContractLayout() *domain.Layout {
	return &domain.Layout{
		Items: []domain.Item{
			{ID: "it-a", Container: "sec-1", Position: 0, Name: "Grafana", URL: "http://grafana.local"},
			{ID: "it-b", Container: "sec-1", Position: 1, Name: "Jellyfin"},
			{ID: "it-c", Container: "sec-2", Position: 0, Name: "Pi-hole", Favorite: true},
			{ID: "it-d", Container: domain.Unsectioned, Position: 0, Name: "Router"},
		},
		Sections: []domain.Section{
			{ID: "sec-1", Name: "Media", Position: 0},
			{ID: "sec-2", Name: "Network", Position: 1, Collapsed: true},
		},
	}
}

// RunGatewayContract runs a suite of tests verifying that a Gateway
// implementation adheres to the interface contract. The gateway must also
// implement Seeder so the suite can prime it.
func RunGatewayContract(t *testing.T, gw Gateway) {
	ctx := context.Background()

	seeder, ok := gw.(Seeder)
	require.True(t, ok, "contract gateway must implement ports.Seeder")

	t.Run("FetchBeforeSeed", func(t *testing.T) {
		_, err := gw.FetchCanonicalLayout(ctx)
		assert.ErrorIs(t, err, domain.ErrLayoutNotFound)
	})

	t.Run("SeedAndFetch", func(t *testing.T) {
		require.NoError(t, seeder.SeedLayout(ctx, ContractLayout()))

		layout, err := gw.FetchCanonicalLayout(ctx)
		require.NoError(t, err)
		assert.Len(t, layout.Items, 4)
		assert.Len(t, layout.Sections, 2)

		byID := indexItems(layout)
		assert.Equal(t, "sec-1", byID["it-a"].Container)
		assert.Equal(t, "http://grafana.local", byID["it-a"].URL, "opaque payload must round-trip")
		assert.True(t, byID["it-c"].Favorite)
		assert.Equal(t, domain.Unsectioned, byID["it-d"].Container)
	})

	t.Run("BatchReposition", func(t *testing.T) {
		// Move it-d into sec-1 at the head, shifting the others down.
		err := gw.BatchReposition(ctx, []domain.ItemPlacement{
			{ItemID: "it-d", Container: "sec-1", Position: 0},
			{ItemID: "it-a", Container: "sec-1", Position: 1},
			{ItemID: "it-b", Container: "sec-1", Position: 2},
		})
		require.NoError(t, err)

		layout, err := gw.FetchCanonicalLayout(ctx)
		require.NoError(t, err)
		byID := indexItems(layout)
		assert.Equal(t, "sec-1", byID["it-d"].Container)
		assert.Equal(t, 0, byID["it-d"].Position)
		assert.Equal(t, 1, byID["it-a"].Position)
		assert.Equal(t, 2, byID["it-b"].Position)
		assert.Equal(t, "Router", byID["it-d"].Name, "payload survives reposition")
	})

	t.Run("BatchRepositionUnknownItemIsAtomic", func(t *testing.T) {
		before, err := gw.FetchCanonicalLayout(ctx)
		require.NoError(t, err)

		err = gw.BatchReposition(ctx, []domain.ItemPlacement{
			{ItemID: "it-a", Container: "sec-2", Position: 0},
			{ItemID: "it-ghost", Container: "sec-2", Position: 1},
		})
		assert.ErrorIs(t, err, domain.ErrUnknownItem)

		after, err := gw.FetchCanonicalLayout(ctx)
		require.NoError(t, err)
		assert.Equal(t, indexItems(before), indexItems(after), "rejected batch must not be partially applied")
	})

	t.Run("ReorderSections", func(t *testing.T) {
		err := gw.ReorderSections(ctx, []domain.SectionPlacement{
			{SectionID: "sec-2", Position: 0},
			{SectionID: "sec-1", Position: 1},
		})
		require.NoError(t, err)

		layout, err := gw.FetchCanonicalLayout(ctx)
		require.NoError(t, err)
		positions := map[string]int{}
		for _, s := range layout.Sections {
			positions[s.ID] = s.Position
		}
		assert.Equal(t, 0, positions["sec-2"])
		assert.Equal(t, 1, positions["sec-1"])
	})

	t.Run("ReorderSectionsUnknownSection", func(t *testing.T) {
		err := gw.ReorderSections(ctx, []domain.SectionPlacement{
			{SectionID: "sec-ghost", Position: 0},
		})
		assert.ErrorIs(t, err, domain.ErrUnknownSection)
	})
}

func indexItems(l *domain.Layout) map[string]domain.Item {
	m := make(map[string]domain.Item, len(l.Items))
	for _, it := range l.Items {
		m[it.ID] = it
	}
	return m
}
