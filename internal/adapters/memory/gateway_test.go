package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/memory"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/ports"
)

func TestGateway_Contract(t *testing.T) {
	ports.RunGatewayContract(t, memory.New())
}

func TestGateway_DensifiesAfterReposition(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	// Move it-a out of sec-1, leaving it-b at position 1.
	require.NoError(t, gw.BatchReposition(ctx, []domain.ItemPlacement{
		{ItemID: "it-a", Container: "sec-2", Position: 1},
	}))

	layout, err := gw.FetchCanonicalLayout(ctx)
	require.NoError(t, err)
	for _, it := range layout.Items {
		if it.ID == "it-b" {
			assert.Equal(t, 0, it.Position, "vacated container is re-densified")
		}
	}
}

func TestGateway_FailureInjection(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	boom := errors.New("boom")
	gw.FailBatch(boom)
	gw.FailReorder(boom)
	gw.FailFetch(boom)

	assert.ErrorIs(t, gw.BatchReposition(ctx, nil), boom)
	assert.ErrorIs(t, gw.ReorderSections(ctx, nil), boom)
	_, err := gw.FetchCanonicalLayout(ctx)
	assert.ErrorIs(t, err, boom)

	gw.FailBatch(nil)
	gw.FailReorder(nil)
	gw.FailFetch(nil)
	_, err = gw.FetchCanonicalLayout(ctx)
	assert.NoError(t, err)
}
