package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/redis"
	"github.com/incari/dashgrid/pkg/ports"
)

func newTestGateway(t *testing.T, opts ...redis.Option) (*redis.Gateway, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestGateway_Contract(t *testing.T) {
	gw, _ := newTestGateway(t)
	ports.RunGatewayContract(t, gw)
}

func TestGateway_KeysUsePrefix(t *testing.T) {
	gw, mr := newTestGateway(t, redis.WithPrefix("custom:"))

	require.NoError(t, gw.SeedLayout(context.Background(), ports.ContractLayout()))
	assert.True(t, mr.Exists("custom:items"))
	assert.True(t, mr.Exists("custom:sections"))
	assert.False(t, mr.Exists("dashgrid:layout:items"))
}

func TestGateway_SurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	first := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	gw := redis.NewFromClient(first)
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))
	require.NoError(t, first.Close())

	// A fresh client sees the same layout: state lives in Redis, not the
	// gateway.
	second := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer second.Close()
	layout, err := redis.NewFromClient(second).FetchCanonicalLayout(ctx)
	require.NoError(t, err)
	assert.Len(t, layout.Items, 4)
	assert.Len(t, layout.Sections, 2)
}
