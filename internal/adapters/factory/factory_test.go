package factory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/factory"
	"github.com/incari/dashgrid/internal/config"
	"github.com/incari/dashgrid/pkg/ports"
)

func seed(t *testing.T, gw ports.Gateway) {
	t.Helper()
	seeder, ok := gw.(ports.Seeder)
	require.True(t, ok, "gateway must support seeding")
	require.NoError(t, seeder.SeedLayout(context.Background(), ports.ContractLayout()))
}

func TestNew_DefaultsToMemory(t *testing.T) {
	for _, backend := range []string{"", "memory"} {
		gw, closeFn, err := factory.New(context.Background(), config.StoreConfig{Backend: backend})
		require.NoError(t, err)
		seed(t, gw)
		require.NoError(t, closeFn())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, _, err := factory.New(context.Background(), config.StoreConfig{Backend: "etcd"})
	require.ErrorContains(t, err, `unknown store backend "etcd"`)
}

func TestNew_FileWatchOptIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")

	gw, _, err := factory.New(context.Background(), config.StoreConfig{
		Backend: "file",
		Options: map[string]any{"path": path, "watch": true},
	})
	require.NoError(t, err)
	_, watchable := gw.(ports.Watcher)
	require.True(t, watchable, "watch: true must expose the watcher")

	gw, _, err = factory.New(context.Background(), config.StoreConfig{
		Backend: "file",
		Options: map[string]any{"path": path},
	})
	require.NoError(t, err)
	_, watchable = gw.(ports.Watcher)
	require.False(t, watchable, "watch defaults to off")
	seed(t, gw)
}

func TestNew_SQLite(t *testing.T) {
	gw, closeFn, err := factory.New(context.Background(), config.StoreConfig{
		Backend: "sqlite",
		Options: map[string]any{"path": filepath.Join(t.TempDir(), "layout.sqlite")},
	})
	require.NoError(t, err)
	defer closeFn()

	seed(t, gw)
	got, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Items, len(ports.ContractLayout().Items))
}

func TestNew_RedisAppliesTimeout(t *testing.T) {
	mr := miniredis.RunT(t)

	gw, closeFn, err := factory.New(context.Background(), config.StoreConfig{
		Backend: "redis",
		Options: map[string]any{"addr": mr.Addr(), "timeout": "500ms"},
	})
	require.NoError(t, err)
	defer closeFn()

	seed(t, gw)
	got, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Items, len(ports.ContractLayout().Items))
}
