package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/file"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/ports"
)

func TestGateway_Contract(t *testing.T) {
	gw := file.New(filepath.Join(t.TempDir(), "layout.json"))
	ports.RunGatewayContract(t, gw)
}

func TestGateway_DefaultPath(t *testing.T) {
	gw := file.New("")
	assert.Equal(t, filepath.Join(".dashgrid", "layout.json"), gw.Path())
}

func TestGateway_WriteIsAtomic(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "layout.json")
	gw := file.New(path)

	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	// No temp file left behind after the rename.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// The document on disk is well-formed JSON readable by external tools.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var layout domain.Layout
	require.NoError(t, json.Unmarshal(data, &layout))
	assert.Len(t, layout.Items, 4)
}

func TestGateway_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := file.New(path).FetchCanonicalLayout(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLayoutNotFound)
}

func TestWatch_EmitsOnExternalWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "layout.json")
	gw := file.New(path)
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	events, err := gw.Watch(ctx)
	require.NoError(t, err)

	// An out-of-band edit, the way a provisioning script would do it.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventLayoutReplaced, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no layout event after external write")
	}
}

func TestWatch_CoalescesWriteBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "layout.json")
	gw := file.New(path)
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	events, err := gw.Watch(ctx)
	require.NoError(t, err)

	// A script rewriting the file in a tight loop must come out as a single
	// event once the burst settles, not one per write and not an early one
	// from a stale debounce tick.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, data, 0644))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventLayoutReplaced, ev.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("no layout event after write burst")
	}

	select {
	case ev, open := <-events:
		t.Fatalf("unexpected extra event after burst: %+v (open=%v)", ev, open)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_ClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	path := filepath.Join(t.TempDir(), "layout.json")
	gw := file.New(path)
	require.NoError(t, gw.SeedLayout(ctx, ports.ContractLayout()))

	events, err := gw.Watch(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "event channel must close when the watch context ends")
	case <-time.After(3 * time.Second):
		t.Fatal("event channel did not close")
	}
}
