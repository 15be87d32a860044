package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incari/dashgrid/internal/adapters/http"
	"github.com/incari/dashgrid/internal/adapters/memory"
	"github.com/incari/dashgrid/pkg/domain"
	"github.com/incari/dashgrid/pkg/observability"
	"github.com/incari/dashgrid/pkg/placement"
	"github.com/incari/dashgrid/pkg/ports"
	"github.com/incari/dashgrid/pkg/reconcile"
)

func newTestServer(t *testing.T, opts ...http.Option) (*httptest.Server, *memory.Gateway) {
	t.Helper()
	gw := memory.New()
	require.NoError(t, gw.SeedLayout(context.Background(), ports.ContractLayout()))

	engine := reconcile.NewEngine(placement.New(), gw)
	require.NoError(t, engine.Load(context.Background()))
	ctrl := reconcile.NewSectionOrderController(engine)

	srv := httptest.NewServer(http.NewHandler(engine, ctrl, opts...))
	t.Cleanup(srv.Close)
	return srv, gw
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := stdhttp.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postJSON(t *testing.T, url string, body any) *stdhttp.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := stdhttp.Post(url, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := stdhttp.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, stdhttp.StatusNoContent, resp.StatusCode)
}

func TestServer_GetLayout(t *testing.T) {
	srv, _ := newTestServer(t)

	var layout domain.Layout
	getJSON(t, srv.URL+"/api/layout", &layout)
	assert.Len(t, layout.Items, 4)
	assert.Len(t, layout.Sections, 2)
}

func TestServer_Reposition(t *testing.T) {
	srv, gw := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/layout/reposition", http.RepositionRequest{
		Placements: []domain.ItemPlacement{
			{ItemID: "it-d", Container: "sec-1", Position: 0},
			{ItemID: "it-a", Container: "sec-1", Position: 1},
			{ItemID: "it-b", Container: "sec-1", Position: 2},
		},
	})
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var layout domain.Layout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&layout))
	got := map[string]int{}
	for _, it := range layout.Items {
		if it.Container == "sec-1" {
			got[it.ID] = it.Position
		}
	}
	assert.Equal(t, map[string]int{"it-d": 0, "it-a": 1, "it-b": 2}, got)

	canonical, err := gw.FetchCanonicalLayout(context.Background())
	require.NoError(t, err)
	for _, it := range canonical.Items {
		if it.ID == "it-d" {
			assert.Equal(t, "sec-1", it.Container)
		}
	}
}

func TestServer_RepositionRejectionReturnsCanonical(t *testing.T) {
	srv, gw := newTestServer(t)
	gw.FailBatch(errors.New("server error"))

	resp := postJSON(t, srv.URL+"/api/layout/reposition", http.RepositionRequest{
		Placements: []domain.ItemPlacement{{ItemID: "it-a", Container: "sec-2", Position: 0}},
	})
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode, "a rejected batch resolves into a resync, not an error")

	var layout domain.Layout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&layout))
	for _, it := range layout.Items {
		if it.ID == "it-a" {
			assert.Equal(t, "sec-1", it.Container, "response reflects canonical state")
		}
	}
}

func TestServer_RepositionBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := stdhttp.Post(srv.URL+"/api/layout/reposition", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, stdhttp.StatusBadRequest, resp.StatusCode)

	resp2 := postJSON(t, srv.URL+"/api/layout/reposition", http.RepositionRequest{})
	assert.Equal(t, stdhttp.StatusBadRequest, resp2.StatusCode)
}

func TestServer_RepositionUnavailableCanonicalSource(t *testing.T) {
	srv, gw := newTestServer(t)
	gw.FailBatch(errors.New("server error"))
	gw.FailFetch(errors.New("connection refused"))

	resp := postJSON(t, srv.URL+"/api/layout/reposition", http.RepositionRequest{
		Placements: []domain.ItemPlacement{{ItemID: "it-a", Container: "sec-2", Position: 0}},
	})
	assert.Equal(t, stdhttp.StatusBadGateway, resp.StatusCode)
}

func TestServer_ReorderSections(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/sections/reorder", http.ReorderSectionsRequest{
		Placements: []domain.SectionPlacement{
			{SectionID: "sec-2", Position: 0},
			{SectionID: "sec-1", Position: 1},
		},
	})
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var layout domain.Layout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&layout))
	got := map[string]int{}
	for _, s := range layout.Sections {
		got[s.ID] = s.Position
	}
	assert.Equal(t, map[string]int{"sec-2": 0, "sec-1": 1}, got)
}

func TestServer_Resync(t *testing.T) {
	srv, gw := newTestServer(t)

	// Simulate an out-of-band change in the canonical source.
	require.NoError(t, gw.ReorderSections(context.Background(), []domain.SectionPlacement{
		{SectionID: "sec-2", Position: 0},
		{SectionID: "sec-1", Position: 1},
	}))

	resp := postJSON(t, srv.URL+"/api/layout/resync", nil)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var layout domain.Layout
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&layout))
	got := map[string]int{}
	for _, s := range layout.Sections {
		got[s.ID] = s.Position
	}
	assert.Equal(t, map[string]int{"sec-2": 0, "sec-1": 1}, got)
}

func TestServer_ResyncMissingLayout(t *testing.T) {
	gw := memory.New()
	engine := reconcile.NewEngine(placement.New(), gw)
	srv := httptest.NewServer(http.NewHandler(engine, reconcile.NewSectionOrderController(engine)))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/layout/resync", nil)
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = observability.New(reg)

	srv, _ := newTestServer(t, http.WithMetricsRegistry(reg))
	resp, err := stdhttp.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
}
