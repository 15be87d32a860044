// Package mcp exposes the layout engine as a Model Context Protocol server,
// so agents can inspect and rearrange the dashboard as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/incari/dashgrid/pkg/domain"
)

// Engine defines the interface required by the MCP server.
type Engine interface {
	Snapshot() domain.Layout
	Flush(ctx context.Context, placements []domain.ItemPlacement) error
	Resync(ctx context.Context) error
}

// SectionCommitter commits section reorders immediately.
type SectionCommitter interface {
	Commit(ctx context.Context, placements []domain.SectionPlacement) error
}

// Server wraps the engine and exposes it over MCP.
type Server struct {
	engine    Engine
	sections  SectionCommitter
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, sections SectionCommitter, version string) *Server {
	s := &Server{
		engine:    engine,
		sections:  sections,
		mcpServer: server.NewMCPServer("dashgrid-mcp", version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, for remote agents.
// It blocks until the context is cancelled, then shuts down gracefully.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Get the canonical dashboard layout: every item with its container and position, and the section ordering."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Snapshot())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("move_item",
		mcp.WithDescription("Move one item to a container at a position. Sibling positions are settled server-side."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("ID of the item to move")),
		mcp.WithString("container", mcp.Description("Target section ID; empty for the unsectioned bucket")),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based target index within the container")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		itemID, _ := args["item_id"].(string)
		container, _ := args["container"].(string)
		position, _ := args["position"].(float64)
		if itemID == "" {
			return mcp.NewToolResultError("item_id is required"), nil
		}

		placements, err := settleMove(s.engine.Snapshot(), itemID, container, int(position))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.engine.Flush(ctx, placements); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("flush failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(s.engine.Snapshot())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("reorder_sections",
		mcp.WithDescription("Set the section ordering. Pass the full list of section IDs in the desired order."),
		mcp.WithString("section_ids", mcp.Required(), mcp.Description("JSON array of section IDs, first ID on top")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, _ := request.GetArguments()["section_ids"].(string)
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("section_ids must be a JSON array of strings: %v", err)), nil
		}

		placements := make([]domain.SectionPlacement, len(ids))
		for i, id := range ids {
			placements[i] = domain.SectionPlacement{SectionID: id, Position: i}
		}
		if err := s.sections.Commit(ctx, placements); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reorder failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(s.engine.Snapshot())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// settleMove expands a single-item move into the settled placements of the
// affected containers, the same shape a drag drop produces.
func settleMove(layout domain.Layout, itemID, container string, position int) ([]domain.ItemPlacement, error) {
	var moved *domain.Item
	byContainer := make(map[string][]domain.Item)
	for _, it := range layout.Items {
		if it.ID == itemID {
			m := it
			moved = &m
			continue
		}
		byContainer[it.Container] = append(byContainer[it.Container], it)
	}
	if moved == nil {
		return nil, fmt.Errorf("move %s: %w", itemID, domain.ErrUnknownItem)
	}

	dst := byContainer[container]
	if position < 0 || position > len(dst) {
		position = len(dst)
	}
	dst = append(dst[:position:position], append([]domain.Item{*moved}, dst[position:]...)...)
	byContainer[container] = dst

	var placements []domain.ItemPlacement
	for _, c := range []string{moved.Container, container} {
		for i, it := range byContainer[c] {
			placements = append(placements, domain.ItemPlacement{ItemID: it.ID, Container: c, Position: i})
		}
		if moved.Container == container {
			break
		}
	}
	return placements, nil
}
