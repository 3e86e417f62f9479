// Package resources implements MCP resource handlers for the claim engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (hive://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// Handler manages claim-engine resource endpoints. Reads go through the
// runtime like every other operation, so they serialize correctly with
// concurrent tool calls.
type Handler struct {
	runtime *dispatch.Runtime
}

// NewHandler creates a resource Handler over the given runtime.
func NewHandler(rt *dispatch.Runtime) *Handler {
	return &Handler{runtime: rt}
}

// StatsResource returns the MCP resource definition for graph statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"hive://stats",
		"Claim Graph Statistics",
		mcp.WithResourceDescription("Counts of claims by status and type, evidence, votes, snapshots, and patterns"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the current graph statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.execute(ctx, req.Params.URI, "get-stats", nil)
}

// PatternsResource returns the MCP resource definition for active risk
// patterns.
func (h *Handler) PatternsResource() mcp.Resource {
	return mcp.NewResource(
		"hive://patterns/active",
		"Active Risk Patterns",
		mcp.WithResourceDescription("Patterns mined from agent activity that are still unresolved"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePatterns returns the active patterns as JSON.
func (h *Handler) HandlePatterns(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.execute(ctx, req.Params.URI, "query-patterns", []byte(`{"active": true}`))
}

// execute routes one read-only operation and renders its envelope.
func (h *Handler) execute(ctx context.Context, uri, op string, payload []byte) ([]mcp.ResourceContents, error) {
	resp := h.runtime.Execute(ctx, dispatch.Request{Op: op, Payload: payload})
	if !resp.OK {
		return errorResource(uri, resp.Error), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(resp.Result),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
