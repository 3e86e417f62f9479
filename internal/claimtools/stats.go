package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// StatsTool handles the hive_stats MCP tool.
type StatsTool struct {
	runtime *dispatch.Runtime
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(rt *dispatch.Runtime) *StatsTool {
	return &StatsTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_stats",
		mcp.WithDescription("Aggregate counts across the claim graph: claims by status, decisions, snapshots, patterns."),
	)
}

// Handle processes the hive_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return run(ctx, t.runtime, "get-stats", nil)
}
