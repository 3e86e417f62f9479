package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// UpdateStatusTool handles the hive_update_status MCP tool.
type UpdateStatusTool struct {
	runtime *dispatch.Runtime
}

// NewUpdateStatusTool creates an UpdateStatusTool.
func NewUpdateStatusTool(rt *dispatch.Runtime) *UpdateStatusTool {
	return &UpdateStatusTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_update_status.
func (t *UpdateStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_update_status",
		mcp.WithDescription(
			"Move a claim through its lifecycle. Only valid transitions are accepted; requesting the current "+
				"status is a no-op success. Every change is recorded in the status history.",
		),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim ID (clm_...)"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Target status: proposed, confirmed, contested, pending_proof, deprecated"),
		),
		mcp.WithString("changed_by",
			mcp.Description("Agent role making the change"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the status changed"),
		),
	)
}

// Handle processes the hive_update_status tool call.
func (t *UpdateStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.UpdateStatusParams{
		ClaimID:   req.GetString("claim_id", ""),
		Status:    claims.Status(req.GetString("status", "")),
		ChangedBy: req.GetString("changed_by", ""),
		Reason:    req.GetString("reason", ""),
	}
	return run(ctx, t.runtime, "update-claim-status", params)
}

// ─── StatusHistoryTool ───────────────────────────────────────────────────────

// StatusHistoryTool handles the hive_status_history MCP tool.
type StatusHistoryTool struct {
	runtime *dispatch.Runtime
}

// NewStatusHistoryTool creates a StatusHistoryTool.
func NewStatusHistoryTool(rt *dispatch.Runtime) *StatusHistoryTool {
	return &StatusHistoryTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_status_history.
func (t *StatusHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_status_history",
		mcp.WithDescription("List every status transition a claim has gone through, oldest first."),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim ID (clm_...)"),
		),
	)
}

// Handle processes the hive_status_history tool call.
func (t *StatusHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{"claim_id": req.GetString("claim_id", "")}
	return run(ctx, t.runtime, "get-status-history", params)
}
