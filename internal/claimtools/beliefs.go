package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// SnapshotTool handles the hive_belief_snapshot MCP tool.
type SnapshotTool struct {
	runtime *dispatch.Runtime
}

// NewSnapshotTool creates a SnapshotTool.
func NewSnapshotTool(rt *dispatch.Runtime) *SnapshotTool {
	return &SnapshotTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_belief_snapshot.
func (t *SnapshotTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_belief_snapshot",
		mcp.WithDescription(
			"Capture what an agent currently believes (claims it owns or supports, excluding deprecated ones) "+
				"and report any logical contradictions inside that belief set.",
		),
		mcp.WithString("agent",
			mcp.Required(),
			mcp.Description("Agent role to snapshot"),
		),
		mcp.WithString("session",
			mcp.Description("Session identifier to tag the snapshot with"),
		),
		mcp.WithNumber("max_beliefs",
			mcp.Description("Cap on snapshot size (default 200)"),
		),
	)
}

// Handle processes the hive_belief_snapshot tool call.
func (t *SnapshotTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.SnapshotParams{
		Agent:      req.GetString("agent", ""),
		Session:    req.GetString("session", ""),
		MaxBeliefs: intArg(req, "max_beliefs", 0),
	}
	return run(ctx, t.runtime, "create-belief-snapshot", params)
}

// ─── BeliefsTool ─────────────────────────────────────────────────────────────

// BeliefsTool handles the hive_get_beliefs MCP tool.
type BeliefsTool struct {
	runtime *dispatch.Runtime
}

// NewBeliefsTool creates a BeliefsTool.
func NewBeliefsTool(rt *dispatch.Runtime) *BeliefsTool {
	return &BeliefsTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_get_beliefs.
func (t *BeliefsTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_get_beliefs",
		mcp.WithDescription("List an agent's belief snapshots, newest first."),
		mcp.WithString("agent",
			mcp.Required(),
			mcp.Description("Agent role"),
		),
		mcp.WithString("session",
			mcp.Description("Only snapshots from this session"),
		),
		mcp.WithBoolean("latest",
			mcp.Description("Return only the most recent snapshot"),
		),
	)
}

// Handle processes the hive_get_beliefs tool call.
func (t *BeliefsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.BeliefsParams{
		Agent:   req.GetString("agent", ""),
		Session: req.GetString("session", ""),
		Latest:  boolArg(req, "latest", false),
	}
	return run(ctx, t.runtime, "get-agent-beliefs", params)
}

// ─── ContradictionsTool ──────────────────────────────────────────────────────

// ContradictionsTool handles the hive_get_contradictions MCP tool.
type ContradictionsTool struct {
	runtime *dispatch.Runtime
}

// NewContradictionsTool creates a ContradictionsTool.
func NewContradictionsTool(rt *dispatch.Runtime) *ContradictionsTool {
	return &ContradictionsTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_get_contradictions.
func (t *ContradictionsTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_get_contradictions",
		mcp.WithDescription("List detected belief contradictions, newest first."),
		mcp.WithString("agent",
			mcp.Description("Only contradictions held by this agent"),
		),
		mcp.WithString("session",
			mcp.Description("Only contradictions from snapshots in this session"),
		),
		mcp.WithString("claim_id",
			mcp.Description("Only contradictions involving this claim"),
		),
		mcp.WithNumber("since",
			mcp.Description("Only contradictions detected at or after this epoch-milliseconds timestamp"),
		),
		mcp.WithNumber("until",
			mcp.Description("Only contradictions detected at or before this epoch-milliseconds timestamp"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 100)"),
		),
	)
}

// Handle processes the hive_get_contradictions tool call.
func (t *ContradictionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.ContradictionsParams{
		Agent:   req.GetString("agent", ""),
		Session: req.GetString("session", ""),
		ClaimID: req.GetString("claim_id", ""),
		Since:   int64(intArg(req, "since", 0)),
		Until:   int64(intArg(req, "until", 0)),
		Limit:   intArg(req, "limit", 0),
	}
	return run(ctx, t.runtime, "get-contradictions", params)
}
