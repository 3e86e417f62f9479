package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
	"github.com/anamnesos/hivemind-sub007/internal/patterns"
)

// ProcessSpoolTool handles the hive_process_spool MCP tool.
type ProcessSpoolTool struct {
	runtime *dispatch.Runtime
}

// NewProcessSpoolTool creates a ProcessSpoolTool.
func NewProcessSpoolTool(rt *dispatch.Runtime) *ProcessSpoolTool {
	return &ProcessSpoolTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_process_spool.
func (t *ProcessSpoolTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_process_spool",
		mcp.WithDescription(
			"Run one pattern-mining pass: rotate and consume the event spool, scan the persisted claim graph, "+
				"and upsert any detected coordination/failure/success patterns.",
		),
		mcp.WithString("spool_path",
			mcp.Description("Spool file to consume (default: the configured spool)"),
		),
	)
}

// Handle processes the hive_process_spool tool call.
func (t *ProcessSpoolTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{"spool_path": req.GetString("spool_path", "")}
	return run(ctx, t.runtime, "process-pattern-spool", params)
}

// ─── QueryPatternsTool ───────────────────────────────────────────────────────

// QueryPatternsTool handles the hive_query_patterns MCP tool.
type QueryPatternsTool struct {
	runtime *dispatch.Runtime
}

// NewQueryPatternsTool creates a QueryPatternsTool.
func NewQueryPatternsTool(rt *dispatch.Runtime) *QueryPatternsTool {
	return &QueryPatternsTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_query_patterns.
func (t *QueryPatternsTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_query_patterns",
		mcp.WithDescription("List mined behavioral patterns, most recently seen first."),
		mcp.WithString("pattern_type",
			mcp.Description("One of: coordination, failure, success"),
		),
		mcp.WithString("scope",
			mcp.Description("Only patterns in this scope"),
		),
		mcp.WithBoolean("active",
			mcp.Description("Filter by active flag"),
		),
		mcp.WithNumber("since",
			mcp.Description("Only patterns last seen at or after this epoch-milliseconds timestamp"),
		),
		mcp.WithNumber("until",
			mcp.Description("Only patterns last seen at or before this epoch-milliseconds timestamp"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 100)"),
		),
	)
}

// Handle processes the hive_query_patterns tool call.
func (t *QueryPatternsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := patterns.QueryPatternsParams{
		PatternType: req.GetString("pattern_type", ""),
		Scope:       req.GetString("scope", ""),
		Since:       int64(intArg(req, "since", 0)),
		Until:       int64(intArg(req, "until", 0)),
		Limit:       intArg(req, "limit", 0),
	}
	if _, present := req.GetArguments()["active"]; present {
		active := boolArg(req, "active", true)
		params.Active = &active
	}
	return run(ctx, t.runtime, "query-patterns", params)
}

// ─── ResolvePatternTool ──────────────────────────────────────────────────────

// ResolvePatternTool handles the hive_resolve_pattern MCP tool.
type ResolvePatternTool struct {
	runtime *dispatch.Runtime
}

// NewResolvePatternTool creates a ResolvePatternTool.
func NewResolvePatternTool(rt *dispatch.Runtime) *ResolvePatternTool {
	return &ResolvePatternTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_resolve_pattern.
func (t *ResolvePatternTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_resolve_pattern",
		mcp.WithDescription("Mark a mined pattern resolved (or re-activate it), optionally recording how."),
		mcp.WithString("pattern_id",
			mcp.Required(),
			mcp.Description("Pattern ID (pat_...)"),
		),
		mcp.WithString("resolution",
			mcp.Description("How the pattern was addressed"),
		),
		mcp.WithBoolean("active",
			mcp.Description("Whether the pattern stays active (default false)"),
		),
	)
}

// Handle processes the hive_resolve_pattern tool call.
func (t *ResolvePatternTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := patterns.ResolveParams{
		PatternID:  req.GetString("pattern_id", ""),
		Resolution: req.GetString("resolution", ""),
		Active:     boolArg(req, "active", false),
	}
	return run(ctx, t.runtime, "resolve-pattern", params)
}
