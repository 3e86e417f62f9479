package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// QueryClaimsTool handles the hive_query_claims MCP tool.
type QueryClaimsTool struct {
	runtime *dispatch.Runtime
}

// NewQueryClaimsTool creates a QueryClaimsTool.
func NewQueryClaimsTool(rt *dispatch.Runtime) *QueryClaimsTool {
	return &QueryClaimsTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_query_claims.
func (t *QueryClaimsTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_query_claims",
		mcp.WithDescription(
			"Query the claim graph. Filters combine with AND; text search uses full-text ranking when available "+
				"and falls back to substring matching otherwise.",
		),
		mcp.WithString("scope",
			mcp.Description("Only claims tagged with this scope"),
		),
		mcp.WithString("claim_type",
			mcp.Description("One of: fact, decision, hypothesis, negative"),
		),
		mcp.WithString("status",
			mcp.Description("One of: proposed, confirmed, contested, pending_proof, deprecated"),
		),
		mcp.WithString("owner",
			mcp.Description("Owning agent role"),
		),
		mcp.WithString("session",
			mcp.Description("Exact session identifier"),
		),
		mcp.WithNumber("sessions_back",
			mcp.Description("Instead of session: match the N most recently active sessions"),
		),
		mcp.WithNumber("since",
			mcp.Description("Only claims created at or after this epoch-milliseconds timestamp"),
		),
		mcp.WithNumber("until",
			mcp.Description("Only claims created at or before this epoch-milliseconds timestamp"),
		),
		mcp.WithString("text",
			mcp.Description("Free-text search over claim statements"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 100, hard cap 5000)"),
		),
		mcp.WithString("order",
			mcp.Description("recency (default) or rank; a text query always ranks"),
		),
	)
}

// Handle processes the hive_query_claims tool call.
func (t *QueryClaimsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.QueryClaimsParams{
		Scope:        req.GetString("scope", ""),
		ClaimType:    claims.ClaimType(req.GetString("claim_type", "")),
		Status:       claims.Status(req.GetString("status", "")),
		Owner:        req.GetString("owner", ""),
		Session:      req.GetString("session", ""),
		SessionsBack: intArg(req, "sessions_back", 0),
		Since:        int64(intArg(req, "since", 0)),
		Until:        int64(intArg(req, "until", 0)),
		Text:         req.GetString("text", ""),
		Limit:        intArg(req, "limit", 0),
		Order:        req.GetString("order", ""),
	}
	return run(ctx, t.runtime, "query-claims", params)
}

// ─── GetClaimTool ────────────────────────────────────────────────────────────

// GetClaimTool handles the hive_get_claim MCP tool.
type GetClaimTool struct {
	runtime *dispatch.Runtime
}

// NewGetClaimTool creates a GetClaimTool.
func NewGetClaimTool(rt *dispatch.Runtime) *GetClaimTool {
	return &GetClaimTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_get_claim.
func (t *GetClaimTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_get_claim",
		mcp.WithDescription("Fetch one claim by ID, including its scope tags."),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim ID (clm_...)"),
		),
	)
}

// Handle processes the hive_get_claim tool call.
func (t *GetClaimTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{"claim_id": req.GetString("claim_id", "")}
	return run(ctx, t.runtime, "get-claim", params)
}

// ─── GetEvidenceTool ─────────────────────────────────────────────────────────

// GetEvidenceTool handles the hive_get_evidence MCP tool.
type GetEvidenceTool struct {
	runtime *dispatch.Runtime
}

// NewGetEvidenceTool creates a GetEvidenceTool.
func NewGetEvidenceTool(rt *dispatch.Runtime) *GetEvidenceTool {
	return &GetEvidenceTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_get_evidence.
func (t *GetEvidenceTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_get_evidence",
		mcp.WithDescription("List the evidence bindings attached to a claim, oldest first."),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim ID (clm_...)"),
		),
	)
}

// Handle processes the hive_get_evidence tool call.
func (t *GetEvidenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := map[string]string{"claim_id": req.GetString("claim_id", "")}
	return run(ctx, t.runtime, "get-evidence", params)
}
