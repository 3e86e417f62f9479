package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// CreateDecisionTool handles the hive_create_decision MCP tool.
type CreateDecisionTool struct {
	runtime *dispatch.Runtime
}

// NewCreateDecisionTool creates a CreateDecisionTool.
func NewCreateDecisionTool(rt *dispatch.Runtime) *CreateDecisionTool {
	return &CreateDecisionTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_create_decision.
func (t *CreateDecisionTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_create_decision",
		mcp.WithDescription(
			"Record a decision against an existing claim, with the alternatives that were rejected and why.",
		),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim the decision is about"),
		),
		mcp.WithString("decided_by",
			mcp.Description("Agent role that made the decision"),
		),
		mcp.WithString("context",
			mcp.Description("Situation the decision was made in"),
		),
		mcp.WithString("rationale",
			mcp.Description("Why this option was chosen"),
		),
		mcp.WithString("outcome",
			mcp.Description("Initial outcome if already known: success, partial, failure, unknown (default)"),
		),
		mcp.WithArray("alternatives",
			mcp.Description("Rejected alternatives, each {claim_id?, reason?}"),
		),
	)
}

// Handle processes the hive_create_decision tool call.
func (t *CreateDecisionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.CreateDecisionParams{
		ClaimID:      req.GetString("claim_id", ""),
		DecidedBy:    req.GetString("decided_by", ""),
		Context:      req.GetString("context", ""),
		Rationale:    req.GetString("rationale", ""),
		Outcome:      claims.Outcome(req.GetString("outcome", "")),
		Alternatives: alternativesArg(req),
	}
	return run(ctx, t.runtime, "create-decision", params)
}

// alternativesArg decodes the alternatives array. Entries that are not
// objects are skipped.
func alternativesArg(req mcp.CallToolRequest) []claims.DecisionAlternative {
	raw, ok := req.GetArguments()["alternatives"].([]any)
	if !ok {
		return nil
	}
	var alts []claims.DecisionAlternative
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var alt claims.DecisionAlternative
		if id, ok := obj["claim_id"].(string); ok && id != "" {
			alt.ClaimID = &id
		}
		if reason, ok := obj["reason"].(string); ok {
			alt.Reason = reason
		}
		alts = append(alts, alt)
	}
	return alts
}

// ─── RecordOutcomeTool ───────────────────────────────────────────────────────

// RecordOutcomeTool handles the hive_record_outcome MCP tool.
type RecordOutcomeTool struct {
	runtime *dispatch.Runtime
}

// NewRecordOutcomeTool creates a RecordOutcomeTool.
func NewRecordOutcomeTool(rt *dispatch.Runtime) *RecordOutcomeTool {
	return &RecordOutcomeTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_record_outcome.
func (t *RecordOutcomeTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_record_outcome",
		mcp.WithDescription(
			"Settle a decision's outcome after the fact. Only the outcome and notes change.",
		),
		mcp.WithString("decision_id",
			mcp.Required(),
			mcp.Description("Decision ID (dec_...)"),
		),
		mcp.WithString("outcome",
			mcp.Required(),
			mcp.Description("One of: success, partial, failure, unknown"),
		),
		mcp.WithString("notes",
			mcp.Description("What actually happened"),
		),
	)
}

// Handle processes the hive_record_outcome tool call.
func (t *RecordOutcomeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.RecordOutcomeParams{
		DecisionID: req.GetString("decision_id", ""),
		Outcome:    claims.Outcome(req.GetString("outcome", "")),
		Notes:      req.GetString("notes", ""),
	}
	return run(ctx, t.runtime, "record-outcome", params)
}
