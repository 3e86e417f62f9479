package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// CreateClaimTool handles the hive_create_claim MCP tool.
type CreateClaimTool struct {
	runtime *dispatch.Runtime
}

// NewCreateClaimTool creates a CreateClaimTool with the given runtime.
func NewCreateClaimTool(rt *dispatch.Runtime) *CreateClaimTool {
	return &CreateClaimTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_create_claim.
func (t *CreateClaimTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_create_claim",
		mcp.WithDescription(
			"Record a claim in the shared claim graph: a fact, decision, hypothesis, or negative finding. "+
				"Pass an idempotency_key so a retried call returns the existing claim instead of duplicating it.",
		),
		mcp.WithString("statement",
			mcp.Required(),
			mcp.Description("The claim statement itself"),
		),
		mcp.WithString("claim_type",
			mcp.Required(),
			mcp.Description("One of: fact, decision, hypothesis, negative"),
		),
		mcp.WithString("owner",
			mcp.Description("Owning agent role (normalized through the role alias table, default analyst)"),
		),
		mcp.WithString("status",
			mcp.Description("Initial status (default proposed). One of: proposed, confirmed, contested, pending_proof, deprecated"),
		),
		mcp.WithArray("scopes",
			mcp.Description("Scope tags this claim is about (e.g. module paths)"),
			mcp.WithStringItems(),
		),
		mcp.WithString("idempotency_key",
			mcp.Description("Caller-supplied key making the create retry-safe"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Confidence in [0,1] (default 0.5)"),
		),
		mcp.WithString("session",
			mcp.Description("Session identifier this claim was produced in"),
		),
		mcp.WithString("supersedes",
			mcp.Description("ID of a claim this one replaces"),
		),
		mcp.WithNumber("ttl_hours",
			mcp.Description("Hours until the claim is auto-deprecated by the expiry sweep"),
		),
	)
}

// Handle processes the hive_create_claim tool call.
func (t *CreateClaimTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.CreateClaimParams{
		Statement:      req.GetString("statement", ""),
		ClaimType:      claims.ClaimType(req.GetString("claim_type", "")),
		Owner:          req.GetString("owner", ""),
		Status:         claims.Status(req.GetString("status", "")),
		Scopes:         stringListArg(req, "scopes"),
		IdempotencyKey: req.GetString("idempotency_key", ""),
		Confidence:     floatArg(req, "confidence"),
		Session:        req.GetString("session", ""),
		Supersedes:     req.GetString("supersedes", ""),
		TTLHours:       floatArg(req, "ttl_hours"),
	}
	return run(ctx, t.runtime, "create-claim", params)
}

// ─── AddEvidenceTool ─────────────────────────────────────────────────────────

// AddEvidenceTool handles the hive_add_evidence MCP tool.
type AddEvidenceTool struct {
	runtime *dispatch.Runtime
}

// NewAddEvidenceTool creates an AddEvidenceTool.
func NewAddEvidenceTool(rt *dispatch.Runtime) *AddEvidenceTool {
	return &AddEvidenceTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_add_evidence.
func (t *AddEvidenceTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_add_evidence",
		mcp.WithDescription(
			"Bind an evidence reference to a claim. Re-binding the same reference is a no-op reported as duplicate.",
		),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim to attach evidence to"),
		),
		mcp.WithString("evidence_ref",
			mcp.Required(),
			mcp.Description("Reference to the evidence (log line, commit, incident ID, URL)"),
		),
		mcp.WithString("added_by",
			mcp.Description("Agent role adding the evidence"),
		),
		mcp.WithString("relation",
			mcp.Description("How the evidence bears on the claim: supports (default), contradicts, caused_by"),
		),
		mcp.WithNumber("weight",
			mcp.Description("Evidence weight (default 1.0)"),
		),
	)
}

// Handle processes the hive_add_evidence tool call.
func (t *AddEvidenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.AddEvidenceParams{
		ClaimID:     req.GetString("claim_id", ""),
		EvidenceRef: req.GetString("evidence_ref", ""),
		AddedBy:     req.GetString("added_by", ""),
		Relation:    claims.EvidenceRelation(req.GetString("relation", "")),
		Weight:      floatArg(req, "weight"),
	}
	return run(ctx, t.runtime, "add-evidence", params)
}
