package claimtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// ConsensusTool handles the hive_record_consensus MCP tool.
type ConsensusTool struct {
	runtime *dispatch.Runtime
}

// NewConsensusTool creates a ConsensusTool.
func NewConsensusTool(rt *dispatch.Runtime) *ConsensusTool {
	return &ConsensusTool{runtime: rt}
}

// Definition returns the MCP tool definition for hive_record_consensus.
func (t *ConsensusTool) Definition() mcp.Tool {
	return mcp.NewTool("hive_record_consensus",
		mcp.WithDescription(
			"Record an agent's position on a claim (one vote per agent, re-voting replaces it). "+
				"A challenge contests the claim; unanimous support across the active roster confirms it. "+
				"Otherwise the result reports which agents are still missing.",
		),
		mcp.WithString("claim_id",
			mcp.Required(),
			mcp.Description("Claim ID (clm_...)"),
		),
		mcp.WithString("agent",
			mcp.Required(),
			mcp.Description("Voting agent role (normalized through the role alias table)"),
		),
		mcp.WithString("position",
			mcp.Required(),
			mcp.Description("One of: support, challenge, abstain"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the agent holds this position"),
		),
		mcp.WithArray("active_agents",
			mcp.Description("Roster whose unanimous support confirms the claim (default: configured roster)"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the hive_record_consensus tool call.
func (t *ConsensusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := claims.ConsensusParams{
		ClaimID:      req.GetString("claim_id", ""),
		Agent:        req.GetString("agent", ""),
		Position:     claims.Position(req.GetString("position", "")),
		Reason:       req.GetString("reason", ""),
		ActiveAgents: stringListArg(req, "active_agents"),
	}
	return run(ctx, t.runtime, "record-consensus", params)
}
