// Package prompts implements MCP prompt handlers for the claim engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SyncPrompt handles the hive-sync MCP prompt.
// It guides an agent through rejoining the shared claim graph at the
// start of a session.
type SyncPrompt struct{}

// NewSyncPrompt creates a SyncPrompt.
func NewSyncPrompt() *SyncPrompt {
	return &SyncPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SyncPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hive-sync",
		mcp.WithPromptDescription(
			"Sync with the shared claim graph at the start of a session: "+
				"pull recent claims, check your beliefs for contradictions, "+
				"and vote on anything awaiting consensus.",
		),
		mcp.WithArgument("agent",
			mcp.ArgumentDescription("Your agent role (architect, devops, or analyst)"),
		),
		mcp.WithArgument("scope",
			mcp.ArgumentDescription("Scope to focus on (e.g. a module path). Default: everything recent"),
		),
	)
}

// Handle processes the hive-sync prompt request.
func (p *SyncPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	agent := "analyst"
	if args := req.Params.Arguments; args != nil {
		if a, ok := args["agent"]; ok && a != "" {
			agent = a
		}
	}

	scopeStep := "1. Run `hive_query_claims` with sessions_back=3 to see what other agents recorded recently\n"
	if args := req.Params.Arguments; args != nil {
		if s, ok := args["scope"]; ok && s != "" {
			scopeStep = fmt.Sprintf("1. Run `hive_query_claims` with scope='%s' to see what is claimed about it\n", s)
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Sync %s with the claim graph", agent),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I am working as the '%s' agent and want to sync with the shared claim graph.\n\n"+
						"Please:\n"+
						"%s"+
						"2. Run `hive_belief_snapshot` with agent='%s' and report any contradictions it finds\n"+
						"3. Run `hive_query_claims` with status='proposed' and, for each claim you can judge, "+
						"record a position with `hive_record_consensus`\n"+
						"4. Summarize what the rest of the swarm believes that I should know before starting work",
					agent, scopeStep, agent,
				)),
			},
		},
	}, nil
}
