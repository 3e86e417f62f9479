package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the hive-review MCP prompt.
// It instructs the AI to audit the health of the claim graph.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hive-review",
		mcp.WithPromptDescription(
			"Review the health of the claim graph: contested claims, "+
				"unresolved contradictions, and active risk patterns.",
		),
	)
}

// Handle processes the hive-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Claim graph health review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please audit the shared claim graph.\n\n" +
						"1. Run `hive_stats` and summarize the overall shape of the graph\n" +
						"2. Run `hive_query_claims` with status='contested' and list each contested claim " +
						"with the evidence on both sides (`hive_get_evidence`)\n" +
						"3. Run `hive_get_contradictions` and flag any pair that is still unresolved\n" +
						"4. Run `hive_query_patterns` with active=true, ordered by risk, and tell me which " +
						"patterns need attention first\n" +
						"5. Recommend concrete next steps: claims to challenge, evidence to gather, " +
						"patterns to resolve with `hive_resolve_pattern`",
				),
			},
		},
	}, nil
}
