// Package server wires the claim engine and creates the MCP server
// instance.
//
// This is the composition root: it builds the dispatch runtime and the
// sweeper and injects them into the tool handlers. No business logic
// lives here — only wiring.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/anamnesos/hivemind-sub007/internal/claimtools"
	"github.com/anamnesos/hivemind-sub007/internal/config"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
	"github.com/anamnesos/hivemind-sub007/internal/prompts"
	"github.com/anamnesos/hivemind-sub007/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all claim tools
// registered. The store itself is opened lazily by the runtime on the
// first tool call, so a broken data directory surfaces as an unavailable
// result rather than a startup crash.
//
// The returned cleanup function stops the sweeper and closes the store;
// it must be called on shutdown (typically via defer) and is always
// non-nil.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	runtime := dispatch.NewRuntime(dispatch.Options{Config: cfg})

	sweeper := dispatch.NewSweeper(runtime, cfg)
	sweeper.Start()

	cleanup := func() {
		sweeper.Stop()
		_ = runtime.Close()
	}

	s := server.NewMCPServer(
		"hivemind",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerClaimTools(s, runtime)

	// --- Register prompts ---

	syncPrompt := prompts.NewSyncPrompt()
	s.AddPrompt(syncPrompt.Definition(), syncPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(runtime)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)
	s.AddResource(resourceHandler.PatternsResource(), resourceHandler.HandlePatterns)

	return s, cleanup, nil
}

// registerClaimTools registers the full operation surface as MCP tools.
func registerClaimTools(s *server.MCPServer, rt *dispatch.Runtime) {
	// --- Claims ---
	createClaim := claimtools.NewCreateClaimTool(rt)
	s.AddTool(createClaim.Definition(), createClaim.Handle)

	getClaim := claimtools.NewGetClaimTool(rt)
	s.AddTool(getClaim.Definition(), getClaim.Handle)

	queryClaims := claimtools.NewQueryClaimsTool(rt)
	s.AddTool(queryClaims.Definition(), queryClaims.Handle)

	updateStatus := claimtools.NewUpdateStatusTool(rt)
	s.AddTool(updateStatus.Definition(), updateStatus.Handle)

	statusHistory := claimtools.NewStatusHistoryTool(rt)
	s.AddTool(statusHistory.Definition(), statusHistory.Handle)

	// --- Evidence ---
	addEvidence := claimtools.NewAddEvidenceTool(rt)
	s.AddTool(addEvidence.Definition(), addEvidence.Handle)

	getEvidence := claimtools.NewGetEvidenceTool(rt)
	s.AddTool(getEvidence.Definition(), getEvidence.Handle)

	// --- Consensus ---
	consensus := claimtools.NewConsensusTool(rt)
	s.AddTool(consensus.Definition(), consensus.Handle)

	// --- Beliefs ---
	snapshot := claimtools.NewSnapshotTool(rt)
	s.AddTool(snapshot.Definition(), snapshot.Handle)

	beliefs := claimtools.NewBeliefsTool(rt)
	s.AddTool(beliefs.Definition(), beliefs.Handle)

	contradictions := claimtools.NewContradictionsTool(rt)
	s.AddTool(contradictions.Definition(), contradictions.Handle)

	// --- Decisions ---
	createDecision := claimtools.NewCreateDecisionTool(rt)
	s.AddTool(createDecision.Definition(), createDecision.Handle)

	recordOutcome := claimtools.NewRecordOutcomeTool(rt)
	s.AddTool(recordOutcome.Definition(), recordOutcome.Handle)

	// --- Patterns ---
	processSpool := claimtools.NewProcessSpoolTool(rt)
	s.AddTool(processSpool.Definition(), processSpool.Handle)

	queryPatterns := claimtools.NewQueryPatternsTool(rt)
	s.AddTool(queryPatterns.Definition(), queryPatterns.Handle)

	resolvePattern := claimtools.NewResolvePatternTool(rt)
	s.AddTool(resolvePattern.Definition(), resolvePattern.Handle)

	// --- Stats ---
	stats := claimtools.NewStatsTool(rt)
	s.AddTool(stats.Definition(), stats.Handle)
}

// serverInstructions returns the system instructions that tell an agent
// how to use the claim graph effectively.
func serverInstructions() string {
	return `You have access to Hivemind, a shared claim graph for coordinating
concurrent agents.

Record what you learn as claims (hive_create_claim) with scope tags and an
idempotency_key so retried calls are safe. Attach supporting or
contradicting evidence with hive_add_evidence. Vote on other agents'
claims with hive_record_consensus: a challenge contests a claim, and
unanimous support across the active roster confirms it.

Before acting on accumulated beliefs, run hive_belief_snapshot to surface
logical contradictions in what you currently hold. Record significant
choices with hive_create_decision and settle them later with
hive_record_outcome.

hive_query_patterns exposes recurring coordination, failure, and success
signals mined from agent activity — check it when work in a scope keeps
stalling.`
}
