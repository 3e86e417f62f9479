package claimtools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/config"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestRuntime builds an in-process runtime over a temp data directory.
func newTestRuntime(t *testing.T) *dispatch.Runtime {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	rt := dispatch.NewRuntime(dispatch.Options{Config: cfg, Mode: dispatch.ModeInProcess})
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// envelope parses the JSON envelope a tool call returns.
func envelope(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &m); err != nil {
		t.Fatalf("tool result is not a JSON envelope: %v\n%s", err, resultText(r))
	}
	return m
}

// ─── CreateClaimTool ─────────────────────────────────────────────────────────

func TestCreateClaimTool_Definition(t *testing.T) {
	tool := NewCreateClaimTool(newTestRuntime(t))
	def := tool.Definition()

	if def.Name != "hive_create_claim" {
		t.Errorf("tool name = %q, want %q", def.Name, "hive_create_claim")
	}

	props := def.InputSchema.Properties
	for _, p := range []string{"statement", "claim_type", "owner", "scopes", "idempotency_key", "confidence", "ttl_hours"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}

	required := map[string]bool{}
	for _, r := range def.InputSchema.Required {
		required[r] = true
	}
	if !required["statement"] || !required["claim_type"] {
		t.Errorf("required = %v, want statement and claim_type", def.InputSchema.Required)
	}
}

func TestCreateClaimTool_Handle(t *testing.T) {
	rt := newTestRuntime(t)
	tool := NewCreateClaimTool(rt)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"statement":  "the cache is the bottleneck",
		"claim_type": "hypothesis",
		"owner":      "infra",
		"scopes":     []interface{}{"svc/cache"},
	}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool call failed: %s", resultText(result))
	}

	env := envelope(t, result)
	if env["ok"] != true || env["status"] != "created" {
		t.Errorf("envelope = %v, want ok created", env)
	}
	claim, _ := env["claim"].(map[string]any)
	if claim["owner"] != "devops" {
		t.Errorf("owner = %v, want infra normalized to devops", claim["owner"])
	}
}

func TestCreateClaimTool_HandleError(t *testing.T) {
	tool := NewCreateClaimTool(newTestRuntime(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"claim_type": "fact",
	}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if !result.IsError {
		t.Fatal("missing statement accepted, want error result")
	}
	env := envelope(t, result)
	if env["ok"] != false || env["reason"] != "statement_required" {
		t.Errorf("envelope = %v, want statement_required", env)
	}
}

// ─── QueryClaimsTool ─────────────────────────────────────────────────────────

func TestQueryClaimsTool_Roundtrip(t *testing.T) {
	rt := newTestRuntime(t)
	create := NewCreateClaimTool(rt)
	query := NewQueryClaimsTool(rt)

	for _, stmt := range []string{"first claim", "second claim"} {
		result, err := create.Handle(context.Background(), makeReq(map[string]interface{}{
			"statement": stmt, "claim_type": "fact", "scopes": []interface{}{"svc/api"},
		}))
		if err != nil || result.IsError {
			t.Fatalf("create %q failed: %v %s", stmt, err, resultText(result))
		}
	}

	result, err := query.Handle(context.Background(), makeReq(map[string]interface{}{
		"scope": "svc/api",
	}))
	if err != nil || result.IsError {
		t.Fatalf("query failed: %v %s", err, resultText(result))
	}
	env := envelope(t, result)
	if total, _ := env["total"].(float64); total != 2 {
		t.Errorf("total = %v, want 2", env["total"])
	}
}

// ─── RecordConsensusTool ─────────────────────────────────────────────────────

func TestRecordConsensusTool_Handle(t *testing.T) {
	rt := newTestRuntime(t)
	create := NewCreateClaimTool(rt)
	consensus := NewConsensusTool(rt)

	result, err := create.Handle(context.Background(), makeReq(map[string]interface{}{
		"statement": "needs agreement", "claim_type": "fact",
	}))
	if err != nil || result.IsError {
		t.Fatalf("create failed: %v %s", err, resultText(result))
	}
	claim, _ := envelope(t, result)["claim"].(map[string]any)
	id, _ := claim["id"].(string)

	result, err = consensus.Handle(context.Background(), makeReq(map[string]interface{}{
		"claim_id": id,
		"agent":    "devops",
		"position": "support",
	}))
	if err != nil || result.IsError {
		t.Fatalf("consensus failed: %v %s", err, resultText(result))
	}
	env := envelope(t, result)
	if env["ok"] != true {
		t.Errorf("envelope = %v", env)
	}
	if !strings.Contains(resultText(result), "insufficient_consensus") {
		t.Errorf("single vote should report the missing roster: %s", resultText(result))
	}
}

// ─── Definitions across the surface ──────────────────────────────────────────

func TestToolNames(t *testing.T) {
	rt := newTestRuntime(t)
	defs := []mcp.Tool{
		NewCreateClaimTool(rt).Definition(),
		NewAddEvidenceTool(rt).Definition(),
		NewQueryClaimsTool(rt).Definition(),
		NewGetClaimTool(rt).Definition(),
		NewGetEvidenceTool(rt).Definition(),
		NewUpdateStatusTool(rt).Definition(),
		NewStatusHistoryTool(rt).Definition(),
		NewConsensusTool(rt).Definition(),
		NewSnapshotTool(rt).Definition(),
		NewBeliefsTool(rt).Definition(),
		NewContradictionsTool(rt).Definition(),
		NewCreateDecisionTool(rt).Definition(),
		NewRecordOutcomeTool(rt).Definition(),
		NewProcessSpoolTool(rt).Definition(),
		NewQueryPatternsTool(rt).Definition(),
		NewResolvePatternTool(rt).Definition(),
		NewStatsTool(rt).Definition(),
	}

	seen := map[string]bool{}
	for _, def := range defs {
		if !strings.HasPrefix(def.Name, "hive_") {
			t.Errorf("tool %q does not carry the hive_ prefix", def.Name)
		}
		if seen[def.Name] {
			t.Errorf("duplicate tool name %q", def.Name)
		}
		seen[def.Name] = true
		if def.Description == "" {
			t.Errorf("tool %q has no description", def.Name)
		}
	}
}
