// Package claimtools provides MCP tool handlers for the claim-graph
// engine.
//
// Each tool follows the same pattern:
// - A struct holding the dispatch runtime, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() builds the operation payload and routes it through dispatch
//
// Tools never touch the store directly: every call goes through the
// runtime so in-process and worker execution behave identically.
package claimtools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument, returning nil when absent.
func floatArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringListArg extracts a string-array argument, skipping non-string
// entries.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// run marshals params, executes the named operation through the runtime,
// and renders the tagged result envelope as the tool output. Operation
// failures come back as tool errors with the same envelope, so callers
// always see {ok, reason?, ...}.
func run(ctx context.Context, rt *dispatch.Runtime, op string, params any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode %s payload: %v", op, err)), nil
	}
	resp := rt.Execute(ctx, dispatch.Request{Op: op, Payload: payload})
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode %s result: %v", op, err)), nil
	}
	if !resp.OK {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
