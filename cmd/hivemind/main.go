// Hivemind: shared claim-graph MCP server for multi-agent coordination.
//
// Agents record facts, decisions, hypotheses, and negative findings as
// claims, vote on each other's claims, and query mined behavioral
// patterns — all over one embedded SQLite database.
//
// Usage:
//
//	hivemind serve    # Start MCP server (stdio transport)
//	hivemind mine     # Run one pattern-mining pass and exit
//	hivemind check    # Run a database integrity check and exit
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/anamnesos/hivemind-sub007/internal/config"
	"github.com/anamnesos/hivemind-sub007/internal/dispatch"
	hiveserver "github.com/anamnesos/hivemind-sub007/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mine":
		runOnce("process-pattern-spool")
	case "check":
		runOnce("integrity-check")
	case "stats":
		runOnce("get-stats")
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("hivemind v%s\n", hiveserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	s, cleanup, err := hiveserver.New(config.Load())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt. All diagnostics go to stderr;
	// stdout belongs to the MCP stdio transport.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// runOnce executes a single named operation against an in-process
// runtime and prints the result envelope.
func runOnce(op string) {
	runtime := dispatch.NewRuntime(dispatch.Options{
		Config: config.Load(),
		Mode:   dispatch.ModeInProcess,
	})
	defer runtime.Close()

	resp := runtime.Execute(context.Background(), dispatch.Request{Op: op})
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if !resp.OK {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Hivemind v%s — shared claim-graph MCP server

Usage:
  hivemind serve    Start the MCP server (stdio transport)
  hivemind mine     Run one pattern-mining pass and exit
  hivemind check    Run a database integrity check and exit
  hivemind stats    Print claim-graph statistics and exit

Environment:
  HIVEMIND_DATA_DIR          Data directory (default ~/.hivemind)
  HIVEMIND_SPOOL             Event spool path (default DATA_DIR/pattern-spool.ndjson)
  HIVEMIND_AGENTS            Comma-separated consensus roster
  HIVEMIND_FORCE_IN_PROCESS  Skip worker dispatch (tests)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "hivemind": {
        "command": "hivemind",
        "args": ["serve"]
      }
    }
  }
`, hiveserver.Version)
}
