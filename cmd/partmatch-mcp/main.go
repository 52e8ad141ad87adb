// Package main provides the partmatch-mcp server.
//
// partmatch-mcp exposes catalog search over the published vector index via
// the Model Context Protocol, so MCP clients can resolve free-text part
// descriptions to catalog products.
//
// Usage:
//
//	partmatch-mcp [flags]
//
// The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asteroid-belt/partmatch/internal/config"
	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/mcp"
	"github.com/asteroid-belt/partmatch/internal/search"
	"github.com/asteroid-belt/partmatch/internal/telemetry"
	"github.com/asteroid-belt/partmatch/internal/vector"
	"github.com/asteroid-belt/partmatch/pkg/version"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("partmatch-mcp %s\n", version.Version)
		os.Exit(0)
	}

	// Handle --help flag
	if len(os.Args) > 1 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		printHelp()
		os.Exit(0)
	}

	// Setup context with cancellation on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "partmatch-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("PARTMATCH_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := log.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = log.Close() }()
	logger := log.Get()

	model, err := embedding.Open(cfg.EmbeddingOptions(), logger)
	if err != nil {
		return fmt.Errorf("open embedding model: %w", err)
	}
	index := vector.New(cfg.IndexOptions(), model, logger)
	if err := index.Load(ctx); err != nil {
		return fmt.Errorf("load index (run 'partmatch index build' first): %w", err)
	}

	tc := telemetry.New(telemetry.NewFileTrackingID(cfg.BaseDir), cfg.Telemetry.Disabled)
	defer tc.Close()
	tc.TrackAppStarted("mcp")

	svc := search.New(index, cfg.SearchOptions(), logger)
	logger.Info().Int("products", index.Size()).Str("model", model.ModelID()).Msg("mcp server ready")

	return mcp.NewServer(svc, tc).Serve(ctx)
}

func printHelp() {
	help := `partmatch-mcp - MCP server for partmatch catalog search

USAGE:
    partmatch-mcp [FLAGS]

FLAGS:
    -h, --help       Print this help message
    -v, --version    Print version information

DESCRIPTION:
    partmatch-mcp is a Model Context Protocol (MCP) server that exposes
    semantic search over a partmatch catalog index to MCP-compatible
    clients.

    The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).
    Build the index first with 'partmatch index build <catalog.json>'.

ENVIRONMENT:
    PARTMATCH_CONFIG     Config file (default: $XDG_DATA_HOME/partmatch/config.yaml)
    PARTMATCH_HOME       Data directory holding the index and model

CONFIGURATION:
    {
      "mcpServers": {
        "partmatch": {
          "type": "stdio",
          "command": "partmatch-mcp"
        }
      }
    }

TOOLS PROVIDED:
    partmatch_search       Rank catalog products against a description
    partmatch_lookup       Find products by exact code
    partmatch_index_stats  Describe the loaded index

RESOURCES PROVIDED:
    partmatch://product/{row}  Product metadata as JSON
`
	fmt.Print(help)
}
