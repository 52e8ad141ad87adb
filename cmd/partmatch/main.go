// partmatch - semantic product matching against a parts catalog.
//
// Builds a versioned vector index over a product catalog and ranks
// catalog products against free-text queries.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asteroid-belt/partmatch/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// The CLI creates its telemetry client once the config is loaded.
	if err := cli.Execute(ctx, nil); err != nil {
		os.Exit(1)
	}
}
