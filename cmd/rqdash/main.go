// Command rqdash manages the Docker lifecycle of the related-queries
// dashboard: building its image, running it persistently or for a
// foreground dev session, and cleaning up what Docker leaves behind.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trendops/rqdash/internal/cli"
)

// Build metadata, injected at build time via -ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl-C cancels the command context. The dev command relies on this
	// to stop its container gracefully before tearing down the session.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand()
	cli.Execute(ctx, rootCmd)
}
