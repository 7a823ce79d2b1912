package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/docsync/internal/client/cli"
	"github.com/iudanet/docsync/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Ctrl+C останавливает watch и прерывает сетевые запросы
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(iocli.NewStdio(), os.Stderr, cli.VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	})
	defer func() {
		if err := c.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close replica: %v\n", err)
		}
	}()

	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cli.IsUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}
