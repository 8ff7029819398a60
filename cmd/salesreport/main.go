package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"salesreport/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	defer a.close()

	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
