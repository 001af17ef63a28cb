// Package main provides the entry point for the timeline CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcliao/timeline/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
