package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

func main() {
	telemetry.Start()
	defer telemetry.Stop()

	// Ctrl-C / SIGTERM handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	Execute(ctx)
}
