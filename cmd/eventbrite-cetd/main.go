package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"eventbrite-cetd/cmd/eventbrite-cetd/commands"
	"eventbrite-cetd/lib/osutil"
	"eventbrite-cetd/lib/telemetry"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())

	t, err := telemetry.SetupFromEnv(ctx, "eventbrite-cetd")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
	}

	code := commands.ExecuteContext(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Shutdown(shutdownCtx)
	shutdownCancel()
	cancel()
	os.Exit(code)
}
