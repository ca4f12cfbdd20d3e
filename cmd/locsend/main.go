// Command locsend sends simulated GPS location telemetry to a ThingsBoard
// device endpoint, either once or as a timed random walk.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
