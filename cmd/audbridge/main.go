// SPDX-License-Identifier: EPL-2.0

// Command audbridge plays, records and generates audio through the bridge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "audbridge:", err)
		os.Exit(1)
	}
}
