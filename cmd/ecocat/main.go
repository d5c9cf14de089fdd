// Command ecocat drives the clearance-proposal pipeline: list the portal's
// proposals, fetch what is new or stale, extract tabular data, build GeoJSON
// from the referenced KML, and combine the outputs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite" // catalog driver
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ecocat:", err)
		os.Exit(1)
	}
}
