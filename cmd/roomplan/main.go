// RoomPlan: MIP floor planner for rectangular rooms
//
// Places rooms inside a rectangular boundary without overlap and optimizes
// unused area, total perimeter, adjacency or compactness.
//
// Build:
//   go build -o roomplan ./cmd/roomplan
//
// Release build with version info:
//   go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse --short HEAD)" ./cmd/roomplan

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/piwi3910/RoomPlan/internal/cli"
	_ "github.com/piwi3910/RoomPlan/internal/mip/branch"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.SetVersion(version, commit, date)
	root := cli.New(os.Stdout, os.Stderr).RootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
