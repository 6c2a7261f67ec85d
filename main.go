// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"waveviz/cmd"
	"waveviz/internal/log"
	"waveviz/pkg/build"
)

// main is the entry point for the visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load configuration
//
// 2. Running Phase:
//   - Serve the preview and drive the render loop
//   - Stream audio from a file or the microphone
//
// 3. Shutdown Phase:
//   - Handle termination signals
//   - Destroy the visualizer and release audio resources
func main() {
	// Development builds run without linker flags.
	if err := build.Initialize(); err != nil && !errors.Is(err, build.ErrMissingFlag) {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
