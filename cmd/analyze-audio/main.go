// Command analyze-audio runs the chunked deepfake detection pipeline on local
// audio files against a remote classifier.
//
// Usage:
//
//	analyze-audio [flags] <file>...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
