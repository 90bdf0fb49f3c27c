package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"splitmerge/internal/services"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		code := reportError(os.Stderr, err)
		stop()
		os.Exit(code)
	}
}

// reportError prints err and returns the process exit code. Configuration
// problems exit with 2 and point at 'config validate'.
func reportError(w io.Writer, err error) int {
	if errors.Is(err, context.Canceled) {
		return exitFailure
	}
	fmt.Fprintln(w, err)
	if services.IsConfiguration(err) {
		fmt.Fprintln(w, "hint: run 'splitmerge config validate' to check settings")
		return exitConfig
	}
	return exitFailure
}
