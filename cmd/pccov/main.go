package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := newConvertCmd()

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
