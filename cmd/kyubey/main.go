package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ignatij/kyubey/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "kyubey",
	Short:        "Inspect orchestrator Systems, DagRuns, Tasks and their logs",
	SilenceUsage: true,
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
