package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "presscorner",
		Short: "presscorner scrapes press releases from the European Commission press corner.",
		Long: `presscorner scrapes press releases from the European Commission press corner.

Environment Variables:
  PRESSCORNER_CONFIG  Path to the config file (default: ~/.presscorner/config.yaml)
  PRESSCORNER_DB      Path to the document archive (default: none)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScrapeCmd())
	root.AddCommand(newDocsCmd())
	root.AddCommand(newRunsCmd())

	return root
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
