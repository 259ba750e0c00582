package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.  Running the binary without a
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:          "server",
		Short:        "Restaurant reservation service and assistant",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newChatCmd(), newToolsCmd())
	return root
}
