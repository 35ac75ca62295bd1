package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:   "arty-web",
		Short: "Web front-end for the ARTY image search backend",
		Long: `arty-web serves the ARTY search and user pages.

It keeps per-browser page state on the server and talks to the ARTY
image backend for listings, search results and saved images.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		// Running without a subcommand starts the server
		RunE: serve.RunE,
	}
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newPurgeCacheCmd())

	return cmd
}
