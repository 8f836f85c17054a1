package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deadraisers/riri/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve conversation-store tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			turns, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return mcp.NewServer(newStoreCommands(cfg, turns), Version, logger).Run(ctx)
		},
	}
}
