package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [chat_id]",
		Short: "Print conversation store counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			turns, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				total, err := turns.CountAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total conversations: %d\n", total)
				return nil
			}

			stats, err := newStoreCommands(cfg, turns).Stats(ctx, args[0])
			if err != nil {
				return err
			}
			// Sleep state lives in the serving process, so only store counts are printed
			fmt.Fprintf(out, "Chat %s: %d conversations\nTotal across all chats: %d\n", stats.ChatID, stats.ChatTurns, stats.TotalTurns)
			return nil
		},
	}
}
