package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
	"github.com/deadraisers/riri/internal/conf"
	"github.com/deadraisers/riri/internal/data"
	"github.com/deadraisers/riri/internal/infra/discord"
	"github.com/deadraisers/riri/internal/infra/feishu"
)

func newSendCmd() *cobra.Command {
	var (
		transport string
		markdown  bool
	)

	cmd := &cobra.Command{
		Use:   "send <chat_id> <text>",
		Short: "Send one message to a chat through a configured transport",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			messages, err := newMessageRepo(cfg, transport)
			if err != nil {
				return err
			}

			format := domain.FormatPlain
			if markdown {
				format = domain.FormatMarkdown
			}
			chatID, text := args[0], strings.Join(args[1:], " ")
			if err := messages.SendText(cmd.Context(), chatID, text, format); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d chars to %s via %s\n", len(text), chatID, transport)
			return nil
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "feishu", "transport to send through (feishu or discord)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "send as markdown where the transport distinguishes it")
	return cmd
}

func newMessageRepo(cfg *conf.Config, transport string) (repo.MessageRepo, error) {
	switch transport {
	case "feishu":
		if !cfg.Feishu.Enabled() {
			return nil, &conf.ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required for feishu"}
		}
		return data.NewFeishuRepo(feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)), nil
	case "discord":
		if !cfg.Discord.Enabled() {
			return nil, &conf.ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "required for discord"}
		}
		client, err := discord.NewClient(cfg.Discord.BotToken, logger)
		if err != nil {
			return nil, err
		}
		return data.NewDiscordRepo(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
