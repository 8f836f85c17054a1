package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/domain"
)

const (
	defaultTurnLimit = 10
	maxTurnLimit     = 100
)

// ChatCommands is the store-facing subset of the command usecase
type ChatCommands interface {
	Stats(ctx context.Context, chatID string) (*domain.ChatStats, error)
	History(ctx context.Context, chatID string, limit int) ([]domain.Turn, error)
	Clear(ctx context.Context, chatID string) (int64, error)
}

// Server exposes conversation-store tools to MCP clients
type Server struct {
	server   *mcp.Server
	commands ChatCommands
	logger   *zap.Logger
}

// NewServer creates a new MCP server and registers its tools
func NewServer(commands ChatCommands, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "riri-tools",
			Version: version,
		}, nil),
		commands: commands,
		logger:   logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "riri_chat_stats",
		Description: "Get the number of stored conversations for a chat and across all chats.",
	}, s.handleChatStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "riri_recent_turns",
		Description: "Get the most recent stored question/answer turns of a chat, oldest first.",
	}, s.handleRecentTurns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "riri_clear_chat",
		Description: "Delete every stored conversation turn of a chat. This cannot be undone.",
	}, s.handleClearChat)
}

// ChatInput identifies a chat
type ChatInput struct {
	ChatID string `json:"chat_id" jsonschema:"the chat or channel id"`
}

// ChatStatsOutput is the output of riri_chat_stats
type ChatStatsOutput struct {
	ChatID     string `json:"chat_id"`
	ChatTurns  int64  `json:"chat_turns"`
	TotalTurns int64  `json:"total_turns"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleChatStats(ctx context.Context, req *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, ChatStatsOutput, error) {
	if input.ChatID == "" {
		return nil, ChatStatsOutput{Error: "chat_id is required"}, nil
	}

	stats, err := s.commands.Stats(ctx, input.ChatID)
	if err != nil {
		return nil, ChatStatsOutput{ChatID: input.ChatID, Error: err.Error()}, nil
	}
	return nil, ChatStatsOutput{
		ChatID:     stats.ChatID,
		ChatTurns:  stats.ChatTurns,
		TotalTurns: stats.TotalTurns,
	}, nil
}

// RecentTurnsInput selects a chat and how many turns to return
type RecentTurnsInput struct {
	ChatID string `json:"chat_id" jsonschema:"the chat or channel id"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of turns to return (default 10, max 100)"`
}

// TurnView is a stored turn as returned to MCP clients
type TurnView struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp int64  `json:"timestamp"`
}

// RecentTurnsOutput is the output of riri_recent_turns
type RecentTurnsOutput struct {
	Turns []TurnView `json:"turns"`
	Error string     `json:"error,omitempty"`
}

func (s *Server) handleRecentTurns(ctx context.Context, req *mcp.CallToolRequest, input RecentTurnsInput) (*mcp.CallToolResult, RecentTurnsOutput, error) {
	if input.ChatID == "" {
		return nil, RecentTurnsOutput{Error: "chat_id is required"}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultTurnLimit
	}
	limit = min(limit, maxTurnLimit)

	turns, err := s.commands.History(ctx, input.ChatID, limit)
	if err != nil {
		return nil, RecentTurnsOutput{Error: err.Error()}, nil
	}

	out := RecentTurnsOutput{Turns: make([]TurnView, 0, len(turns))}
	for _, t := range turns {
		out.Turns = append(out.Turns, TurnView{
			Username:  t.Username,
			Message:   t.Message,
			Response:  t.Response,
			Timestamp: t.Timestamp.Unix(),
		})
	}
	return nil, out, nil
}

// ClearChatOutput is the output of riri_clear_chat
type ClearChatOutput struct {
	Success bool   `json:"success"`
	Removed int64  `json:"removed"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleClearChat(ctx context.Context, req *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, ClearChatOutput, error) {
	if input.ChatID == "" {
		return nil, ClearChatOutput{Error: "chat_id is required"}, nil
	}

	removed, err := s.commands.Clear(ctx, input.ChatID)
	if err != nil {
		return nil, ClearChatOutput{Error: fmt.Sprintf("clear %s: %v", input.ChatID, err)}, nil
	}
	s.logger.Info("chat cleared", zap.String("chat_id", input.ChatID), zap.Int64("removed", removed))
	return nil, ClearChatOutput{Success: true, Removed: removed}, nil
}
