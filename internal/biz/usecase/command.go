package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/repo"
)

// CommandTexts contains the static operator replies
type CommandTexts struct {
	Welcome string
	Info    string
	Cleared string
}

// CommandUsecase serves start/info/stats/clear against the store and activity state
type CommandUsecase struct {
	turnRepo repo.TurnRepo
	activity *ActivityStore
	gate     *GateUsecase
	texts    CommandTexts
}

// NewCommandUsecase creates a new command usecase
func NewCommandUsecase(
	turnRepo repo.TurnRepo,
	activity *ActivityStore,
	gate *GateUsecase,
	texts CommandTexts,
) *CommandUsecase {
	return &CommandUsecase{
		turnRepo: turnRepo,
		activity: activity,
		gate:     gate,
		texts:    texts,
	}
}

// Execute runs a command for a chat and returns the reply text
func (uc *CommandUsecase) Execute(ctx context.Context, cmd domain.Command, chatID string) (string, error) {
	switch cmd {
	case domain.CommandStart:
		return uc.texts.Welcome, nil
	case domain.CommandInfo:
		return uc.InfoText(), nil
	case domain.CommandStats:
		stats, err := uc.Stats(ctx, chatID)
		if err != nil {
			return "", err
		}
		return FormatStats(stats), nil
	case domain.CommandClear:
		if _, err := uc.Clear(ctx, chatID); err != nil {
			return "", err
		}
		return uc.texts.Cleared, nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}

// InfoText is the help text followed by the phrase tables
func (uc *CommandUsecase) InfoText() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(uc.texts.Info))
	sb.WriteString("\n\nWake me with: ")
	sb.WriteString(strings.Join(uc.gate.WakePhrases(), ", "))
	sb.WriteString("\nSend me to sleep with: ")
	sb.WriteString(strings.Join(uc.gate.SleepPhrases(), ", "))
	return sb.String()
}

// Stats reads store counts and the sleep flag of a chat
func (uc *CommandUsecase) Stats(ctx context.Context, chatID string) (*domain.ChatStats, error) {
	chatCount, err := uc.turnRepo.CountByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("count chat turns: %w", err)
	}
	total, err := uc.turnRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count all turns: %w", err)
	}
	return &domain.ChatStats{
		ChatID:     chatID,
		ChatTurns:  chatCount,
		TotalTurns: total,
		Sleeping:   uc.activity.IsSleeping(chatID),
	}, nil
}

// Clear deletes every stored turn of a chat
func (uc *CommandUsecase) Clear(ctx context.Context, chatID string) (int64, error) {
	n, err := uc.turnRepo.DeleteChat(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete chat turns: %w", err)
	}
	return n, nil
}

// History returns up to limit recent turns of a chat, oldest first
func (uc *CommandUsecase) History(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	turns, err := uc.turnRepo.Recent(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	return turns, nil
}

// FormatStats renders stats for a chat reply
func FormatStats(s *domain.ChatStats) string {
	state := "awake"
	if s.Sleeping {
		state = "asleep"
	}
	return fmt.Sprintf("📊 Chat Statistics\n\nThis chat: %d conversations\nTotal across all chats: %d\nStatus: %s",
		s.ChatTurns, s.TotalTurns, state)
}
