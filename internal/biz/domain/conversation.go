package domain

import "time"

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeP2P   ChatType = "p2p"
)

// IsGroup reports whether the chat has more than two participants
func (t ChatType) IsGroup() bool {
	return t == ChatTypeGroup
}

// Role is the speaker of a prompt element
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user message paired with the assistant's reply.
// Turns are immutable once written.
type Turn struct {
	ID        string
	ChatID    string
	UserID    string
	Username  string
	Message   string
	Response  string
	Timestamp time.Time
}

// Valid reports whether the turn can be persisted
func (t *Turn) Valid() bool {
	return t.ChatID != "" && t.Message != "" && t.Response != ""
}

// ChatMessage is a single prompt element sent to the completion backend
type ChatMessage struct {
	Role    Role
	Content string
}

// Pairs expands turns (oldest first) into alternating user/assistant messages
func Pairs(turns []Turn) []ChatMessage {
	out := make([]ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		out = append(out,
			ChatMessage{Role: RoleUser, Content: t.Message},
			ChatMessage{Role: RoleAssistant, Content: t.Response},
		)
	}
	return out
}

// ChatStats is the per-chat view returned by the stats command
type ChatStats struct {
	ChatID     string
	ChatTurns  int64
	TotalTurns int64
	Sleeping   bool
}
