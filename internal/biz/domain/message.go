package domain

import "time"

// Message represents an inbound chat message after transport decoding
type Message struct {
	ID           string
	ChatID       string
	ChatType     ChatType
	Content      string
	SenderID     string
	SenderName   string
	CreateTime   time.Time
	ReplyToSelf  bool // Message replies to one of the bot's own messages
	MentionsSelf bool // Message @-mentions the bot
}

// DisplayName returns the best available sender label
func (m *Message) DisplayName() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderID
}

// TextFormat is a formatting hint for outbound text
type TextFormat int

const (
	FormatPlain TextFormat = iota
	FormatMarkdown
)
