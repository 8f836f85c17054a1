package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	// maxMessageLen is Discord's per-message content limit
	maxMessageLen = 2000
	baseBackoff   = 2 * time.Second
	maxBackoff    = 30 * time.Second
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
// *discordgo.Session satisfies it.
type session interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

// Message represents a received Discord message
type Message struct {
	ChannelID   string
	GuildID     string // Empty for direct messages
	MsgID       string
	AuthorID    string
	AuthorName  string
	Content     string // Bot mention tokens removed
	MentionsBot bool
	ReplyToBot  bool
	Timestamp   time.Time
}

// IsDirect reports whether the message came from a DM channel
func (m *Message) IsDirect() bool {
	return m.GuildID == ""
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Discord gateway client
type Client struct {
	sess        session
	mu          sync.Mutex
	botUserID   string
	onMessage   MessageHandler
	baseBackoff time.Duration
	logger      *zap.Logger
}

// NewClient creates a client with a real gateway session
func NewClient(botToken string, logger *zap.Logger) (*Client, error) {
	if botToken == "" {
		return nil, errors.New("discord: bot token is required")
	}
	dg, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	// Gateway events reach handlers in order; OnMessage handlers must not block
	dg.SyncEvents = true
	return newClientWithSession(dg, logger), nil
}

func newClientWithSession(sess session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		sess:        sess,
		baseBackoff: baseBackoff,
		logger:      logger.Named("discord"),
	}
}

// OnMessage sets the message handler; it runs in delivery order and must return quickly
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start opens the gateway and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	c.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.SetBotUserID(r.User.ID)
		c.logger.Info("connected", zap.String("user", r.User.Username), zap.String("user_id", r.User.ID))
	})
	c.sess.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.logger.Warn("gateway disconnected, discordgo will reconnect")
	})
	remove := c.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		c.handleMessage(m)
	})
	defer remove()

	if err := c.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	<-ctx.Done()
	if err := c.sess.Close(); err != nil {
		c.logger.Warn("close gateway", zap.Error(err))
	}
	return nil
}

// BotUserID returns the bot's user ID (known after Ready)
func (c *Client) BotUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.botUserID
}

// SetBotUserID sets the bot user ID
func (c *Client) SetBotUserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.botUserID = id
}

func (c *Client) handleMessage(m *discordgo.MessageCreate) {
	msg := c.convertMessage(m)
	if msg == nil {
		return
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// convertMessage returns nil for messages the bot must not answer
func (c *Client) convertMessage(m *discordgo.MessageCreate) *Message {
	if m == nil || m.Message == nil || m.Author == nil {
		return nil
	}
	botID := c.BotUserID()
	if m.Author.ID == botID || m.Author.Bot {
		return nil
	}

	msg := &Message{
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		MsgID:      m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
	}
	msg.Timestamp, _ = discordgo.SnowflakeTimestamp(m.ID)

	if botID != "" {
		for _, u := range m.Mentions {
			if u != nil && u.ID == botID {
				msg.MentionsBot = true
				break
			}
		}
		if ref := m.ReferencedMessage; ref != nil && ref.Author != nil && ref.Author.ID == botID {
			msg.ReplyToBot = true
		}
		msg.Content = stripMention(msg.Content, botID)
	}
	return msg
}

// stripMention removes <@id> and <@!id> tokens for the bot
func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

// SendText sends text, splitting it to respect the message length limit
func (c *Client) SendText(ctx context.Context, channelID, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		err := c.retryOnRateLimit(ctx, func() error {
			_, sendErr := c.sess.ChannelMessageSend(channelID, chunk)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("discord: send message: %w", err)
		}
	}
	return nil
}

// SendTyping shows the typing indicator in a channel
func (c *Client) SendTyping(ctx context.Context, channelID string) error {
	if err := c.sess.ChannelTyping(channelID); err != nil {
		return fmt.Errorf("discord: typing: %w", err)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// retryOnRateLimit honors one HTTP 429 by waiting out Retry-After and trying again.
// Any other failure, or a second 429, is returned to the caller.
func (c *Client) retryOnRateLimit(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
		return err
	}

	wait := retryAfter(restErr.Response, c.baseBackoff)
	c.logger.Warn("rate limited, retrying once", zap.Duration("wait", wait))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}
	return fn()
}

// retryAfter reads the Retry-After header in seconds, capped at maxBackoff
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	wait := fallback
	if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs >= 0 {
		wait = time.Duration(secs * float64(time.Second))
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	return wait
}
