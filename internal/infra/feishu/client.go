package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// Message represents a received Feishu message
type Message struct {
	ChatID      string
	MsgID       string
	MsgType     string // text, post
	ChatType    string // p2p (private), group
	Content     string // Text content with mention placeholders replaced
	ParentID    string // Message this one replies to, if any
	Sender      *Sender
	MentionsBot bool  // True if the bot was mentioned
	ReplyToBot  bool  // True if ParentID is a message the bot sent
	CreateTime  int64 // Milliseconds Unix timestamp from Feishu
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	onMessage MessageHandler
	botOpenID string // Bot's own open_id
	sent      *sentTracker
	logger    *zap.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		sent:      newSentTracker(24*time.Hour, 10000),
		logger:    logger.Named("feishu"),
	}
}

// OnMessage sets the message handler; it runs in delivery order and must return quickly
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects via WebSocket and blocks until ctx is done or the connection fails
func (c *Client) Start(ctx context.Context) error {
	if err := c.fetchBotOpenID(ctx); err != nil {
		c.logger.Warn("failed to fetch bot open_id, mentions will not be detected", zap.Error(err))
	}

	// Handled inline to keep delivery order; onMessage only enqueues, so the SDK still ACKs promptly
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			c.handleMessage(event)
			return nil
		})

	wsCli := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting WebSocket connection")
	return wsCli.Start(ctx)
}

// fetchBotOpenID fetches the bot's own open_id
func (c *Client) fetchBotOpenID(ctx context.Context) error {
	tokenReq := fmt.Sprintf(`{"app_id":"%s","app_secret":"%s"}`, c.appID, c.appSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://open.feishu.cn/open-apis/auth/v3/tenant_access_token/internal",
		strings.NewReader(tokenReq))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	tokenResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://open.feishu.cn/open-apis/bot/v3/info", nil)
	if err != nil {
		return fmt.Errorf("build bot info request: %w", err)
	}
	infoReq.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(infoReq)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	c.logger.Info("bot identity resolved",
		zap.String("open_id", c.botOpenID),
		zap.String("name", botResult.Bot.AppName))
	return nil
}

// handleMessage converts a receive event and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	msg := c.convertEvent(event)
	if msg == nil {
		return
	}

	c.logger.Debug("received message",
		zap.String("chat_id", msg.ChatID),
		zap.String("chat_type", msg.ChatType),
		zap.String("msg_type", msg.MsgType),
		zap.Bool("mentions_bot", msg.MentionsBot),
		zap.Bool("reply_to_bot", msg.ReplyToBot))

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// convertEvent returns nil for events the bot must not answer
func (c *Client) convertEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	rawMsg := event.Event.Message

	// Ignore the bot's own messages to prevent loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil &&
		*event.Event.Sender.SenderType == "app" {
		return nil
	}

	msg := &Message{
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		MsgType:  deref(rawMsg.MessageType),
		ChatType: deref(rawMsg.ChatType),
		ParentID: deref(rawMsg.ParentId),
	}

	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}

	if event.Event.Sender != nil {
		msg.Sender = &Sender{SenderType: deref(event.Event.Sender.SenderType)}
		if event.Event.Sender.SenderId != nil {
			msg.Sender.SenderID = deref(event.Event.Sender.SenderId.OpenId)
		}
	}

	// Map placeholder keys (@_user_1) to names and detect bot mentions
	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention == nil {
			continue
		}
		if mention.Id != nil && mention.Id.OpenId != nil && c.botOpenID != "" &&
			*mention.Id.OpenId == c.botOpenID {
			msg.MentionsBot = true
		}
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	if msg.ParentID != "" {
		msg.ReplyToBot = c.sent.Contains(msg.ParentID, time.Now())
	}

	content := deref(rawMsg.Content)
	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content, mentionMap)
	case "post":
		msg.Content = parsePostContent(content, mentionMap)
	default:
		c.logger.Debug("unsupported message type", zap.String("msg_type", msg.MsgType))
		return nil
	}
	return msg
}

// parseTextContent extracts text from a text message, replacing mention placeholders
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message to plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"` // for "at" tags
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text", "md":
				if elem.Text != "" {
					parts = append(parts, elem.Text)
				}
			case "at":
				if elem.UserID == "" {
					continue
				}
				if name, ok := mentionMap[elem.UserID]; ok {
					parts = append(parts, "@"+name)
				} else {
					parts = append(parts, "@"+elem.UserID)
				}
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}

	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders (@_user_1) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a plain text message and returns its message ID
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.send(ctx, chatID, larkim.MsgTypeText, string(contentJSON))
}

// SendMarkdown sends a post message with a single markdown element
func (c *Client) SendMarkdown(ctx context.Context, chatID, text string) (string, error) {
	post := map[string]any{
		"zh_cn": map[string]any{
			"content": [][]map[string]string{
				{{"tag": "md", "text": text}},
			},
		},
	}
	contentJSON, _ := json.Marshal(post)
	return c.send(ctx, chatID, larkim.MsgTypePost, string(contentJSON))
}

func (c *Client) send(ctx context.Context, chatID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send message error: %s", resp.Msg)
	}

	msgID := ""
	if resp.Data != nil {
		msgID = deref(resp.Data.MessageId)
	}
	if msgID != "" {
		c.sent.Add(msgID, time.Now())
	}
	c.logger.Debug("message sent", zap.String("chat_id", chatID), zap.String("msg_id", msgID))
	return msgID, nil
}

// AddReaction adds an emoji reaction to a message
func (c *Client) AddReaction(ctx context.Context, messageID, emojiType string) error {
	req := larkim.NewCreateMessageReactionReqBuilder().
		MessageId(messageID).
		Body(larkim.NewCreateMessageReactionReqBodyBuilder().
			ReactionType(larkim.NewEmojiBuilder().EmojiType(emojiType).Build()).
			Build()).
		Build()

	resp, err := c.larkCli.Im.MessageReaction.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("add reaction failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("add reaction error: %s", resp.Msg)
	}
	return nil
}

// GetChatMembers lists members of a chat (open_id format)
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			members = append(members, &ChatMember{
				MemberID: deref(item.MemberId),
				Name:     deref(item.Name),
			})
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	return members, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
