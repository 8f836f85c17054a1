package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/infra/discord"
	"github.com/deadraisers/riri/internal/infra/feishu"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg *domain.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return nil
}

type mockFeishuClient struct {
	handler    feishu.MessageHandler
	members    []*feishu.ChatMember
	membersErr error
}

func (m *mockFeishuClient) OnMessage(handler feishu.MessageHandler) { m.handler = handler }

func (m *mockFeishuClient) Start(ctx context.Context) error { return nil }

func (m *mockFeishuClient) GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error) {
	return m.members, m.membersErr
}

func TestFeishuServer_MapsAndDedups(t *testing.T) {
	client := &mockFeishuClient{members: []*feishu.ChatMember{{MemberID: "ou_1", Name: "Tenor Tom"}}}
	h := &recordingHandler{}
	s := NewFeishuServer(client, h, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, client.handler)

	msg := &feishu.Message{
		ChatID:      "oc_1",
		MsgID:       "om_1",
		ChatType:    "group",
		Content:     "riri, what key?",
		Sender:      &feishu.Sender{SenderID: "ou_1"},
		MentionsBot: true,
		CreateTime:  1717243200000,
	}
	client.handler(msg)
	client.handler(msg)
	s.queue.wait()

	require.Len(t, h.msgs, 1)
	got := h.msgs[0]
	assert.Equal(t, domain.ChatTypeGroup, got.ChatType)
	assert.Equal(t, "Tenor Tom", got.SenderName)
	assert.True(t, got.MentionsSelf)
	assert.False(t, got.ReplyToSelf)
	assert.Equal(t, time.UnixMilli(1717243200000), got.CreateTime)
}

func TestFeishuServer_P2PSkipsMemberLookup(t *testing.T) {
	client := &mockFeishuClient{membersErr: errors.New("should not be called")}
	h := &recordingHandler{}
	s := NewFeishuServer(client, h, nil)
	require.NoError(t, s.Start(context.Background()))

	client.handler(&feishu.Message{ChatID: "oc_2", MsgID: "om_2", ChatType: "p2p", Content: "hi", Sender: &feishu.Sender{SenderID: "ou_2"}, ReplyToBot: true})
	s.queue.wait()

	require.Len(t, h.msgs, 1)
	assert.Equal(t, domain.ChatTypeP2P, h.msgs[0].ChatType)
	assert.Equal(t, "ou_2", h.msgs[0].DisplayName())
	assert.True(t, h.msgs[0].ReplyToSelf)
}

type mockDiscordClient struct {
	handler discord.MessageHandler
}

func (m *mockDiscordClient) OnMessage(handler discord.MessageHandler) { m.handler = handler }

func (m *mockDiscordClient) Start(ctx context.Context) error { return nil }

func TestDiscordServer_Maps(t *testing.T) {
	client := &mockDiscordClient{}
	h := &recordingHandler{}
	s := NewDiscordServer(client, h, nil)
	require.NoError(t, s.Start(context.Background()))

	client.handler(&discord.Message{ChannelID: "dm", MsgID: "1", AuthorID: "a", AuthorName: "sop", Content: "hello"})
	client.handler(&discord.Message{ChannelID: "general", GuildID: "g", MsgID: "2", Content: "x", ReplyToBot: true})
	s.queue.wait()

	require.Len(t, h.msgs, 2)
	if h.msgs[0].ChatID != "dm" {
		h.msgs[0], h.msgs[1] = h.msgs[1], h.msgs[0]
	}
	assert.Equal(t, domain.ChatTypeP2P, h.msgs[0].ChatType)
	assert.Equal(t, "sop", h.msgs[0].SenderName)
	assert.Equal(t, domain.ChatTypeGroup, h.msgs[1].ChatType)
	assert.Equal(t, "general", h.msgs[1].ChatID)
	assert.True(t, h.msgs[1].ReplyToSelf)
}

// sleepyHandler mimics the gate: a goodnight puts the chat to sleep and later messages go unanswered
type sleepyHandler struct {
	mu       sync.Mutex
	sleeping map[string]bool
	answered []string
}

func (h *sleepyHandler) HandleMessage(ctx context.Context, msg *domain.Message) error {
	if msg.Content == "goodnight riri" {
		// Slow first message gives later deliveries a chance to overtake it
		time.Sleep(20 * time.Millisecond)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Content == "goodnight riri" {
		h.sleeping[msg.ChatID] = true
		return nil
	}
	if !h.sleeping[msg.ChatID] {
		h.answered = append(h.answered, msg.Content)
	}
	return nil
}

func TestFeishuServer_KeepsChatOrder(t *testing.T) {
	for round := 0; round < 10; round++ {
		client := &mockFeishuClient{}
		h := &sleepyHandler{sleeping: make(map[string]bool)}
		s := NewFeishuServer(client, h, nil)
		require.NoError(t, s.Start(context.Background()))

		client.handler(&feishu.Message{ChatID: "oc_1", MsgID: "om_1", ChatType: "p2p", Content: "goodnight riri"})
		client.handler(&feishu.Message{ChatID: "oc_1", MsgID: "om_2", ChatType: "p2p", Content: "what key is the anthem in?"})
		s.queue.wait()

		assert.Empty(t, h.answered, "round %d", round)
		assert.True(t, h.sleeping["oc_1"])
	}
}

func TestChatQueue_OrderPerChat(t *testing.T) {
	q := newChatQueue()
	release := make(chan struct{})
	var mu sync.Mutex
	var order []int

	q.enqueue("c", func() { <-release })
	for i := 0; i < 20; i++ {
		i := i
		q.enqueue("c", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	close(release)
	q.wait()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
}

func TestChatQueue_ChatsDoNotBlockEachOther(t *testing.T) {
	q := newChatQueue()
	release := make(chan struct{})
	done := make(chan struct{})

	q.enqueue("a", func() { <-release })
	q.enqueue("b", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat b waited on chat a")
	}
	close(release)
	q.wait()
}

func TestSeenCache(t *testing.T) {
	c := newSeenCache(time.Minute)
	now := time.Unix(1000, 0)

	assert.True(t, c.markNew("a", now))
	assert.False(t, c.markNew("a", now.Add(30*time.Second)))
	assert.True(t, c.markNew("a", now.Add(2*time.Minute)))
	assert.True(t, c.markNew("", now))
	assert.True(t, c.markNew("", now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "日本...", truncate("日本語", 2))
}
