package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deadraisers/riri/internal/biz/domain"
)

func newTestGate() *GateUsecase {
	return NewGateUsecase(
		domain.NewPhraseMatcher(domain.DefaultSleepPhrases),
		domain.NewPhraseMatcher(domain.DefaultWakePhrases),
		"@ChoirBot",
	)
}

func TestGate_SleepThenWake(t *testing.T) {
	gate := newTestGate()
	store := NewActivityStore()

	act := store.Acquire("g1")
	defer act.Release()

	in := domain.GateInput{ChatType: domain.ChatTypeGroup}

	in.Text = "ok goodnight everyone"
	assert.Equal(t, domain.DecisionSleep, gate.Decide(act, in))
	assert.True(t, act.Sleeping())

	in.Text = "what key is this song in?"
	in.MentionsSelf = true
	assert.Equal(t, domain.DecisionSilent, gate.Decide(act, in))
	assert.True(t, act.Sleeping())

	in.Text = "Wake up"
	in.MentionsSelf = false
	assert.Equal(t, domain.DecisionWake, gate.Decide(act, in))
	assert.False(t, act.Sleeping())
}

func TestGate_AsleepIgnoresSleepPhrase(t *testing.T) {
	gate := newTestGate()
	store := NewActivityStore()
	store.SetSleeping("c", true)

	act := store.Acquire("c")
	defer act.Release()

	assert.Equal(t, domain.DecisionSilent, gate.Decide(act, domain.GateInput{Text: "bye", ChatType: domain.ChatTypeP2P}))
	assert.True(t, act.Sleeping())
}

func TestGate_PrivateAlwaysResponds(t *testing.T) {
	gate := newTestGate()
	store := NewActivityStore()
	act := store.Acquire("p")
	defer act.Release()

	d := gate.Decide(act, domain.GateInput{Text: "what chord comes after G?", ChatType: domain.ChatTypeP2P})
	assert.Equal(t, domain.DecisionRespond, d)
}

func TestGate_GroupNeedsAddress(t *testing.T) {
	gate := newTestGate()
	store := NewActivityStore()
	act := store.Acquire("g")
	defer act.Release()

	base := domain.GateInput{Text: "what chord comes after G?", ChatType: domain.ChatTypeGroup}
	assert.Equal(t, domain.DecisionIgnore, gate.Decide(act, base))

	reply := base
	reply.ReplyToSelf = true
	assert.Equal(t, domain.DecisionRespond, gate.Decide(act, reply))

	mention := base
	mention.MentionsSelf = true
	assert.Equal(t, domain.DecisionRespond, gate.Decide(act, mention))

	handle := base
	handle.Text = "@choirbot what chord comes after G?"
	assert.Equal(t, domain.DecisionRespond, gate.Decide(act, handle))

	wake := base
	wake.Text = "riri what chord comes after G?"
	assert.Equal(t, domain.DecisionRespond, gate.Decide(act, wake))

	assert.False(t, act.Sleeping())
}

func TestGate_SleepWinsOverWakeWhileAwake(t *testing.T) {
	gate := newTestGate()
	store := NewActivityStore()
	act := store.Acquire("g")
	defer act.Release()

	assert.Equal(t, domain.DecisionSleep, gate.Decide(act, domain.GateInput{Text: "thanks riri", ChatType: domain.ChatTypeGroup}))
}
