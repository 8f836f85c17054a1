package usecase

import (
	"strings"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// GateUsecase decides per message whether the bot sleeps, wakes, answers or ignores
type GateUsecase struct {
	sleep     *domain.PhraseMatcher
	wake      *domain.PhraseMatcher
	botHandle string // lowercased, without the leading @
}

// NewGateUsecase creates a new gate usecase
func NewGateUsecase(sleep, wake *domain.PhraseMatcher, botHandle string) *GateUsecase {
	return &GateUsecase{
		sleep:     sleep,
		wake:      wake,
		botHandle: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(botHandle), "@")),
	}
}

// Decide applies one message to the chat's state.
// The caller must hold the chat scope (ActivityStore.Acquire).
func (uc *GateUsecase) Decide(act *ChatActivity, in domain.GateInput) domain.Decision {
	if act.Sleeping() {
		if uc.wake.Matches(in.Text) {
			act.SetSleeping(false)
			return domain.DecisionWake
		}
		return domain.DecisionSilent
	}

	if uc.sleep.Matches(in.Text) {
		act.SetSleeping(true)
		return domain.DecisionSleep
	}

	if uc.shouldRespond(in) {
		return domain.DecisionRespond
	}
	return domain.DecisionIgnore
}

// shouldRespond: private chats always; groups only when addressed
func (uc *GateUsecase) shouldRespond(in domain.GateInput) bool {
	if !in.ChatType.IsGroup() {
		return true
	}
	if in.ReplyToSelf || in.MentionsSelf {
		return true
	}
	if uc.botHandle != "" && strings.Contains(strings.ToLower(in.Text), "@"+uc.botHandle) {
		return true
	}
	return uc.wake.Matches(in.Text)
}

// SleepPhrases returns the sleep phrase table
func (uc *GateUsecase) SleepPhrases() []string {
	return uc.sleep.Phrases()
}

// WakePhrases returns the wake phrase table
func (uc *GateUsecase) WakePhrases() []string {
	return uc.wake.Phrases()
}
