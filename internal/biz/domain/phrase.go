package domain

import "strings"

// MatchRule describes how a phrase matched a message
type MatchRule int

const (
	MatchNone MatchRule = iota
	MatchExact
	MatchPrefix   // phrase is the leading token(s) of the message
	MatchSuffix   // phrase is the trailing token(s) of the message
	MatchContains // phrase occurs anywhere in the message
)

func (r MatchRule) String() string {
	switch r {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchSuffix:
		return "suffix"
	case MatchContains:
		return "contains"
	default:
		return "none"
	}
}

// PhraseMatcher matches normalized message text against a fixed phrase table.
//
// Containment is plain substring matching, so a short phrase such as "hi"
// also matches inside longer words ("this", "which").
type PhraseMatcher struct {
	phrases []string
}

// NewPhraseMatcher builds a matcher; phrases are case-folded, trimmed and de-duplicated
func NewPhraseMatcher(phrases []string) *PhraseMatcher {
	seen := make(map[string]bool, len(phrases))
	m := &PhraseMatcher{}
	for _, p := range phrases {
		p = NormalizeText(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		m.phrases = append(m.phrases, p)
	}
	return m
}

// NormalizeText trims and case-folds text for matching
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Match returns the first phrase matching text and the rule that matched.
// Each phrase is tried against every rule before moving to the next phrase.
func (m *PhraseMatcher) Match(text string) (string, MatchRule) {
	text = NormalizeText(text)
	if text == "" {
		return "", MatchNone
	}
	for _, p := range m.phrases {
		switch {
		case text == p:
			return p, MatchExact
		case strings.HasPrefix(text, p+" "):
			return p, MatchPrefix
		case strings.HasSuffix(text, " "+p):
			return p, MatchSuffix
		case strings.Contains(text, p):
			return p, MatchContains
		}
	}
	return "", MatchNone
}

// Matches reports whether any phrase matches text
func (m *PhraseMatcher) Matches(text string) bool {
	_, rule := m.Match(text)
	return rule != MatchNone
}

// Phrases returns a copy of the normalized phrase table
func (m *PhraseMatcher) Phrases() []string {
	out := make([]string, len(m.phrases))
	copy(out, m.phrases)
	return out
}

// DefaultSleepPhrases puts an awake chat to sleep
var DefaultSleepPhrases = []string{
	"thanks", "thank you", "bye", "goodbye", "goodnight", "good night",
	"enough", "shh", "quiet", "stop talking", "be quiet", "that's all",
	"go to sleep", "see you",
}

// DefaultWakePhrases wakes a sleeping chat
var DefaultWakePhrases = []string{
	"riri", "hello", "wake up", "start", "continue", "are you there",
}
