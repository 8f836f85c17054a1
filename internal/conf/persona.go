package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/deadraisers/riri/internal/biz/domain"
)

// PersonaConfig contains everything the bot says or matches on, loaded from YAML
type PersonaConfig struct {
	SystemPrompt string              `yaml:"system_prompt"`
	Texts        PersonaTexts        `yaml:"texts"`
	Phrases      PhraseTables        `yaml:"phrases"`
	Keywords     KeywordTables       `yaml:"keywords"`
	Budgets      domain.BudgetPolicy `yaml:"budgets"`
}

// PersonaTexts contains fixed replies
type PersonaTexts struct {
	Welcome     string `yaml:"welcome"`
	Info        string `yaml:"info"`
	WakeAck     string `yaml:"wake_ack"`
	Fallback    string `yaml:"fallback"`
	RateLimited string `yaml:"rate_limited"`
	Cleared     string `yaml:"cleared"`
}

// PhraseTables contains the activity gate's phrase sets
type PhraseTables struct {
	Sleep []string `yaml:"sleep"`
	Wake  []string `yaml:"wake"`
}

// KeywordTables contains the complexity classifier's keyword sets
type KeywordTables struct {
	Complex []string `yaml:"complex"`
	Simple  []string `yaml:"simple"`
}

// LoadPersonaConfig loads persona configuration from YAML file.
// With no path, well-known locations are tried and defaults are used if none exist.
func LoadPersonaConfig(configPath string) (*PersonaConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/persona.yaml",
			"/etc/riri/persona.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "persona.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("persona file %s not readable", configPath)
		}
		return DefaultPersonaConfig(), nil
	}

	fmt.Printf("[Config] Loading persona from: %s\n", loadedPath)
	return ParsePersonaConfig(data)
}

// ParsePersonaConfig parses YAML and fills defaults for empty fields
func ParsePersonaConfig(data []byte) (*PersonaConfig, error) {
	var config PersonaConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse persona.yaml: %w", err)
	}
	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PersonaConfig) fillDefaults() {
	defaults := DefaultPersonaConfig()

	if c.SystemPrompt == "" {
		c.SystemPrompt = defaults.SystemPrompt
	}

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Texts.Welcome, defaults.Texts.Welcome)
	fill(&c.Texts.Info, defaults.Texts.Info)
	fill(&c.Texts.WakeAck, defaults.Texts.WakeAck)
	fill(&c.Texts.Fallback, defaults.Texts.Fallback)
	fill(&c.Texts.RateLimited, defaults.Texts.RateLimited)
	fill(&c.Texts.Cleared, defaults.Texts.Cleared)

	if len(c.Phrases.Sleep) == 0 {
		c.Phrases.Sleep = defaults.Phrases.Sleep
	}
	if len(c.Phrases.Wake) == 0 {
		c.Phrases.Wake = defaults.Phrases.Wake
	}
	if len(c.Keywords.Complex) == 0 {
		c.Keywords.Complex = defaults.Keywords.Complex
	}
	if len(c.Keywords.Simple) == 0 {
		c.Keywords.Simple = defaults.Keywords.Simple
	}

	fillTier := func(dst *domain.TierBudget, def domain.TierBudget) {
		if dst.Group == 0 {
			dst.Group = def.Group
		}
		if dst.Private == 0 {
			dst.Private = def.Private
		}
	}
	fillTier(&c.Budgets.Simple, defaults.Budgets.Simple)
	fillTier(&c.Budgets.Medium, defaults.Budgets.Medium)
	fillTier(&c.Budgets.Complex, defaults.Budgets.Complex)
	if c.Budgets.Max == 0 {
		c.Budgets.Max = defaults.Budgets.Max
	}
}

// SleepMatcher builds the sleep phrase matcher
func (c *PersonaConfig) SleepMatcher() *domain.PhraseMatcher {
	return domain.NewPhraseMatcher(c.Phrases.Sleep)
}

// WakeMatcher builds the wake phrase matcher
func (c *PersonaConfig) WakeMatcher() *domain.PhraseMatcher {
	return domain.NewPhraseMatcher(c.Phrases.Wake)
}

// Classifier builds the complexity classifier
func (c *PersonaConfig) Classifier() *domain.Classifier {
	return domain.NewClassifier(c.Keywords.Complex, c.Keywords.Simple)
}

// DefaultPersonaConfig returns the default persona configuration
func DefaultPersonaConfig() *PersonaConfig {
	return &PersonaConfig{
		SystemPrompt: `You are Riri, a member of the Dead Raisers Choir at Grace Edge Ministries. You help the choir with scripture and music.

- Give careful, context-aware answers to biblical and spiritual questions, citing verses where they help.
- Help with music theory, worship songs, chord progressions, and song picks for a singer's voice type, range or goal.
- In group chats keep it to two or three sentences unless someone asks you to go deeper.
- When a topic has more depth, mention that there is more to explore without phrasing it as a question.
- Encourage growth, excellence and healthy discussion.

Talk like one of the choir: warm, enthusiastic, and funny when the moment allows.`,
		Texts: PersonaTexts{
			Welcome: `Hey there! I'm Riri, here to help you grow as a minister in the choir.

Ask me about:
🎵 Worship, songs that suit your voice and range, music theory
📖 Bible verses, stories or concepts

Mention me in a group or message me directly to start. Use /info for more.`,
			Info: `🤖 **Commands**

/start - Welcome message
/info - Show this help
/stats - Conversation statistics
/clear - Clear conversation history for this chat

**How to use**
- In groups: mention me or reply to one of my messages
- In private chats: just send a message`,
			WakeAck:     "Hello. What's up?",
			Fallback:    "Sorry, I'm having trouble responding right now. Please try again in a moment.",
			RateLimited: "⏰ Chat rate limit reached. Please wait a moment before asking again.",
			Cleared:     "✅ Conversation history cleared for this chat!",
		},
		Phrases: PhraseTables{
			Sleep: domain.DefaultSleepPhrases,
			Wake:  domain.DefaultWakePhrases,
		},
		Keywords: KeywordTables{
			Complex: domain.DefaultComplexKeywords,
			Simple:  domain.DefaultSimpleKeywords,
		},
		Budgets: domain.DefaultBudgetPolicy(),
	}
}
