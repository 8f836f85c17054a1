package conf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LLM_API_KEY", "GROQ_API_KEY", "LLM_PROVIDER", "LLM_BASE_URL", "LLM_MODEL",
		"FEISHU_APP_ID", "FEISHU_APP_SECRET", "DISCORD_BOT_TOKEN", "DB_PATH", "RENDER",
		"STORE_BACKEND", "DYNAMODB_TABLE", "PERSONA_CONFIG_PATH", "RATE_LIMIT_PER_HOUR",
		"MAX_TOKENS_CAP", "LLM_TIMEOUT_SECONDS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("DISCORD_BOT_TOKEN", "tok")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, "llama3-70b-8192", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "conversations.db", cfg.Store.DBPath)
	assert.Equal(t, 100, cfg.Chat.RateLimitPerHour)
	assert.False(t, cfg.Feishu.Enabled())
	assert.True(t, cfg.Discord.Enabled())

	cc := cfg.ToCompletionConfig()
	assert.Equal(t, 10, cc.HistoryTurns)
	assert.Equal(t, 16, cc.MessageCap)
	assert.Equal(t, 1500, cc.Budget.Max)
	assert.Contains(t, cc.SystemPrompt, "Riri")
}

func TestLoadFromEnv_RenderUsesTmp(t *testing.T) {
	clearEnv(t)
	t.Setenv("RENDER", "true")

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/conversations.db", cfg.Store.DBPath)
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearEnv(t)

	err := LoadFromEnv().Validate()
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "LLM_API_KEY/GROQ_API_KEY", ce.Field)

	t.Setenv("LLM_API_KEY", "k")
	err = LoadFromEnv().Validate()
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "transport")
}

func TestValidate_DynamoNeedsTable(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("DISCORD_BOT_TOKEN", "tok")
	t.Setenv("STORE_BACKEND", "dynamodb")

	var ce *ConfigError
	require.ErrorAs(t, LoadFromEnv().Validate(), &ce)
	assert.Equal(t, "DYNAMODB_TABLE", ce.Field)
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("parameter not found")
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{Discord: DiscordConfig{BotToken: "already"}}
	err := cfg.ResolveSecrets(context.Background(), fakeSecrets{
		"llm-api-key":       "from-ssm",
		"discord-bot-token": "ignored",
	})

	// Feishu secrets are absent in the source.
	require.Error(t, err)
	assert.Equal(t, "from-ssm", cfg.LLM.APIKey)
	assert.Equal(t, "already", cfg.Discord.BotToken)
}

func TestLoadPersonaConfig_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
system_prompt: "You are a test bot."
texts:
  wake_ack: "Yo."
phrases:
  sleep: ["nap time"]
budgets:
  medium:
    group: 250
`), 0644))

	p, err := LoadPersonaConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "You are a test bot.", p.SystemPrompt)
	assert.Equal(t, "Yo.", p.Texts.WakeAck)
	assert.Equal(t, DefaultPersonaConfig().Texts.Fallback, p.Texts.Fallback)
	assert.Equal(t, []string{"nap time"}, p.Phrases.Sleep)
	assert.NotEmpty(t, p.Phrases.Wake)
	assert.Equal(t, 250, p.Budgets.Medium.Group)
	assert.Equal(t, 500, p.Budgets.Medium.Private)
	assert.Equal(t, 1500, p.Budgets.Max)

	assert.True(t, p.SleepMatcher().Matches("ok nap time"))
}

func TestConfig_LoadPersona(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "persona.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`system_prompt: "You are a test bot."`), 0644))

	t.Setenv("PERSONA_CONFIG_PATH", path)
	cfg := LoadFromEnv()
	assert.Equal(t, DefaultPersonaConfig().SystemPrompt, cfg.Persona.SystemPrompt)
	require.NoError(t, cfg.LoadPersona())
	assert.Equal(t, "You are a test bot.", cfg.Persona.SystemPrompt)

	t.Setenv("PERSONA_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg = LoadFromEnv()
	require.Error(t, cfg.LoadPersona())
	assert.Equal(t, DefaultPersonaConfig().SystemPrompt, cfg.Persona.SystemPrompt)
}

func TestLoadPersonaConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadPersonaConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
