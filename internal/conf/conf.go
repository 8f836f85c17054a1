package conf

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deadraisers/riri/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Feishu transport (optional)
	Feishu FeishuConfig

	// Discord transport (optional)
	Discord DiscordConfig

	// Language model backend
	LLM LLMConfig

	// Conversation store
	Store StoreConfig

	// Chat behaviour
	Chat ChatConfig

	// Admin HTTP API
	API APIConfig

	// Maintenance schedule (cron expression or descriptor)
	MaintenanceSchedule string

	// SSM parameter prefix for secrets; empty disables lookup
	ParamPrefix string

	// Persona configuration; defaults until LoadPersona reads the YAML
	Persona     *PersonaConfig
	PersonaPath string
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Enabled reports whether Feishu credentials are present
func (c FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// DiscordConfig contains Discord configuration
type DiscordConfig struct {
	BotToken string
}

// Enabled reports whether a Discord token is present
func (c DiscordConfig) Enabled() bool {
	return c.BotToken != ""
}

// LLM providers
const (
	ProviderOpenAI = "openai" // Any OpenAI-compatible endpoint (Groq by default)
	ProviderGemini = "gemini"
)

// DefaultLLMBaseURL is Groq's OpenAI-compatible endpoint
const DefaultLLMBaseURL = "https://api.groq.com/openai/v1"

// LLMConfig contains language model configuration
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Store backends
const (
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// StoreConfig contains conversation store configuration
type StoreConfig struct {
	Backend       string
	DBPath        string
	DynamoTable   string
	RetentionDays int // 0 keeps turns forever
}

// ChatConfig contains chat behaviour configuration
type ChatConfig struct {
	BotHandle        string
	RateLimitPerHour int
	HistoryTurns     int
	MessageCap       int
	MaxTokensCap     int
}

// APIConfig contains admin API configuration
type APIConfig struct {
	Addr string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// DB path; Render only allows writes under /tmp
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "conversations.db"
		if os.Getenv("RENDER") != "" {
			dbPath = "/tmp/conversations.db"
		}
	}

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	provider := strings.ToLower(os.Getenv("LLM_PROVIDER"))
	if provider == "" {
		provider = ProviderOpenAI
	}

	baseURL := os.Getenv("LLM_BASE_URL")
	if baseURL == "" && provider == ProviderOpenAI {
		baseURL = DefaultLLMBaseURL
	}

	model := os.Getenv("LLM_MODEL")
	if model == "" {
		if provider == ProviderGemini {
			model = "gemini-2.0-flash"
		} else {
			model = "llama3-70b-8192"
		}
	}

	temperature := float32(0.7)
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 32); err == nil {
			temperature = float32(parsed)
		}
	}

	backend := strings.ToLower(os.Getenv("STORE_BACKEND"))
	if backend == "" {
		backend = StoreSQLite
	}

	apiAddr := os.Getenv("API_ADDR")
	if apiAddr == "" {
		apiAddr = "127.0.0.1:9876"
	}

	schedule := os.Getenv("MAINTENANCE_SCHEDULE")
	if schedule == "" {
		schedule = "@every 10m"
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Discord: DiscordConfig{
			BotToken: os.Getenv("DISCORD_BOT_TOKEN"),
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      apiKey,
			BaseURL:     baseURL,
			Model:       model,
			Temperature: temperature,
			Timeout:     time.Duration(envInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Store: StoreConfig{
			Backend:       backend,
			DBPath:        dbPath,
			DynamoTable:   os.Getenv("DYNAMODB_TABLE"),
			RetentionDays: envInt("TURN_RETENTION_DAYS", 0),
		},
		Chat: ChatConfig{
			BotHandle:        os.Getenv("BOT_HANDLE"),
			RateLimitPerHour: envInt("RATE_LIMIT_PER_HOUR", 100),
			HistoryTurns:     envInt("HISTORY_TURNS", 10),
			MessageCap:       envInt("PROMPT_MESSAGE_CAP", 16),
			MaxTokensCap:     envInt("MAX_TOKENS_CAP", 0),
		},
		API: APIConfig{
			Addr: apiAddr,
		},
		MaintenanceSchedule: schedule,
		ParamPrefix:         os.Getenv("PARAM_PREFIX"),
		Persona:             DefaultPersonaConfig(),
		PersonaPath:         os.Getenv("PERSONA_CONFIG_PATH"),
	}
}

// LoadPersona replaces the default persona with the YAML one.
// On error the defaults stay in place and the error is returned for the caller to log.
func (c *Config) LoadPersona() error {
	persona, err := LoadPersonaConfig(c.PersonaPath)
	if err != nil {
		return err
	}
	c.Persona = persona
	return nil
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// SecretSource resolves named secrets (e.g. SSM Parameter Store)
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// ResolveSecrets fills empty secrets from src. Lookup failures are
// returned; Validate reports whatever is still missing.
func (c *Config) ResolveSecrets(ctx context.Context, src SecretSource) error {
	targets := []struct {
		name string
		dst  *string
	}{
		{"llm-api-key", &c.LLM.APIKey},
		{"feishu-app-id", &c.Feishu.AppID},
		{"feishu-app-secret", &c.Feishu.AppSecret},
		{"discord-bot-token", &c.Discord.BotToken},
	}

	var errs []string
	for _, t := range targets {
		if *t.dst != "" {
			continue
		}
		val, err := src.GetSecret(ctx, t.name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", t.name, err))
			continue
		}
		*t.dst = val
	}
	if len(errs) > 0 {
		return fmt.Errorf("resolve secrets: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ToCompletionConfig converts to completion orchestration configuration
func (c *Config) ToCompletionConfig() usecase.CompletionConfig {
	cfg := usecase.DefaultCompletionConfig
	if c.Persona != nil {
		cfg.SystemPrompt = c.Persona.SystemPrompt
		cfg.Budget = c.Persona.Budgets
	}
	if c.Chat.HistoryTurns > 0 {
		cfg.HistoryTurns = c.Chat.HistoryTurns
	}
	if c.Chat.MessageCap > 0 {
		cfg.MessageCap = c.Chat.MessageCap
	}
	if c.Chat.MaxTokensCap > 0 {
		cfg.Budget.Max = c.Chat.MaxTokensCap
	}
	cfg.Temperature = c.LLM.Temperature
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	return cfg
}

// ToCommandTexts converts to operator command texts
func (c *Config) ToCommandTexts() usecase.CommandTexts {
	p := c.Persona
	if p == nil {
		p = DefaultPersonaConfig()
	}
	return usecase.CommandTexts{
		Welcome: p.Texts.Welcome,
		Info:    p.Texts.Info,
		Cleared: p.Texts.Cleared,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return &ConfigError{Field: "LLM_API_KEY/GROQ_API_KEY", Message: "required"}
	}
	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderGemini {
		return &ConfigError{Field: "LLM_PROVIDER", Message: "must be openai or gemini"}
	}
	if !c.Feishu.Enabled() && !c.Discord.Enabled() {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET or DISCORD_BOT_TOKEN", Message: "at least one transport is required"}
	}
	return c.ValidateStore()
}

// ValidateStore validates only the store settings (tooling commands need no transport)
func (c *Config) ValidateStore() error {
	switch c.Store.Backend {
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return &ConfigError{Field: "DB_PATH", Message: "required"}
		}
	case StoreDynamoDB:
		if c.Store.DynamoTable == "" {
			return &ConfigError{Field: "DYNAMODB_TABLE", Message: "required for dynamodb store"}
		}
	default:
		return &ConfigError{Field: "STORE_BACKEND", Message: "must be sqlite or dynamodb"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
