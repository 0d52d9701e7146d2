// Package config loads runtime settings from an optional dotenv file and the
// process environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

const (
	DefaultEnvFile      = ".env"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultGeminiModel  = "gemini-2.5-flash"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultListenAddr   = ":8080"
)

// ProviderConfig is the per-family credential and endpoint setup.
type ProviderConfig struct {
	// KeyEnv is the variable a user sets to enable this provider.
	KeyEnv      string
	APIKey      string
	APIKeyParam string
	Model       string
	BaseURL     string
}

// Configured reports whether a credential source exists.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != "" || p.APIKeyParam != ""
}

type Config struct {
	Provider     Provider
	OpenAI       ProviderConfig
	Gemini       ProviderConfig
	SystemPrompt string
	HTTPTimeout  time.Duration
	ListenAddr   string
	LogLevel     string
}

// Active returns the settings of the selected provider family.
func (c Config) Active() ProviderConfig {
	if c.Provider == ProviderGemini {
		return c.Gemini
	}
	return c.OpenAI
}

// WithProvider returns a copy with the provider family replaced. An empty
// name leaves the config unchanged.
func (c Config) WithProvider(name string) (Config, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c, nil
	}
	p, err := parseProvider(name)
	if err != nil {
		return Config{}, err
	}
	c.Provider = p
	return c, nil
}

// Load reads envFile if it exists, then the environment. A missing file is
// not an error.
func Load(envFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("PROVIDER", string(ProviderOpenAI))
	v.SetDefault("OPENAI_MODEL", DefaultOpenAIModel)
	v.SetDefault("GEMINI_MODEL", DefaultGeminiModel)
	v.SetDefault("SYSTEM_PROMPT", DefaultSystemPrompt)
	v.SetDefault("HTTP_TIMEOUT", DefaultHTTPTimeout.String())
	v.SetDefault("LISTEN_ADDR", DefaultListenAddr)
	v.SetDefault("LOG_LEVEL", "info")

	if envFile = strings.TrimSpace(envFile); envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	provider, err := parseProvider(v.GetString("PROVIDER"))
	if err != nil {
		return Config{}, err
	}
	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString("HTTP_TIMEOUT")))
	if err != nil {
		return Config{}, fmt.Errorf("config: HTTP_TIMEOUT: %w", err)
	}

	cfg := Config{
		Provider: provider,
		OpenAI: ProviderConfig{
			KeyEnv:      "OPENAI_API_KEY",
			APIKey:      strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
			APIKeyParam: strings.TrimSpace(v.GetString("OPENAI_API_KEY_PARAM")),
			Model:       strings.TrimSpace(v.GetString("OPENAI_MODEL")),
			BaseURL:     strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
		},
		Gemini: ProviderConfig{
			KeyEnv:      "GEMINI_API_KEY",
			APIKey:      strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
			APIKeyParam: strings.TrimSpace(v.GetString("GEMINI_API_KEY_PARAM")),
			Model:       strings.TrimSpace(v.GetString("GEMINI_MODEL")),
			BaseURL:     strings.TrimSpace(v.GetString("GEMINI_BASE_URL")),
		},
		SystemPrompt: v.GetString("SYSTEM_PROMPT"),
		HTTPTimeout:  timeout,
		ListenAddr:   strings.TrimSpace(v.GetString("LISTEN_ADDR")),
		LogLevel:     strings.TrimSpace(v.GetString("LOG_LEVEL")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := parseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.Active().Model == "" {
		return fmt.Errorf("config: model for provider %q must not be empty", c.Provider)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.ListenAddr == "" {
		return errors.New("config: LISTEN_ADDR must not be empty")
	}
	return nil
}

func parseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("config: unknown provider %q (want openai or gemini)", s)
	}
}
