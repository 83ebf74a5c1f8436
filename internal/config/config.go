// Package config loads learnloop settings from an optional YAML file and
// LEARNLOOP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/learnloop/internal/llm"
)

// EnvPrefix is prepended to every environment override, e.g.
// LEARNLOOP_REMOTE_DSN for remote.dsn.
const EnvPrefix = "LEARNLOOP"

type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Mail    MailConfig    `mapstructure:"mail"`
	Auth    AuthConfig    `mapstructure:"auth"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Course  CourseConfig  `mapstructure:"course"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type RemoteConfig struct {
	// Driver is "pgx" for Postgres, "sqlite" for a local file, or "" to
	// run without a remote store.
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	QueueSize int    `mapstructure:"queue_size"`
}

type MailConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Addr           string        `mapstructure:"addr"`
	SendgridAPIKey string        `mapstructure:"sendgrid_api_key"`
	FromEmail      string        `mapstructure:"from_email"`
	FromName       string        `mapstructure:"from_name"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LLMConfig struct {
	Provider   string        `mapstructure:"provider"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Anthropic  ProviderKeys  `mapstructure:"anthropic"`
	OpenAI     ProviderKeys  `mapstructure:"openai"`
	Gemini     ProviderKeys  `mapstructure:"gemini"`
	OpenRouter ProviderKeys  `mapstructure:"openrouter"`
}

type ProviderKeys struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type CourseConfig struct {
	// Dir holds additional *.yaml course files. The bundled sample course
	// is always available.
	Dir string `mapstructure:"dir"`
}

// Load reads configuration. When path is empty, learnloop.yaml is looked up
// in the working directory and $XDG_CONFIG_HOME/learnloop; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("learnloop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configHome(); dir != "" {
			v.AddConfigPath(filepath.Join(dir, "learnloop"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := llm.DefaultConfig()

	v.SetDefault("store.path", "")
	v.SetDefault("remote.driver", "")
	v.SetDefault("remote.dsn", "")
	v.SetDefault("remote.queue_size", 64)
	v.SetDefault("mail.endpoint", "")
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("mail.addr", ":8088")
	v.SetDefault("mail.sendgrid_api_key", "")
	v.SetDefault("mail.from_email", "no-reply@learnloop.local")
	v.SetDefault("mail.from_name", "LearnLoop")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.timeout", def.Timeout)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", def.Anthropic.Model)
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", def.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", def.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", def.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("course.dir", "")
}

func configHome() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// LLMConfig converts the llm section into a provider configuration. When no
// provider is configured, well-known vendor API key variables are probed;
// the second result is false if nothing usable was found.
func (c *Config) LLMConfig() (llm.Config, bool) {
	if c.LLM.Provider == "" {
		return llm.DiscoverConfig()
	}

	cfg := llm.DefaultConfig()
	cfg.Provider = c.LLM.Provider
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	cfg.Anthropic.APIKey = c.LLM.Anthropic.APIKey
	cfg.Anthropic.Model = orDefault(c.LLM.Anthropic.Model, cfg.Anthropic.Model)
	cfg.OpenAI.APIKey = c.LLM.OpenAI.APIKey
	cfg.OpenAI.Model = orDefault(c.LLM.OpenAI.Model, cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = c.LLM.OpenAI.BaseURL
	cfg.Gemini.APIKey = c.LLM.Gemini.APIKey
	cfg.Gemini.Model = orDefault(c.LLM.Gemini.Model, cfg.Gemini.Model)
	cfg.OpenRouter.APIKey = c.LLM.OpenRouter.APIKey
	cfg.OpenRouter.Model = orDefault(c.LLM.OpenRouter.Model, cfg.OpenRouter.Model)
	cfg.OpenRouter.BaseURL = c.LLM.OpenRouter.BaseURL
	return cfg, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
