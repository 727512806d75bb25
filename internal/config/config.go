package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
)

// Config models eventify.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret"`
		TokenTTL               string `yaml:"token_ttl"`
		AllowSignup            bool   `yaml:"allow_signup"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"auth"`
	Advisor struct {
		Provider  string `yaml:"provider"`
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		APIKeyEnv string `yaml:"api_key_env"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"advisor"`
	Split struct {
		DescriptionPrefix int `yaml:"description_prefix"`
	} `yaml:"split"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Webhooks []Webhook `yaml:"webhooks"`
}

// Webhook describes one activity-log subscriber.
type Webhook struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// IsEnabled defaults to true when unset.
func (w Webhook) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Load reads and validates config from workspace, falling back to defaults when the file is missing.
func Load(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Advisor.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("config.advisor.provider must be one of openai, none (got %q)", c.Advisor.Provider)
	}
	if c.Advisor.Provider == ProviderOpenAI && c.Advisor.Model == "" {
		return fmt.Errorf("config.advisor.model is required for provider openai")
	}
	if _, err := time.ParseDuration(c.Advisor.Timeout); err != nil {
		return fmt.Errorf("config.advisor.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("config.auth.token_ttl: %w", err)
	}
	if c.Split.DescriptionPrefix <= 0 {
		return fmt.Errorf("config.split.description_prefix must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if wh.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
		for _, ev := range wh.Events {
			if !activity.Known(ev) {
				return fmt.Errorf("config.webhooks[%d].events: unknown activity type %q", i, ev)
			}
		}
	}
	return nil
}

// AdvisorTimeout returns the parsed advisor call timeout.
func (c *Config) AdvisorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Advisor.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "eventify.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0

database:
  url: ""

auth:
  jwt_secret: ""
  token_ttl: 24h
  allow_signup: true
  allow_legacy_actor_header: false

advisor:
  provider: none
  model: gpt-4o-mini
  base_url: ""
  api_key_env: OPENAI_API_KEY
  timeout: 30s

split:
  description_prefix: 50

log:
  level: info
  format: text

webhooks: []
`
