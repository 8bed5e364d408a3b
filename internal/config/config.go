package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Default polling cadences. These are an observable timing contract with
// the hosted store, not negotiated with it.
const (
	DefaultSidebarPollInterval      = 5 * time.Second
	DefaultConversationPollInterval = 3 * time.Second
	DefaultMessagePollInterval      = 2 * time.Second
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	BackendURL  string `yaml:"backendURL"`
	APIKey      string `yaml:"apiKey"`
	AccessToken string `yaml:"accessToken"`
	LogLevel    string `yaml:"logLevel"`

	SidebarPollInterval      string `yaml:"sidebarPollInterval"`
	ConversationPollInterval string `yaml:"conversationPollInterval"`
	MessagePollInterval      string `yaml:"messagePollInterval"`

	MediaEndpoint  string `yaml:"mediaEndpoint"`
	MediaAccessKey string `yaml:"mediaAccessKey"`
	MediaSecretKey string `yaml:"mediaSecretKey"`
	MediaBucket    string `yaml:"mediaBucket"`
	MediaUseSSL    bool   `yaml:"mediaUseSSL"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("CONNECTHUB_BACKEND_URL"); v != "" {
		cfg.BackendURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_API_KEY"); v != "" {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_ACCESS_TOKEN"); v != "" {
		cfg.AccessToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_SIDEBAR_POLL_INTERVAL"); v != "" {
		cfg.SidebarPollInterval = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_CONVERSATION_POLL_INTERVAL"); v != "" {
		cfg.ConversationPollInterval = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_MESSAGE_POLL_INTERVAL"); v != "" {
		cfg.MessagePollInterval = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_MEDIA_ENDPOINT"); v != "" {
		cfg.MediaEndpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_MEDIA_ACCESS_KEY"); v != "" {
		cfg.MediaAccessKey = v
	}
	if v := os.Getenv("CONNECTHUB_MEDIA_SECRET_KEY"); v != "" {
		cfg.MediaSecretKey = v
	}
	if v := os.Getenv("CONNECTHUB_MEDIA_BUCKET"); v != "" {
		cfg.MediaBucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("CONNECTHUB_MEDIA_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MediaUseSSL = b
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return errors.New("config: backendURL is required (set in config.yaml or CONNECTHUB_BACKEND_URL)")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return errors.New("config: apiKey is required (set in config.yaml or CONNECTHUB_API_KEY)")
	}
	for _, field := range []struct{ name, value string }{
		{"sidebarPollInterval", cfg.SidebarPollInterval},
		{"conversationPollInterval", cfg.ConversationPollInterval},
		{"messagePollInterval", cfg.MessagePollInterval},
	} {
		if field.value == "" {
			continue
		}
		dur, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", field.name, err)
		}
		if dur <= 0 {
			return fmt.Errorf("config: %s must be > 0", field.name)
		}
	}
	return nil
}

// SidebarInterval returns the configured sidebar polling cadence.
func (c FileConfig) SidebarInterval() time.Duration {
	return intervalOrDefault(c.SidebarPollInterval, DefaultSidebarPollInterval)
}

// ConversationInterval returns the configured conversation-list cadence.
func (c FileConfig) ConversationInterval() time.Duration {
	return intervalOrDefault(c.ConversationPollInterval, DefaultConversationPollInterval)
}

// MessageInterval returns the configured active-conversation cadence.
func (c FileConfig) MessageInterval() time.Duration {
	return intervalOrDefault(c.MessagePollInterval, DefaultMessagePollInterval)
}

func intervalOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	dur, err := time.ParseDuration(value)
	if err != nil || dur <= 0 {
		return fallback
	}
	return dur
}
