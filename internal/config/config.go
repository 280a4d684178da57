package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thenoetrevino/dealflow/internal/config/colors"
)

const appName = "dealflow"

// Config represents the application configuration
type Config struct {
	DataDir     string             `yaml:"data_dir"`
	LogLevel    string             `yaml:"log_level"`
	Server      ServerConfig       `yaml:"server"`
	Board       BoardConfig        `yaml:"board"`
	Redis       RedisConfig        `yaml:"redis"`
	Webhooks    WebhookConfig      `yaml:"webhooks"`
	Assistant   AssistantConfig    `yaml:"assistant"`
	KeyMappings KeyMappings        `yaml:"key_mappings"`
	ColorScheme colors.ColorScheme `yaml:"theme"`
}

// ServerConfig covers both sides of the HTTP API: the listener used by
// `dealflow serve` and the remote server the board and chat commands may
// talk to instead of the local database
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	JWTSecret    string        `yaml:"jwt_secret"`
	SSEKeepAlive time.Duration `yaml:"sse_keep_alive"`
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
}

// BoardConfig tunes the kanban boards
type BoardConfig struct {
	PageSize        int           `yaml:"page_size"`
	EmptyText       string        `yaml:"empty_text"`
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
}

// RedisConfig enables cross-instance event fan-out when URL is set
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// WebhookConfig tunes outbound webhook delivery
type WebhookConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
	Workers  int           `yaml:"workers"`
}

// AssistantConfig configures the LLM behind `dealflow chat`
type AssistantConfig struct {
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Default returns a config with every default applied
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// loadThemeFile loads and merges theme from DEALFLOW_THEME_FILE environment variable
func loadThemeFile(config *Config) {
	themeFile := os.Getenv("DEALFLOW_THEME_FILE")
	if themeFile == "" {
		return
	}

	themeData, err := os.ReadFile(themeFile)
	if err != nil {
		return
	}

	var themeConfig struct {
		Theme colors.ColorScheme `yaml:"theme"`
	}

	if yaml.Unmarshal(themeData, &themeConfig) == nil {
		config.ColorScheme.MergeFrom(themeConfig.Theme)
	}
}

// Load loads config from the user's config directory
// Returns default config if file doesn't exist
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		// Return default config if we can't determine config path
		config := &Config{}
		finish(config)
		return config, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads config from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	finish(&config)
	return &config, nil
}

func finish(config *Config) {
	loadThemeFile(config)
	config.applyEnv()
	config.applyDefaults()
}

// Save saves the config to the user's config directory
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes the config as YAML to path
func (c *Config) SaveTo(path string) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// may hold secrets
	return os.WriteFile(path, data, 0o600)
}

// Path returns the path to the config file
func Path() (string, error) {
	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.yaml"), nil
	}

	// Fall back to ~/.config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", appName, "config.yaml"), nil
}

// SlogLevel parses LogLevel, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// applyEnv overlays DEALFLOW_* environment variables
func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("DEALFLOW_DATA_DIR", &c.DataDir)
	str("DEALFLOW_LOG_LEVEL", &c.LogLevel)
	str("DEALFLOW_ADDR", &c.Server.Addr)
	str("DEALFLOW_JWT_SECRET", &c.Server.JWTSecret)
	str("DEALFLOW_SERVER_URL", &c.Server.URL)
	str("DEALFLOW_TOKEN", &c.Server.Token)
	str("DEALFLOW_REDIS_URL", &c.Redis.URL)
	str("GEMINI_API_KEY", &c.Assistant.APIKey)
	str("DEALFLOW_ASSISTANT_API_KEY", &c.Assistant.APIKey)
	str("DEALFLOW_ASSISTANT_MODEL", &c.Assistant.Model)

	if v := os.Getenv("DEALFLOW_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Board.PageSize = n
		}
	}
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, "."+appName)
		} else {
			c.DataDir = "." + appName
		}
	} else if strings.HasPrefix(c.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, c.DataDir[2:])
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.SSEKeepAlive <= 0 {
		c.Server.SSEKeepAlive = 15 * time.Second
	}

	if c.Board.PageSize <= 0 {
		c.Board.PageSize = 20
	}
	if c.Board.EmptyText == "" {
		c.Board.EmptyText = "Nothing here"
	}
	if c.Board.RefreshDebounce <= 0 {
		c.Board.RefreshDebounce = 100 * time.Millisecond
	}

	if c.Redis.Channel == "" {
		c.Redis.Channel = "dealflow:events"
	}

	if c.Webhooks.Timeout <= 0 {
		c.Webhooks.Timeout = 10 * time.Second
	}
	if c.Webhooks.RetryMax == 0 {
		c.Webhooks.RetryMax = 3
	}
	if c.Webhooks.Workers <= 0 {
		c.Webhooks.Workers = 4
	}

	if c.Assistant.Model == "" {
		c.Assistant.Model = "gemini-2.5-flash"
	}

	c.KeyMappings.applyDefaults()
	c.ColorScheme.ApplyDefaults()
}
