package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config lookup at an empty temp dir and clears overrides
func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)
	for _, key := range []string{
		"DEALFLOW_DATA_DIR", "DEALFLOW_LOG_LEVEL", "DEALFLOW_ADDR", "DEALFLOW_JWT_SECRET",
		"DEALFLOW_SERVER_URL", "DEALFLOW_TOKEN", "DEALFLOW_REDIS_URL", "GEMINI_API_KEY",
		"DEALFLOW_ASSISTANT_API_KEY", "DEALFLOW_ASSISTANT_MODEL", "DEALFLOW_PAGE_SIZE",
		"DEALFLOW_THEME_FILE",
	} {
		t.Setenv(key, "")
	}
	return tempDir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "dealflow")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestDefaultKeyMappings(t *testing.T) {
	defaults := DefaultKeyMappings()

	if defaults.Quit != "q" {
		t.Errorf("Default Quit key = %s, want q", defaults.Quit)
	}
	if defaults.PickUp != " " {
		t.Errorf("Default PickUp key = %q, want space", defaults.PickUp)
	}
	if defaults.Drop != "enter" {
		t.Errorf("Default Drop key = %s, want enter", defaults.Drop)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() without config file failed: %v", err)
	}

	if cfg.KeyMappings.Quit != "q" {
		t.Errorf("Loaded config Quit key = %s, want q (default)", cfg.KeyMappings.Quit)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %s, want default", cfg.Server.Addr)
	}
	if cfg.Board.PageSize != 20 {
		t.Errorf("Board.PageSize = %d, want 20", cfg.Board.PageSize)
	}
	if cfg.Board.RefreshDebounce != 100*time.Millisecond {
		t.Errorf("Board.RefreshDebounce = %v, want 100ms", cfg.Board.RefreshDebounce)
	}
	if cfg.Redis.Channel != "dealflow:events" {
		t.Errorf("Redis.Channel = %s, want dealflow:events", cfg.Redis.Channel)
	}
	if filepath.Base(cfg.DataDir) != ".dealflow" {
		t.Errorf("DataDir = %s, want ~/.dealflow", cfg.DataDir)
	}
	if cfg.ColorScheme.Accent == "" {
		t.Error("theme defaults were not applied")
	}
}

func TestLoadConfigWithFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `data_dir: /var/lib/dealflow
log_level: debug
server:
  addr: ":9090"
board:
  page_size: 5
  refresh_debounce: 250ms
webhooks:
  timeout: 3s
key_mappings:
  quit: "x"
  pick_up: "p"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with config file failed: %v", err)
	}

	if cfg.DataDir != "/var/lib/dealflow" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %s, want :9090", cfg.Server.Addr)
	}
	if cfg.Board.PageSize != 5 {
		t.Errorf("Board.PageSize = %d, want 5", cfg.Board.PageSize)
	}
	if cfg.Board.RefreshDebounce != 250*time.Millisecond {
		t.Errorf("Board.RefreshDebounce = %v, want 250ms", cfg.Board.RefreshDebounce)
	}
	if cfg.Webhooks.Timeout != 3*time.Second {
		t.Errorf("Webhooks.Timeout = %v, want 3s", cfg.Webhooks.Timeout)
	}
	if cfg.KeyMappings.Quit != "x" || cfg.KeyMappings.PickUp != "p" {
		t.Errorf("key mappings not loaded: %+v", cfg.KeyMappings)
	}

	// Unspecified values should use defaults
	if cfg.KeyMappings.Drop != "enter" {
		t.Errorf("Loaded Drop key = %s, want enter (default)", cfg.KeyMappings.Drop)
	}
	if cfg.Webhooks.Workers != 4 {
		t.Errorf("Webhooks.Workers = %d, want 4", cfg.Webhooks.Workers)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "server: [unclosed")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "server:\n  addr: \":9090\"\n")

	t.Setenv("DEALFLOW_ADDR", ":7070")
	t.Setenv("DEALFLOW_PAGE_SIZE", "50")
	t.Setenv("GEMINI_API_KEY", "from-gemini")
	t.Setenv("DEALFLOW_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %s, want env value :7070", cfg.Server.Addr)
	}
	if cfg.Board.PageSize != 50 {
		t.Errorf("Board.PageSize = %d, want 50", cfg.Board.PageSize)
	}
	if cfg.Assistant.APIKey != "from-gemini" {
		t.Errorf("Assistant.APIKey = %q", cfg.Assistant.APIKey)
	}

	t.Setenv("DEALFLOW_ASSISTANT_API_KEY", "from-dealflow")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Assistant.APIKey != "from-dealflow" {
		t.Errorf("DEALFLOW_ASSISTANT_API_KEY should win, got %q", cfg.Assistant.APIKey)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]string{"debug": "DEBUG", "WARN": "WARN", "bogus": "INFO", "": "INFO"}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		if got := cfg.SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := isolate(t)

	cfg := &Config{
		KeyMappings: KeyMappings{Quit: "x"},
		Board:       BoardConfig{PageSize: 7, RefreshDebounce: 300 * time.Millisecond},
	}
	cfg.applyDefaults()

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	configPath := filepath.Join(tempDir, "dealflow", "config.yaml")
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s", configPath)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}
	if cfg2.KeyMappings.Quit != "x" {
		t.Errorf("Reloaded Quit key = %s, want x", cfg2.KeyMappings.Quit)
	}
	if cfg2.Board.PageSize != 7 {
		t.Errorf("Reloaded PageSize = %d, want 7", cfg2.Board.PageSize)
	}
	if cfg2.Board.RefreshDebounce != 300*time.Millisecond {
		t.Errorf("Reloaded RefreshDebounce = %v, want 300ms", cfg2.Board.RefreshDebounce)
	}
}
