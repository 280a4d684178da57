package logging

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToDataDir(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
	})

	dir := t.TempDir()
	closer, err := Init(dir, slog.LevelInfo)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	slog.Debug("hidden")
	slog.Info("board started", "columns", 6)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "logs", "dealflow.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "board started") || !strings.Contains(out, "columns=6") {
		t.Errorf("log line missing, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
}
