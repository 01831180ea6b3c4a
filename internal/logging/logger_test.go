package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWithLogger(zap.New(core), cats)
	t.Cleanup(CloseAll)
	return logs
}

func TestUninitializedLoggersAreNoops(t *testing.T) {
	CloseAll()
	// Must not panic or write anywhere.
	Sync("cycle %d", 1)
	Get(CategoryAPI).Error("boom")
	WithRequestID(CategoryAPI, "req-1").Info("hello")
}

func TestCategoryRouting(t *testing.T) {
	logs := observe(t, nil)

	Sync("load cycle %d started", 3)
	APIDebug("GET %s", "/api/logs")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "sync" || entries[0].Message != "load cycle 3 started" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].LoggerName != "api" || entries[1].Level != zapcore.DebugLevel {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestDisabledCategory(t *testing.T) {
	logs := observe(t, map[string]bool{"csv": false, "sync": true})

	CSV("row %d imported", 1)
	Sync("kept")

	if logs.Len() != 1 {
		t.Fatalf("expected only the sync entry, got %d", logs.Len())
	}
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("categories absent from the map should default to enabled")
	}
	if IsCategoryEnabled(CategoryCSV) {
		t.Error("csv should be disabled")
	}
}

func TestRequestLoggerFields(t *testing.T) {
	logs := observe(t, nil)

	WithRequestID(CategoryAPI, "abc-123", "attempt", 2).Warn("request failed: %s", "timeout")

	entries := logs.FilterField(zap.String("req", "abc-123")).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry tagged with the request id, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["attempt"]; got != int64(2) {
		t.Errorf("expected attempt=2, got %v", got)
	}
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fruity.log")
	if err := Initialize(Options{Level: "debug", Format: "json", File: path}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Store("preferences opened at %s", "/tmp/prefs.db")
	CloseAll()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"logger":"store"`) {
		t.Errorf("expected store entry in log file, got %s", data)
	}
}

func TestInitializeRejectsBadOptions(t *testing.T) {
	if err := Initialize(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Initialize(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
