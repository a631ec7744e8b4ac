package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteFieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Use(zap.New(core))
	defer Use(nil)

	Debug("sql", map[string]any{"sql": "SELECT 1"})
	Info("request", map[string]any{"status": 200, "path": "/api/v1/cabins"})
	Error("resolver_error", nil)

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "request" || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("unexpected first entry: %+v", entries[0].Entry)
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/v1/cabins" || fields["status"] != int64(200) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", entries[1].Level)
	}
}

func TestInitWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Use(nil)

	SetDebug(true)
	defer SetDebug(false)
	Debug("debug_enabled", nil)
	Sync()
}
