package activity

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestActivityLogger_RecordAndGetRecentLogs(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "activity.log")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l := NewActivityLogger(filePath, logger)
	l.RecordStatChange("p1", "gold", 10, 10)
	l.RecordEntryEdit(3, 7, map[string]any{"score": 42.0})

	logs, err := l.GetRecentLogs(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Type != "stat_change" || logs[1].Type != "entry_edit" {
		t.Fatalf("unexpected log order: %+v", logs)
	}
	if logs[0].Details["playerId"] != "p1" {
		t.Fatalf("unexpected details: %+v", logs[0].Details)
	}

	limited, err := l.GetRecentLogs(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 || limited[0].Type != "entry_edit" {
		t.Fatalf("unexpected limited logs: %+v", limited)
	}
}

func TestActivityLogger_GetRecentLogsMissingFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "missing.log")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	l := NewActivityLogger(filePath, logger)
	logs, err := l.GetRecentLogs(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty logs, got %d", len(logs))
	}
}
