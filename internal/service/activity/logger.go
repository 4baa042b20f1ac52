// Package activity: "누가 무엇을 바꿨는지"에 대한 파일 기반 감사 로그.
// 정확성에 필요하지 않은 fire-and-forget 기록이며, 실패는 로그만 남긴다.
package activity

import (
	"fmt"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/goccy/go-json"
)

// LogEntry: 활동 로그의 한 항목을 나타내는 구조체
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"` // "stat_change", "entry_edit"
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger: 파일 기반의 간단한 활동 로그 기록기
type Logger struct {
	filePath string
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewActivityLogger: 새로운 활동 로그 기록기를 생성한다.
func NewActivityLogger(filePath string, logger *slog.Logger) *Logger {
	return &Logger{
		filePath: filePath,
		logger:   logger,
	}
}

// RecordStatChange: 스탯 변이 성공을 기록한다.
func (l *Logger) RecordStatChange(playerID, internalName string, change, value float64) {
	l.append(LogEntry{
		Timestamp: time.Now(),
		Type:      "stat_change",
		Summary:   fmt.Sprintf("player %s changed %s by %g to %g", playerID, internalName, change, value),
		Details: map[string]any{
			"playerId":     playerID,
			"internalName": internalName,
			"change":       change,
			"value":        value,
		},
	})
}

// RecordEntryEdit: 관리자의 리더보드 엔트리 수정을 기록한다.
func (l *Logger) RecordEntryEdit(leaderboardID, entryID uint, fields map[string]any) {
	l.append(LogEntry{
		Timestamp: time.Now(),
		Type:      "entry_edit",
		Summary:   fmt.Sprintf("entry %d on leaderboard %d edited", entryID, leaderboardID),
		Details: map[string]any{
			"leaderboardId": leaderboardID,
			"entryId":       entryID,
			"fields":        fields,
		},
	})
}

// append: 항목 하나를 JSONL 파일 끝에 덧붙인다. (Thread-safe)
func (l *Logger) append(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Error("Failed to open activity log file", slog.Any("error", err))
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(entry); err != nil {
		l.logger.Error("Failed to write activity log", slog.Any("error", err))
	}
}

// GetRecentLogs: 최근 활동 로그를 조회한다.
func (l *Logger) GetRecentLogs(limit int) ([]LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	var logs []LogEntry
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var entry LogEntry
		if err := decoder.Decode(&entry); err != nil {
			continue // Skip malformed lines
		}
		logs = append(logs, entry)
	}

	if len(logs) > limit {
		return logs[len(logs)-limit:], nil
	}
	return logs, nil
}
