// Package logging: 통합 로깅 기능을 제공합니다.
// tint 핸들러와 lumberjack 로테이션을 지원합니다.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config: 로깅 설정입니다.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string // 로그 디렉토리 (비어있으면 stdout만)
	MaxSizeMB  int    // 파일당 최대 크기 (MB)
	MaxBackups int    // 유지할 백업 파일 수
	MaxAgeDays int    // 보관 일수
	Compress   bool   // gzip 압축 여부
}

const logFileName = "gamehub.log"

// NewLogger: 로거를 생성하고 slog 기본 로거로 등록합니다.
func NewLogger(cfg Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)
	logDir := strings.TrimSpace(cfg.Dir)
	if logDir == "" {
		logger := newLogger(os.Stdout, level, false)
		slog.SetDefault(logger)
		return logger, nil
	}

	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf(
			"invalid log config: size=%d backups=%d age_days=%d",
			cfg.MaxSizeMB,
			cfg.MaxBackups,
			cfg.MaxAgeDays,
		)
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	writer := io.MultiWriter(os.Stdout, logFile)
	logger := newLogger(writer, level, true)
	slog.SetDefault(logger)
	logger.Info("file_logging_enabled", slog.String("path", logFile.Filename))
	return logger, nil
}

func newLogger(writer io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(writer, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    noColor,
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
