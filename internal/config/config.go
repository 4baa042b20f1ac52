package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// Config: GameHub 백엔드 전체 동작에 필요한 설정을 담는 구조체
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Valkey    ValkeyConfig
	Snapshot  SnapshotConfig
	Reconcile ReconcileConfig
	Logging   LoggingConfig
	Activity  ActivityConfig
	Version   string
}

// ServerConfig: HTTP API 서버 설정
type ServerConfig struct {
	Port int
}

// PostgresConfig: 메인 데이터베이스(PostgreSQL) 연결 설정
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ValkeyConfig: 캐시/글로벌 카운터 용도의 Valkey(Redis) 연결 설정
type ValkeyConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SnapshotConfig: 스냅샷 플러시 큐 설정
type SnapshotConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// ReconcileConfig: 글로벌 카운터 재계산 워커 설정
type ReconcileConfig struct {
	Interval time.Duration
}

// LoggingConfig: 애플리케이션 로그 설정 (레벨, 디렉토리, 로테이션 정책)
type LoggingConfig struct {
	Level      string
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ActivityConfig: 감사용 활동 로그 파일 설정
type ActivityConfig struct {
	FilePath string
}

// Load: .env 파일 및 환경 변수로부터 설정을 로드하고, 기본값을 적용하여 Config 객체를 생성한다.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 30080),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", constants.DatabaseDefaults.Host),
			Port:     getEnvInt("POSTGRES_PORT", constants.DatabaseDefaults.Port),
			User:     getEnv("POSTGRES_USER", constants.DatabaseDefaults.User),
			Password: getEnv("POSTGRES_PASSWORD", constants.DatabaseDefaults.Password),
			Database: getEnv("POSTGRES_DB", constants.DatabaseDefaults.Database),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Valkey: ValkeyConfig{
			Host:     getEnv("CACHE_HOST", "localhost"),
			Port:     getEnvInt("CACHE_PORT", 6379),
			Password: getEnv("CACHE_PASSWORD", ""),
			DB:       getEnvInt("CACHE_DB", 0),
		},
		Snapshot: SnapshotConfig{
			BatchSize:     getEnvInt("SNAPSHOT_BATCH_SIZE", constants.SnapshotQueueConfig.BatchSize),
			FlushInterval: time.Duration(getEnvInt("SNAPSHOT_FLUSH_INTERVAL_SECONDS", int(constants.SnapshotQueueConfig.FlushInterval.Seconds()))) * time.Second,
		},
		Reconcile: ReconcileConfig{
			Interval: time.Duration(getEnvInt("RECONCILE_INTERVAL_SECONDS", int(constants.ReconcileConfig.Interval.Seconds()))) * time.Second,
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Dir:        getEnv("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Activity: ActivityConfig{
			FilePath: getEnv("ACTIVITY_LOG_FILE", "activity.log"),
		},
		Version: strings.TrimSpace(getEnv("APP_VERSION", "1.0.0-go")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate: 필수 설정값이 누락되지 않았는지, 범위가 타당한지 검증한다.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Postgres.Host == "" || c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required")
	}
	if c.Valkey.Host == "" {
		return fmt.Errorf("CACHE_HOST is required")
	}
	if c.Snapshot.BatchSize <= 0 {
		return fmt.Errorf("SNAPSHOT_BATCH_SIZE must be positive")
	}
	if c.Snapshot.FlushInterval <= 0 {
		return fmt.Errorf("SNAPSHOT_FLUSH_INTERVAL_SECONDS must be positive")
	}
	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
