// Package constants: 서비스 전역 튜닝값 모음
package constants

import "time"

// CacheTTL 는 패키지 변수다.
var CacheTTL = struct {
	PlayerStat      time.Duration
	PlayerStatList  time.Duration
	GlobalStatValue time.Duration
}{
	PlayerStat:      5 * time.Minute,  // 개별 (player, stat) 값
	PlayerStatList:  5 * time.Minute,  // 플레이어별 스탯 목록
	GlobalStatValue: 30 * time.Minute, // 글로벌 카운터 (주기 재계산으로 복구됨)
}

// ValkeyConfig 는 패키지 변수다.
var ValkeyConfig = struct {
	ReadyTimeout      time.Duration
	ConnWriteTimeout  time.Duration
	DialTimeout       time.Duration
	BlockingPoolSize  int
	PipelineMultiplex int
}{
	ReadyTimeout:      5 * time.Second,
	ConnWriteTimeout:  10 * time.Second,
	DialTimeout:       5 * time.Second,
	BlockingPoolSize:  100,
	PipelineMultiplex: 4,
}

// DatabaseConfig 는 패키지 변수다.
var DatabaseConfig = struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}{
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: 30 * time.Minute,
}

// DatabaseDefaults 는 패키지 변수다.
var DatabaseDefaults = struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}{
	Host:     "localhost",
	Port:     5432,
	User:     "gamehub",
	Password: "gamehub",
	Database: "gamehub",
}

// RequestTimeout 는 패키지 변수다.
var RequestTimeout = struct {
	DatabasePing time.Duration
	StatWrite    time.Duration
	StatRead     time.Duration
	Leaderboard  time.Duration
	History      time.Duration
	SideEffect   time.Duration // 응답과 분리된 fire-and-forget 사이드 이펙트 상한
}{
	DatabasePing: 5 * time.Second,
	StatWrite:    10 * time.Second,
	StatRead:     5 * time.Second,
	Leaderboard:  15 * time.Second,
	History:      15 * time.Second,
	SideEffect:   10 * time.Second,
}

// ServerTimeout 는 패키지 변수다.
var ServerTimeout = struct {
	ReadHeader     time.Duration
	Read           time.Duration
	Write          time.Duration
	Idle           time.Duration
	Shutdown       time.Duration
	MaxHeaderBytes int
}{
	ReadHeader:     5 * time.Second,
	Read:           30 * time.Second,
	Write:          30 * time.Second,
	Idle:           120 * time.Second,
	Shutdown:       15 * time.Second,
	MaxHeaderBytes: 1 << 20,
}

// PaginationConfig 는 패키지 변수다.
var PaginationConfig = struct {
	ItemsPerPage int
}{
	ItemsPerPage: 50, // 리더보드/히스토리 페이지당 항목 수
}

// SnapshotQueueConfig 는 패키지 변수다.
var SnapshotQueueConfig = struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	InsertChunk   int
	MaxRetries    uint64
}{
	BufferSize:    4096,            // enqueue 채널 용량 (가득 차면 드롭 후 로그)
	BatchSize:     256,             // 이 수에 도달하면 즉시 플러시
	FlushInterval: 5 * time.Second, // 시간 기준 플러시 주기
	InsertChunk:   500,             // CreateInBatches 청크 크기
	MaxRetries:    5,               // 플러시 재시도 예산 (지수 백오프)
}

// InvalidationConfig 는 패키지 변수다.
var InvalidationConfig = struct {
	QueueSize int
}{
	QueueSize: 4096, // 지연 무효화 작업 큐 용량
}

// ReconcileConfig 는 패키지 변수다.
var ReconcileConfig = struct {
	Interval time.Duration
	Timeout  time.Duration
}{
	Interval: 10 * time.Minute, // 글로벌 카운터 SUM 재계산 주기
	Timeout:  60 * time.Second,
}

// WriteRateLimit 는 패키지 변수다.
var WriteRateLimit = struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}{
	MaxAttempts: 120,             // IP당 쓰기 요청 수
	Window:      1 * time.Minute, // 측정 윈도우
	Lockout:     1 * time.Minute, // 초과 시 잠금 시간
}

// ServerConfig 는 패키지 변수다.
var ServerConfig = struct {
	TrustedProxies []string
}{
	TrustedProxies: []string{"127.0.0.1", "::1"},
}

// CORSConfig 는 패키지 변수다.
var CORSConfig = struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}{
	AllowOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Caller-Scopes", "X-Caller-Admin", "X-Caller-Dev-Build"},
}
