package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// WriteRateLimiter: IP별 스탯 쓰기 요청 횟수 제한.
// 변이 파이프라인의 스로틀 게이트는 (플레이어, 스탯) 단위의 도메인 규칙이고,
// 이 제한은 그보다 바깥의 남용 방지 장치다.
type WriteRateLimiter struct {
	attempts    map[string]*attemptInfo
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
}

type attemptInfo struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// NewWriteRateLimiter: 새 Rate Limiter 생성
func NewWriteRateLimiter() *WriteRateLimiter {
	rl := &WriteRateLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: constants.WriteRateLimit.MaxAttempts,
		window:      constants.WriteRateLimit.Window,
		lockout:     constants.WriteRateLimit.Lockout,
	}

	// 주기적 정리 고루틴
	go rl.cleanupLoop()

	return rl
}

// Allow: 쓰기 요청 1건을 기록하고 허용 여부를 반환한다.
func (l *WriteRateLimiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	info, exists := l.attempts[ip]
	if !exists {
		l.attempts[ip] = &attemptInfo{count: 1, firstAttempt: now}
		return true, 0
	}

	// 잠금 상태 확인
	if now.Before(info.lockedUntil) {
		return false, info.lockedUntil.Sub(now)
	}

	// 윈도우 만료 시 리셋
	if now.Sub(info.firstAttempt) > l.window {
		info.count = 0
		info.firstAttempt = now
		info.lockedUntil = time.Time{}
	}

	info.count++
	if info.count > l.maxAttempts {
		info.lockedUntil = now.Add(l.lockout)
		return false, l.lockout
	}
	return true, 0
}

// Middleware: 쓰기 라우트에 붙이는 gin 미들웨어
func (l *WriteRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.Allow(c.ClientIP())
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":           "too many write requests",
				"retryAfterSeconds": int(retryAfter.Seconds()) + 1,
			})
			return
		}
		c.Next()
	}
}

// cleanupLoop: 만료된 기록 주기적 정리
func (l *WriteRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.cleanup()
	}
}

func (l *WriteRateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, info := range l.attempts {
		// 윈도우 + 잠금 시간 모두 지나면 삭제
		if now.Sub(info.firstAttempt) > l.window+l.lockout {
			delete(l.attempts, ip)
		}
	}
}
