package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(maxAttempts int) *WriteRateLimiter {
	return &WriteRateLimiter{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: maxAttempts,
		window:      time.Minute,
		lockout:     time.Minute,
	}
}

func TestWriteRateLimiterAllowsUnderBudget(t *testing.T) {
	rl := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		if allowed, _ := rl.Allow("1.2.3.4"); !allowed {
			t.Fatalf("attempt %d must be allowed", i+1)
		}
	}

	allowed, retry := rl.Allow("1.2.3.4")
	if allowed {
		t.Fatalf("4th attempt must be denied")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retry duration, got %v", retry)
	}

	// 다른 IP는 영향을 받지 않는다.
	if allowed, _ := rl.Allow("5.6.7.8"); !allowed {
		t.Fatalf("other IP must be allowed")
	}
}

func TestWriteRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := newTestLimiter(1)

	router := gin.New()
	router.PUT("/write", rl.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPut, "/write", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first write must pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPut, "/write", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}
