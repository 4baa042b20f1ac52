package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/health"
	"github.com/kapu/gamehub-backend-go/internal/service/activity"
	"github.com/kapu/gamehub-backend-go/internal/service/leaderboard"
	"github.com/kapu/gamehub-backend-go/internal/service/stats"
	"github.com/kapu/gamehub-backend-go/internal/util"
	apperrors "github.com/kapu/gamehub-backend-go/pkg/errors"
)

// APIHandler: 게임 백엔드 API 요청을 처리하는 핸들러입니다.
// 핸들러 메서드는 도메인별 파일로 분리됨:
//   - api_stats.go: 스탯 변이/조회/히스토리
//   - api_leaderboard.go: 리더보드 엔트리 목록/순위/관리자 수정
//
// 인증·스코프 검사는 상위 정책 계층이 이미 마쳤다고 신뢰하며, 여기서는
// X-Caller-* 헤더로 전달된 호출자 정보로 가시성만 결정한다.
type APIHandler struct {
	stats       *stats.Service
	leaderboard *leaderboard.Service
	activity    *activity.Logger
	store       StorePinger
	cache       CacheChecker
	logger      *slog.Logger
}

// StorePinger: 헬스 체크용 관계형 저장소 연결 확인
type StorePinger interface {
	Ping(ctx context.Context) error
}

// CacheChecker: 헬스 체크용 캐시 연결 확인
type CacheChecker interface {
	IsConnected(ctx context.Context) bool
}

// NewAPIHandler: 새로운 API 핸들러를 생성합니다. store/cache는 헬스 체크
// 전용이며 nil일 수 있다.
func NewAPIHandler(
	statsSvc *stats.Service,
	leaderboardSvc *leaderboard.Service,
	activityLogger *activity.Logger,
	store StorePinger,
	cacheChecker CacheChecker,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		stats:       statsSvc,
		leaderboard: leaderboardSvc,
		activity:    activityLogger,
		store:       store,
		cache:       cacheChecker,
		logger:      logger,
	}
}

// Health: 서비스와 의존성 상태를 반환합니다. 캐시는 소프트 의존성이라
// 죽어도 degraded로만 표시하고, 저장소가 죽으면 503을 반환한다.
// GET /health
func (h *APIHandler) Health(c *gin.Context) {
	resp := health.Get()
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.DatabasePing)
	defer cancel()

	if h.store != nil || h.cache != nil {
		resp.Checks = make(map[string]string)
	}
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			resp.Checks["database"] = "down"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "up"
		}
	}
	if h.cache != nil {
		if h.cache.IsConnected(ctx) {
			resp.Checks["cache"] = "up"
		} else {
			resp.Checks["cache"] = "down"
			resp.Status = "degraded"
		}
	}

	c.JSON(code, resp)
}

// callerFrom: 상위 게이트웨이가 심어준 호출자 헤더를 읽는다.
func callerFrom(c *gin.Context) leaderboard.Caller {
	scopes := strings.Split(c.GetHeader("X-Caller-Scopes"), ",")
	for i, scope := range scopes {
		scopes[i] = util.Normalize(scope)
	}
	admin := c.GetHeader("X-Caller-Admin") == "true" || util.Contains(scopes, "admin")
	return leaderboard.Caller{
		Admin:           admin,
		IncludeDevBuild: c.GetHeader("X-Caller-Dev-Build") == "true",
	}
}

// pathUint: 경로 파라미터를 uint로 파싱한다.
func pathUint(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// queryInt: 쿼리 파라미터를 int로 파싱한다. 없으면 기본값을 쓴다.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// respondError: 도메인 에러를 HTTP 상태로 매핑한다. 스로틀/변경폭/범위
// 거절은 모두 메시지를 담은 400이고, 원자 쓰기 경로의 저장소 장애만 503이다.
func (h *APIHandler) respondError(c *gin.Context, err error) {
	var throttled *stats.ThrottledError
	var tooLarge *stats.ChangeTooLargeError
	var outOfRange *stats.OutOfRangeError
	var validation *apperrors.ValidationError
	var notFound *apperrors.NotFoundError
	var dbErr *apperrors.DatabaseError

	switch {
	case errors.As(err, &throttled):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":           err.Error(),
			"retryAfterSeconds": throttled.RetryAfterSeconds,
		})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "maxChange": tooLarge.Max})
	case errors.As(err, &outOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "bound": outOfRange.Bound})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.As(err, &dbErr):
		h.logger.Error("Store unavailable", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "store unavailable"})
	default:
		h.logger.Error("Unhandled API error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
