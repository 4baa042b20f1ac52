package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/service/activity"
)

// RecentActivity: 최근 활동 로그(스탯 변경·엔트리 수정)를 조회합니다. (관리자 전용)
// GET /v1/games/:gameId/activity
func (h *APIHandler) RecentActivity(c *gin.Context) {
	if _, ok := pathUint(c, "gameId"); !ok {
		return
	}
	if !callerFrom(c).Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "admin scope required"})
		return
	}

	limit := queryInt(c, "limit", 50)
	if limit <= 0 {
		limit = 50
	}

	var logs []activity.LogEntry
	if h.activity != nil {
		var err error
		logs, err = h.activity.GetRecentLogs(limit)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}
	if logs == nil {
		logs = []activity.LogEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"activities": logs, "count": len(logs)})
}

// ResetPlayerCache: 플레이어의 스탯 캐시 무효화를 큐에 넣습니다. 캐시가
// 저장소와 어긋났을 때 TTL 만료를 기다리지 않고 바로잡는 운영용 경로다.
// (관리자 전용)
// DELETE /v1/games/:gameId/players/:playerId/cache
func (h *APIHandler) ResetPlayerCache(c *gin.Context) {
	if _, ok := pathUint(c, "gameId"); !ok {
		return
	}
	if !callerFrom(c).Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "admin scope required"})
		return
	}

	h.stats.InvalidatePlayerCache(c.Param("playerId"))
	c.JSON(http.StatusAccepted, gin.H{"message": "cache invalidation queued"})
}
