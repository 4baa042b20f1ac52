package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/domain"
	"github.com/kapu/gamehub-backend-go/internal/service/leaderboard"
)

// ListLeaderboardEntries: 필터·정렬된 엔트리 목록을 조회합니다. 각 엔트리에는
// 전역 위치가 덧붙으며, aliasId가 지정되면 위치는 페이지 윈도우와 무관하게
// 전체 순서에 대해 새로 계산됩니다.
// GET /v1/games/:gameId/leaderboards/:leaderboardId/entries
func (h *APIHandler) ListLeaderboardEntries(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}
	leaderboardID, ok := pathUint(c, "leaderboardId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.Leaderboard)
	defer cancel()

	q := leaderboard.ListQuery{
		Page:        queryInt(c, "page", 0),
		AliasID:     c.Query("aliasId"),
		PropKey:     c.Query("propKey"),
		PropValue:   c.Query("propValue"),
		WithDeleted: c.Query("withDeleted") == "true",
	}

	page, err := h.leaderboard.ListEntries(ctx, gameID, leaderboardID, q, callerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateLeaderboardEntry: 엔트리의 점수/숨김 상태를 수정합니다. (관리자 전용)
// PATCH /v1/games/:gameId/leaderboards/:leaderboardId/entries/:entryId
func (h *APIHandler) UpdateLeaderboardEntry(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}
	leaderboardID, ok := pathUint(c, "leaderboardId")
	if !ok {
		return
	}
	entryID, ok := pathUint(c, "entryId")
	if !ok {
		return
	}

	if !callerFrom(c).Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "admin scope required"})
		return
	}

	var req domain.EntryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.Leaderboard)
	defer cancel()

	entry, err := h.leaderboard.UpdateEntry(ctx, gameID, leaderboardID, entryID, leaderboard.EntryUpdate{
		Score:  req.Score,
		Hidden: req.Hidden,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// UpdateLeaderboardRefreshInterval: 리프레시 간격을 변경합니다. "never"에서
// 벗어나는 변경은 현재 엔트리를 모두 보관(소프트 삭제)합니다. (관리자 전용)
// PATCH /v1/games/:gameId/leaderboards/:leaderboardId
func (h *APIHandler) UpdateLeaderboardRefreshInterval(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}
	leaderboardID, ok := pathUint(c, "leaderboardId")
	if !ok {
		return
	}

	if !callerFrom(c).Admin {
		c.JSON(http.StatusForbidden, gin.H{"message": "admin scope required"})
		return
	}

	var req domain.RefreshIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "refreshInterval is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.Leaderboard)
	defer cancel()

	archived, err := h.leaderboard.ChangeRefreshInterval(ctx, gameID, leaderboardID, req.RefreshInterval)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"archived": archived})
}
