package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/domain"
	"github.com/kapu/gamehub-backend-go/internal/service/stats"
)

// UpdateStat: 스탯 변경을 적용합니다.
// PUT /v1/games/:gameId/players/:playerId/stats/:internalName
func (h *APIHandler) UpdateStat(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}

	var req domain.StatChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "change is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.StatWrite)
	defer cancel()

	row, err := h.stats.ApplyChange(ctx, gameID, c.Param("playerId"), c.Param("internalName"), *req.Change, req.ContinuityDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerStat": row})
}

// GetStat: 현재 스탯 값을 읽기-관통 캐시로 조회합니다.
// includeGlobal=true면 글로벌 집계값을 병렬로 함께 조회합니다.
// GET /v1/games/:gameId/players/:playerId/stats/:internalName
func (h *APIHandler) GetStat(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.StatRead)
	defer cancel()

	playerID := c.Param("playerId")
	internalName := c.Param("internalName")

	if c.Query("includeGlobal") != "true" {
		row, err := h.stats.GetValue(ctx, gameID, playerID, internalName)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"playerStat": row})
		return
	}

	// 플레이어 값과 글로벌 카운터는 서로 다른 저장소에 있으므로 병렬 조회
	var (
		row       *stats.PlayerStat
		global    float64
		rowErr    error
		globalErr error
		wg        sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		row, rowErr = h.stats.GetValue(ctx, gameID, playerID, internalName)
	}()
	go func() {
		defer wg.Done()
		global, globalErr = h.stats.GetGlobalValue(ctx, gameID, internalName)
	}()
	wg.Wait()

	if rowErr != nil {
		h.respondError(c, rowErr)
		return
	}
	if globalErr != nil {
		h.respondError(c, globalErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerStat": row, "globalValue": global})
}

// ListPlayerStats: 플레이어의 전체 스탯 목록을 조회합니다.
// GET /v1/games/:gameId/players/:playerId/stats
func (h *APIHandler) ListPlayerStats(c *gin.Context) {
	if _, ok := pathUint(c, "gameId"); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.StatRead)
	defer cancel()

	rows, err := h.stats.ListPlayerStats(ctx, c.Param("playerId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playerStats": rows, "count": len(rows)})
}

// historyQueryFrom: 쿼리 파라미터에서 히스토리 필터를 구성한다.
func historyQueryFrom(c *gin.Context) stats.HistoryQuery {
	q := stats.HistoryQuery{
		PlayerAliasID: c.Query("playerId"),
		Page:          queryInt(c, "page", 0),
	}
	if raw := c.Query("startDate"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			q.StartDate = &t
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			q.EndDate = &t
		}
	}
	return q
}

// StatHistory: 스탯의 스냅샷 히스토리와 집계 지표를 조회합니다.
// GET /v1/games/:gameId/stats/:internalName/history
func (h *APIHandler) StatHistory(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.History)
	defer cancel()

	page, err := h.stats.History(ctx, gameID, c.Param("internalName"), historyQueryFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GlobalStatHistory: 글로벌 집계값의 히스토리를 조회합니다.
// GET /v1/games/:gameId/stats/:internalName/global-history
func (h *APIHandler) GlobalStatHistory(c *gin.Context) {
	gameID, ok := pathUint(c, "gameId")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.RequestTimeout.History)
	defer cancel()

	page, err := h.stats.GlobalHistory(ctx, gameID, c.Param("internalName"), historyQueryFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
