package app

import (
	"context"

	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/server"
)

// NewRouter: HTTP 라우터를 구성한다. 쓰기 라우트에만 IP 단위 rate limit이
// 붙는다.
func NewRouter(ctx context.Context, h *server.APIHandler, writeLimiter *server.WriteRateLimiter, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(server.LoggerMiddleware(ctx, logger, "/health"))
	router.Use(server.SecurityHeadersMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     constants.CORSConfig.AllowOrigins,
		AllowMethods:     constants.CORSConfig.AllowMethods,
		AllowHeaders:     constants.CORSConfig.AllowHeaders,
		AllowCredentials: true,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	if err := router.SetTrustedProxies(constants.ServerConfig.TrustedProxies); err != nil {
		logger.Warn("Failed to set trusted proxies", slog.Any("error", err))
	}

	router.GET("/health", h.Health)

	games := router.Group("/v1/games/:gameId")
	{
		games.PUT("/players/:playerId/stats/:internalName", writeLimiter.Middleware(), h.UpdateStat)
		games.GET("/players/:playerId/stats/:internalName", h.GetStat)
		games.GET("/players/:playerId/stats", h.ListPlayerStats)

		games.GET("/stats/:internalName/history", h.StatHistory)
		games.GET("/stats/:internalName/global-history", h.GlobalStatHistory)

		games.GET("/activity", h.RecentActivity)
		games.DELETE("/players/:playerId/cache", writeLimiter.Middleware(), h.ResetPlayerCache)

		games.GET("/leaderboards/:leaderboardId/entries", h.ListLeaderboardEntries)
		games.PATCH("/leaderboards/:leaderboardId/entries/:entryId", writeLimiter.Middleware(), h.UpdateLeaderboardEntry)
		games.PATCH("/leaderboards/:leaderboardId", writeLimiter.Middleware(), h.UpdateLeaderboardRefreshInterval)
	}

	return router
}
