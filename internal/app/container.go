// Package app: 의존성 조립과 프로세스 생명주기.
// config → logger → postgres → valkey → 저장소 → 큐/워커 → 서비스 → 핸들러
// → 라우터 → http.Server 순으로 조립한다.
package app

import (
	"context"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/kapu/gamehub-backend-go/internal/config"
	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/server"
	"github.com/kapu/gamehub-backend-go/internal/service/activity"
	"github.com/kapu/gamehub-backend-go/internal/service/cache"
	"github.com/kapu/gamehub-backend-go/internal/service/database"
	"github.com/kapu/gamehub-backend-go/internal/service/integration"
	"github.com/kapu/gamehub-backend-go/internal/service/leaderboard"
	"github.com/kapu/gamehub-backend-go/internal/service/stats"
)

// Container: 조립이 끝난 애플리케이션 의존성 묶음
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Postgres *database.PostgresService
	Cache    *cache.Service

	Invalidator *cache.Invalidator
	Queue       *stats.SnapshotQueue
	Reconciler  *stats.Reconciler

	Stats        *stats.Service
	Leaderboard  *leaderboard.Service
	Integrations *integration.Registry
	Activity     *activity.Logger

	Handler *server.APIHandler
	Server  *http.Server
}

// BuildContainer: 설정으로부터 전체 의존성 그래프를 조립한다.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	pg, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres init failed: %w", err)
	}

	if err := pg.AutoMigrate(
		&stats.Stat{},
		&stats.PlayerStat{},
		&stats.StatSnapshot{},
		&leaderboard.Leaderboard{},
		&leaderboard.LeaderboardEntry{},
	); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	cacheSvc, err := cache.NewCacheService(cache.Config{
		Host:     cfg.Valkey.Host,
		Port:     cfg.Valkey.Port,
		Password: cfg.Valkey.Password,
		DB:       cfg.Valkey.DB,
	}, logger)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	invalidator := cache.NewInvalidator(cacheSvc, logger)
	coordinator := cache.NewCoordinator(cacheSvc, invalidator, logger)

	statsRepo := stats.NewRepository(pg.GetGormDB())
	queue := stats.NewSnapshotQueue(statsRepo, cfg.Snapshot.BatchSize, cfg.Snapshot.FlushInterval, logger)
	integrations := integration.NewRegistry(logger)
	activityLogger := activity.NewActivityLogger(cfg.Activity.FilePath, logger)

	statsSvc := stats.NewService(statsRepo, coordinator, cacheSvc, queue, integrations, activityLogger, logger)
	reconciler := stats.NewReconciler(statsSvc, cfg.Reconcile.Interval, logger)

	lbSvc := leaderboard.NewService(leaderboard.NewRepository(pg.GetGormDB()), activityLogger, logger)

	handler := server.NewAPIHandler(statsSvc, lbSvc, activityLogger, pg, cacheSvc, logger)

	router := NewRouter(ctx, handler, server.NewWriteRateLimiter(), logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: constants.ServerTimeout.ReadHeader,
		ReadTimeout:       constants.ServerTimeout.Read,
		WriteTimeout:      constants.ServerTimeout.Write,
		IdleTimeout:       constants.ServerTimeout.Idle,
		MaxHeaderBytes:    constants.ServerTimeout.MaxHeaderBytes,
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Postgres:     pg,
		Cache:        cacheSvc,
		Invalidator:  invalidator,
		Queue:        queue,
		Reconciler:   reconciler,
		Stats:        statsSvc,
		Leaderboard:  lbSvc,
		Integrations: integrations,
		Activity:     activityLogger,
		Handler:      handler,
		Server:       httpServer,
	}, nil
}

// Close: 컨테이너 리소스 정리 (DB, 캐시 연결 해제)
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("Cache close failed", slog.Any("error", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			c.Logger.Warn("Postgres close failed", slog.Any("error", err))
		}
	}
}
