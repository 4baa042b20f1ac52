package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"log/slog"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kapu/gamehub-backend-go/internal/service/cache"
	"github.com/kapu/gamehub-backend-go/internal/service/stats"
)

// gateHook: 사이드 이펙트 고루틴을 스냅샷 enqueue 직전 지점에서 붙잡아
// 셧다운 시퀀스와의 교차 순서를 제어한다.
type gateHook struct {
	release chan struct{}
}

func (g *gateHook) Notify(_ context.Context, _ *stats.PlayerStat) {
	<-g.release
}

type runtimeEnv struct {
	container *Container
	db        *gorm.DB
	svc       *stats.Service
	hook      *gateHook
}

func newRuntimeEnv(t *testing.T) *runtimeEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&stats.Stat{}, &stats.PlayerStat{}, &stats.StatSnapshot{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mini := miniredis.RunT(t)
	host, portStr, _ := net.SplitHostPort(mini.Addr())
	port, _ := strconv.Atoi(portStr)
	cacheSvc, err := cache.NewCacheService(cache.Config{
		Host:              host,
		Port:              port,
		DisableCache:      true,
		ForceSingleClient: true,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create cache service: %v", err)
	}
	t.Cleanup(func() { _ = cacheSvc.Close() })

	invalidator := cache.NewInvalidator(cacheSvc, logger)
	coordinator := cache.NewCoordinator(cacheSvc, invalidator, logger)
	repo := stats.NewRepository(db)

	// 플러시는 셧다운 드레인에서만 일어나도록 배치/주기를 크게 잡는다.
	queue := stats.NewSnapshotQueue(repo, 64, time.Hour, logger)
	hook := &gateHook{release: make(chan struct{})}
	svc := stats.NewService(repo, coordinator, cacheSvc, queue, hook, nil, logger)

	container := &Container{
		Logger:      logger,
		Cache:       cacheSvc,
		Invalidator: invalidator,
		Queue:       queue,
		Reconciler:  stats.NewReconciler(svc, time.Hour, logger),
		Stats:       svc,
		Server:      &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()},
	}

	return &runtimeEnv{container: container, db: db, svc: svc, hook: hook}
}

// 유예 시간 중에 끝난 변이의 스냅샷은 워커가 내려가기 전에 합류해야 한다.
// 워커가 외부 취소 신호에 바로 죽으면 스냅샷이 소비자 없는 채널에 남는다.
func TestRunFlushesSideEffectsEnqueuedDuringShutdown(t *testing.T) {
	env := newRuntimeEnv(t)

	if err := env.db.Create(&stats.Stat{GameID: 1, InternalName: "coins", Name: "Coins"}).Error; err != nil {
		t.Fatalf("failed to seed stat: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.container.Run(runCtx) }()

	// 변이는 성공하지만 사이드 이펙트 고루틴은 훅에 붙잡혀 아직 스냅샷을
	// enqueue하지 못한 상태다.
	if _, err := env.svc.ApplyChange(context.Background(), 1, "alice", "coins", 5, nil); err != nil {
		t.Fatalf("apply change failed: %v", err)
	}

	cancel()
	// 셧다운 시퀀스가 드레인 대기 지점에 도달할 시간을 준 뒤 훅을 풀어
	// 스냅샷이 셧다운 도중에 enqueue되도록 만든다.
	time.Sleep(50 * time.Millisecond)
	close(env.hook.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after shutdown")
	}

	var count int64
	if err := env.db.Model(&stats.StatSnapshot{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count snapshots: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 flushed snapshot after shutdown, got %d", count)
	}
}
