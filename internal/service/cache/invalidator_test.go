package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestInvalidatorEnqueueNeverBlocks(t *testing.T) {
	svc, _ := newTestCacheService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := NewInvalidator(svc, logger)

	// 워커 없이 큐 용량을 훨씬 넘게 넣어도 Enqueue는 즉시 반환해야 한다.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(inv.jobs)+100; i++ {
			inv.Enqueue(Job{Keys: []string{"k"}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked")
	}

	if inv.DroppedCount() == 0 {
		t.Fatalf("expected overflow jobs to be dropped")
	}
}

func TestInvalidatorDrainsQueueOnShutdown(t *testing.T) {
	svc, _ := newTestCacheService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := NewInvalidator(svc, logger)
	ctx := context.Background()

	if err := svc.Set(ctx, "pending", testPayload{Name: "x"}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	inv.Enqueue(Job{Keys: []string{"pending"}})

	runCtx, cancel := context.WithCancel(ctx)
	cancel() // 즉시 취소: Run은 드레인 후 종료해야 한다.

	if err := inv.Run(runCtx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	exists, err := svc.Exists(ctx, "pending")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("queued job must be drained on shutdown")
	}
}

// 패턴은 스탯 ID 구분자까지 고정되어야 한다. "alice" 무효화가 접두사가 겹치는
// "alice2"의 키를 지우면 안 된다.
func TestInvalidatorPatternAnchoredToPlayer(t *testing.T) {
	svc, _ := newTestCacheService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := NewInvalidator(svc, logger)
	ctx := context.Background()

	for _, key := range []string{PlayerStatKey("alice", 1), PlayerStatKey("alice", 2), PlayerStatKey("alice2", 1)} {
		if err := svc.Set(ctx, key, testPayload{Name: key}, 0); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}

	inv.Enqueue(Job{Pattern: PlayerStatPattern("alice")})

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := inv.Run(runCtx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	for _, key := range []string{PlayerStatKey("alice", 1), PlayerStatKey("alice", 2)} {
		exists, err := svc.Exists(ctx, key)
		if err != nil {
			t.Fatalf("exists failed: %v", err)
		}
		if exists {
			t.Fatalf("expected %s to be deleted", key)
		}
	}

	exists, err := svc.Exists(ctx, PlayerStatKey("alice2", 1))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("prefix-overlapping player key must survive")
	}
}
