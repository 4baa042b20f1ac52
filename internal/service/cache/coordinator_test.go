package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *Invalidator, *Service, *miniredis.Miniredis) {
	t.Helper()

	svc, mini := newTestCacheService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := NewInvalidator(svc, logger)
	return NewCoordinator(svc, inv, logger), inv, svc, mini
}

func TestCoordinatorComputesOnMissAndCachesResult(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	computeCalls := 0
	compute := func(ctx context.Context) (any, error) {
		computeCalls++
		return testPayload{Name: "score", Value: 7}, nil
	}

	var got testPayload
	if err := co.Get(ctx, "k", &got, Options{TTL: time.Minute}, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("unexpected computed value: %+v", got)
	}
	if computeCalls != 1 {
		t.Fatalf("expected one compute call, got %d", computeCalls)
	}

	// 두 번째 조회는 캐시 히트여야 한다.
	got = testPayload{}
	if err := co.Get(ctx, "k", &got, Options{TTL: time.Minute}, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("unexpected cached value: %+v", got)
	}
	if computeCalls != 1 {
		t.Fatalf("hit must not recompute, calls=%d", computeCalls)
	}
}

func TestCoordinatorSlidingWindowRefreshesTTL(t *testing.T) {
	co, _, svc, mini := newTestCoordinator(t)
	ctx := context.Background()

	compute := func(ctx context.Context) (any, error) {
		return testPayload{Name: "hot"}, nil
	}
	opts := Options{TTL: 10 * time.Second, Sliding: true}

	var got testPayload
	if err := co.Get(ctx, "hot", &got, opts, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// TTL의 절반이 지난 뒤 읽으면 TTL이 재장전되어 원래 만료 시점을 넘겨도 살아있어야 한다.
	mini.FastForward(6 * time.Second)
	if err := co.Get(ctx, "hot", &got, opts, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	mini.FastForward(6 * time.Second)

	exists, err := svc.Exists(ctx, "hot")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("sliding key must survive steady reads")
	}

	// 읽기가 멈추면 만료된다.
	mini.FastForward(11 * time.Second)
	exists, err = svc.Exists(ctx, "hot")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("idle sliding key must expire")
	}
}

func TestCoordinatorStaleUntilDeferredInvalidationRuns(t *testing.T) {
	co, inv, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	stored := 1.0
	compute := func(ctx context.Context) (any, error) {
		return testPayload{Name: "v", Value: stored}, nil
	}
	opts := Options{TTL: time.Minute}

	var got testPayload
	if err := co.Get(ctx, "stat", &got, opts, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// 원본 값이 변해도 무효화 전에는 오래된 값이 보일 수 있다.
	stored = 2.0
	co.DeferInvalidate("stat")

	got = testPayload{}
	if err := co.Get(ctx, "stat", &got, opts, compute); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Value != 1.0 {
		t.Fatalf("expected stale read before worker runs, got %v", got.Value)
	}

	// 워커가 잡을 처리한 뒤에는 새 값이 보인다.
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = inv.Run(runCtx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		var probe testPayload
		if err := co.Get(ctx, "stat", &probe, opts, compute); err != nil {
			return false
		}
		return probe.Value == 2.0
	})

	cancel()
	<-done
}

func TestCoordinatorPatternInvalidation(t *testing.T) {
	co, inv, svc, _ := newTestCoordinator(t)
	ctx := context.Background()

	for _, key := range []string{PlayerStatKey("alice", 1), PlayerStatKey("alice", 2), PlayerStatListKey("alice"), PlayerStatKey("bob", 1)} {
		if err := svc.Set(ctx, key, testPayload{Name: key}, 0); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}

	co.DeferInvalidatePattern(PlayerStatPattern("alice"))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		_ = inv.Run(runCtx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool {
		exists, err := svc.Exists(ctx, PlayerStatKey("alice", 1))
		return err == nil && !exists
	})

	cancel()
	<-done

	exists, err := svc.Exists(ctx, PlayerStatKey("alice", 2))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("pattern invalidation must remove all of alice's value keys")
	}

	// 패턴은 개별 값 키 계열만 대상이다. 목록 키는 정확 키로 따로 지운다.
	for _, key := range []string{PlayerStatListKey("alice"), PlayerStatKey("bob", 1)} {
		exists, err := svc.Exists(ctx, key)
		if err != nil {
			t.Fatalf("exists failed: %v", err)
		}
		if !exists {
			t.Fatalf("key outside the pattern family must survive: %s", key)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
