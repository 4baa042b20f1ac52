package stats

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/cenkalti/backoff/v4"
	apperrors "github.com/kapu/gamehub-backend-go/pkg/errors"
)

// flakyStore: 지정한 횟수만큼 삽입을 실패시키는 분석 저장소 스텁
type flakyStore struct {
	mu       sync.Mutex
	failures int
	attempts int
	batches  [][]StatSnapshot
	notify   chan []StatSnapshot
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, notify: make(chan []StatSnapshot, 16)}
}

func (s *flakyStore) InsertSnapshots(_ context.Context, batch []StatSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failures {
		return apperrors.NewDatabaseError("insert snapshots", context.DeadlineExceeded)
	}
	stored := append([]StatSnapshot(nil), batch...)
	s.batches = append(s.batches, stored)
	s.notify <- stored
	return nil
}

func (s *flakyStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func newTestQueue(store snapshotStore, batchSize int, flushInterval time.Duration) *SnapshotQueue {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := NewSnapshotQueue(store, batchSize, flushInterval, logger)
	q.newBackoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
	return q
}

func TestSnapshotQueueFlushesOnBatchSize(t *testing.T) {
	store := newFlakyStore(0)
	q := newTestQueue(store, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	for i := 0; i < 3; i++ {
		q.Enqueue(StatSnapshot{StatID: 1, Value: float64(i)})
	}

	select {
	case batch := <-store.notify:
		if len(batch) != 3 {
			t.Fatalf("expected batch of 3, got %d", len(batch))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("size-triggered flush did not happen")
	}
}

func TestSnapshotQueueFlushesOnTicker(t *testing.T) {
	store := newFlakyStore(0)
	q := newTestQueue(store, 100, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	q.Enqueue(StatSnapshot{StatID: 1, Value: 1})
	q.Enqueue(StatSnapshot{StatID: 1, Value: 2})

	select {
	case batch := <-store.notify:
		if len(batch) != 2 {
			t.Fatalf("expected batch of 2, got %d", len(batch))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("time-triggered flush did not happen")
	}
}

func TestSnapshotQueueRetriesThenRecovers(t *testing.T) {
	// 첫 배치는 재시도 예산(1+2회)을 전부 소진하고 버려진다.
	store := newFlakyStore(3)
	q := newTestQueue(store, 1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	q.Enqueue(StatSnapshot{StatID: 1, Value: 1})

	deadline := time.Now().Add(2 * time.Second)
	for store.attemptCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 attempts, got %d", store.attemptCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// 포기한 배치가 큐를 막지 않는다. 다음 배치는 정상 플러시된다.
	q.Enqueue(StatSnapshot{StatID: 1, Value: 2})
	select {
	case batch := <-store.notify:
		if len(batch) != 1 || batch[0].Value != 2 {
			t.Fatalf("unexpected recovered batch %+v", batch)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("queue did not recover after exhausted batch")
	}
}

func TestSnapshotQueueDrainsOnShutdown(t *testing.T) {
	store := newFlakyStore(0)
	q := newTestQueue(store, 100, time.Hour)

	q.Enqueue(StatSnapshot{StatID: 1, Value: 1})
	q.Enqueue(StatSnapshot{StatID: 1, Value: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	select {
	case batch := <-store.notify:
		if len(batch) != 2 {
			t.Fatalf("expected drained batch of 2, got %d", len(batch))
		}
	default:
		t.Fatalf("expected final flush on shutdown")
	}
}
