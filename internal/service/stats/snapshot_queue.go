package stats

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

type snapshotStore interface {
	InsertSnapshots(ctx context.Context, batch []StatSnapshot) error
}

// SnapshotQueue: 변이 이벤트를 모아 분석 저장소에 배치로 기록한다.
// Enqueue는 호출자를 절대 막지 않으며 실패를 드러내지 않는다. 플러시는
// 배치 크기 또는 주기 기준으로 일어나고, 실패 시 지수 백오프로 재시도한다.
// 재시도 예산이 소진된 배치는 운영 경보 로그만 남기고 버린다.
// (변이 자체는 이미 완료되었으므로 원 호출자에게 올라가지 않는다)
type SnapshotQueue struct {
	store  snapshotStore
	logger *slog.Logger
	jobs   chan StatSnapshot

	batchSize     int
	flushInterval time.Duration
	newBackoff    func() backoff.BackOff

	mu      sync.Mutex
	dropped int64
}

// NewSnapshotQueue: 스냅샷 플러시 큐를 생성한다.
// batchSize/flushInterval이 0 이하면 기본 튜닝값을 쓴다.
func NewSnapshotQueue(store snapshotStore, batchSize int, flushInterval time.Duration, logger *slog.Logger) *SnapshotQueue {
	if batchSize <= 0 {
		batchSize = constants.SnapshotQueueConfig.BatchSize
	}
	if flushInterval <= 0 {
		flushInterval = constants.SnapshotQueueConfig.FlushInterval
	}
	return &SnapshotQueue{
		store:         store,
		logger:        logger,
		jobs:          make(chan StatSnapshot, constants.SnapshotQueueConfig.BufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		newBackoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), constants.SnapshotQueueConfig.MaxRetries)
		},
	}
}

// Enqueue: 스냅샷을 버퍼에 넣는다. (논블로킹, 가득 차면 드롭 후 로그)
func (q *SnapshotQueue) Enqueue(snapshot StatSnapshot) {
	select {
	case q.jobs <- snapshot:
	default:
		q.mu.Lock()
		q.dropped++
		dropped := q.dropped
		q.mu.Unlock()
		q.logger.Warn("Snapshot buffer full, event dropped",
			slog.Int64("total_dropped", dropped),
			slog.Uint64("stat_id", uint64(snapshot.StatID)),
		)
	}
}

// Run: 버퍼를 소비하며 배치 크기 도달 또는 주기마다 플러시한다.
// 컨텍스트 취소 시 남은 버퍼를 드레인해 마지막으로 플러시하고 종료한다.
func (q *SnapshotQueue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	batch := make([]StatSnapshot, 0, q.batchSize)
	for {
		select {
		case <-ctx.Done():
			batch = q.drainInto(batch)
			q.flush(context.WithoutCancel(ctx), batch)
			return ctx.Err()
		case snapshot := <-q.jobs:
			batch = append(batch, snapshot)
			if len(batch) >= q.batchSize {
				q.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				q.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// DroppedCount: 지금까지 버려진 스냅샷 수를 반환한다. (운영 지표)
func (q *SnapshotQueue) DroppedCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *SnapshotQueue) drainInto(batch []StatSnapshot) []StatSnapshot {
	for {
		select {
		case snapshot := <-q.jobs:
			batch = append(batch, snapshot)
		default:
			return batch
		}
	}
}

func (q *SnapshotQueue) flush(ctx context.Context, batch []StatSnapshot) {
	if len(batch) == 0 {
		return
	}

	operation := func() error {
		return q.store.InsertSnapshots(ctx, batch)
	}
	if err := backoff.Retry(operation, q.newBackoff()); err != nil {
		q.logger.Error("Snapshot flush retries exhausted, batch dropped",
			slog.Int("count", len(batch)),
			slog.Any("error", err),
		)
		return
	}

	q.logger.Debug("Snapshot batch flushed", slog.Int("count", len(batch)))
}
