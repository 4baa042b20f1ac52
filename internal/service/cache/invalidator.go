package cache

import (
	"context"
	"sync"

	"log/slog"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// Job: 지연 무효화 작업 하나. Keys 또는 Pattern 중 하나가 채워진다.
type Job struct {
	Keys    []string
	Pattern string
}

// Invalidator: 캐시 무효화를 비동기로 수행하는 워커.
// Enqueue는 절대 블로킹하지 않으며, 큐가 가득 차면 작업을 버리고 로그만 남긴다.
// (버려진 무효화는 TTL 만료로 결국 수렴한다)
type Invalidator struct {
	cache   *Service
	jobs    chan Job
	logger  *slog.Logger
	dropped int64
	mu      sync.Mutex
}

// NewInvalidator: 새로운 무효화 워커를 생성한다.
func NewInvalidator(cacheSvc *Service, logger *slog.Logger) *Invalidator {
	return &Invalidator{
		cache:  cacheSvc,
		jobs:   make(chan Job, constants.InvalidationConfig.QueueSize),
		logger: logger,
	}
}

// Enqueue: 무효화 작업을 큐에 넣는다. (논블로킹)
func (inv *Invalidator) Enqueue(job Job) {
	select {
	case inv.jobs <- job:
	default:
		inv.mu.Lock()
		inv.dropped++
		dropped := inv.dropped
		inv.mu.Unlock()
		inv.logger.Warn("Invalidation queue full, job dropped",
			slog.Int64("total_dropped", dropped),
			slog.String("pattern", job.Pattern),
			slog.Int("keys", len(job.Keys)),
		)
	}
}

// Run: 컨텍스트가 취소될 때까지 무효화 작업을 소비한다.
// 취소 후에는 큐에 남은 작업을 모두 처리(드레인)하고 종료한다.
func (inv *Invalidator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			inv.drain()
			return ctx.Err()
		case job := <-inv.jobs:
			inv.process(context.WithoutCancel(ctx), job)
		}
	}
}

// DroppedCount: 지금까지 버려진 작업 수를 반환한다. (운영 지표)
func (inv *Invalidator) DroppedCount() int64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.dropped
}

func (inv *Invalidator) drain() {
	for {
		select {
		case job := <-inv.jobs:
			inv.process(context.Background(), job)
		default:
			return
		}
	}
}

func (inv *Invalidator) process(ctx context.Context, job Job) {
	if job.Pattern != "" {
		keys, err := inv.cache.Keys(ctx, job.Pattern)
		if err != nil {
			inv.logger.Error("Pattern invalidation lookup failed",
				slog.String("pattern", job.Pattern), slog.Any("error", err))
			return
		}
		if len(keys) == 0 {
			return
		}
		if _, err := inv.cache.DelMany(ctx, keys); err != nil {
			inv.logger.Error("Pattern invalidation delete failed",
				slog.String("pattern", job.Pattern), slog.Any("error", err))
		}
		return
	}

	if len(job.Keys) == 0 {
		return
	}
	if _, err := inv.cache.DelMany(ctx, job.Keys); err != nil {
		inv.logger.Error("Key invalidation failed",
			slog.Int("keys", len(job.Keys)), slog.Any("error", err))
	}
}
