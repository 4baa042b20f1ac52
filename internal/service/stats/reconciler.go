package stats

import (
	"context"
	"time"

	"log/slog"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// Reconciler: 글로벌 카운터를 주기적으로 플레이어 행 합계로 되돌리는 워커.
// 관계형 증분과 캐시 INCRBY는 분산 트랜잭션 없이 각자 수행되므로, 크래시
// 시점에 따라 잠시 어긋날 수 있다. 복구는 재계산이지 롤백이 아니다.
type Reconciler struct {
	stats    *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewReconciler: 글로벌 값 재계산 워커를 생성한다. interval이 0 이하면
// 기본 주기를 쓴다.
func NewReconciler(stats *Service, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = constants.ReconcileConfig.Interval
	}
	return &Reconciler{
		stats:    stats,
		interval: interval,
		logger:   logger,
	}
}

// Run: 주기마다 재계산을 수행하며 컨텍스트 취소 시 종료한다.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, constants.ReconcileConfig.Timeout)
			if err := r.stats.ReconcileGlobals(runCtx); err != nil {
				r.logger.Error("Reconciliation pass failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}
