package app

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// Run: HTTP 서버와 백그라운드 워커(무효화, 스냅샷 플러시, 글로벌 재계산)를
// 띄우고 컨텍스트 취소 시 순서대로 내린다. 워커들은 각자 남은 큐를
// 드레인한 뒤 종료하므로, 셧다운 시점에 수락된 변이의 사이드 이펙트는
// 유실되지 않는다.
func (c *Container) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	// 워커는 외부 취소 신호가 아니라 셧다운 시퀀스가 내린다. 유예 시간 동안
	// 끝나는 요청이 아직 스냅샷·무효화를 enqueue하므로, 워커가 먼저 죽으면
	// 소비자 없는 채널에 작업이 남는다. 순서: 서버 Shutdown → 사이드 이펙트
	// 드레인 → 워커 취소(각자 최종 드레인).
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	group.Go(func() error {
		c.Logger.Info("HTTP server listening", slog.String("addr", c.Server.Addr))
		if err := c.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := c.Invalidator.Run(workerCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		err := c.Queue.Run(workerCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		err := c.Reconciler.Run(workerCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerTimeout.Shutdown)
		defer cancel()

		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
		}
		c.Stats.DrainSideEffects()
		stopWorkers()
		return nil
	})

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
