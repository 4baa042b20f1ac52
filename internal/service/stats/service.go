package stats

import (
	"context"
	"math"
	"time"

	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	"github.com/kapu/gamehub-backend-go/internal/service/cache"
	"github.com/kapu/gamehub-backend-go/internal/util"
	apperrors "github.com/kapu/gamehub-backend-go/pkg/errors"
)

// HookNotifier: 변이 성공 후 등록된 외부 연동 콜백을 호출하는 협력자.
// 실패는 로그로만 남고 호출자에게 전파되지 않는다.
type HookNotifier interface {
	Notify(ctx context.Context, playerStat *PlayerStat)
}

// ActivityRecorder: "누가 무엇을 바꿨는지" 감사 기록 협력자. 정확성에
// 필요하지 않으며 fire-and-forget으로만 호출된다.
type ActivityRecorder interface {
	RecordStatChange(playerID, internalName string, change, value float64)
}

// Service: 스탯 변이 파이프라인과 읽기 경로.
// 요청 경로의 유일한 하드 의존성은 관계형 원자 쓰기이며, 캐시 무효화·글로벌
// 카운터·연동 훅·스냅샷 기록은 모두 응답과 분리된 사이드 이펙트다.
type Service struct {
	repo        *Repository
	coordinator *cache.Coordinator
	cache       *cache.Service
	snapshots   *SnapshotQueue
	hooks       HookNotifier
	activity    ActivityRecorder
	logger      *slog.Logger

	effects conc.WaitGroup
}

// NewService: 스탯 서비스를 생성한다. hooks/activity는 nil일 수 있다.
func NewService(
	repo *Repository,
	coordinator *cache.Coordinator,
	cacheSvc *cache.Service,
	snapshots *SnapshotQueue,
	hooks HookNotifier,
	activity ActivityRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		coordinator: coordinator,
		cache:       cacheSvc,
		snapshots:   snapshots,
		hooks:       hooks,
		activity:    activity,
		logger:      logger,
	}
}

// ApplyChange: 제안된 변경을 게이트 검사 후 원자적으로 적용하고, 재조회한
// 확정 값을 반환한다. 게이트는 순서대로 스로틀 → 변경폭 → 범위이며, 실패 시
// 아무것도 쓰지 않는다. 게이트는 낡을 수 있는 읽기 기준의 권고적 검사로,
// 동시 요청이 같은 현재값을 보고 통과할 수 있다. 이는 의도된 완화다:
// 5단계의 원자 증분이 lost-update만은 확실히 막는다.
func (s *Service) ApplyChange(ctx context.Context, gameID uint, playerID, internalName string, change float64, continuityDate *time.Time) (*PlayerStat, error) {
	stat, err := s.repo.GetStatByInternalName(ctx, gameID, internalName)
	if err != nil {
		return nil, err
	}

	existing, found, err := s.repo.GetPlayerStat(ctx, playerID, stat.ID)
	if err != nil {
		return nil, err
	}

	// 스로틀: 경계 초에서는 허용한다. 연속성 날짜는 스냅샷 시각만 바꾸고,
	// 게이트는 항상 벽시계 now 기준으로 평가한다.
	now := time.Now()
	if found && stat.MinTimeBetweenUpdates > 0 {
		window := time.Duration(stat.MinTimeBetweenUpdates) * time.Second
		elapsed := now.Sub(existing.UpdatedAt)
		if elapsed < window {
			retryAfter := int(math.Ceil((window - elapsed).Seconds()))
			return nil, &ThrottledError{RetryAfterSeconds: retryAfter}
		}
	}

	if stat.MaxChange != nil && math.Abs(change) > *stat.MaxChange {
		return nil, &ChangeTooLargeError{Change: change, Max: *stat.MaxChange}
	}

	current := stat.DefaultValue
	if found {
		current = existing.Value
	}
	projected := current + change
	if stat.MinValue != nil && projected < *stat.MinValue {
		return nil, &OutOfRangeError{Result: projected, Bound: *stat.MinValue}
	}
	if stat.MaxValue != nil && projected > *stat.MaxValue {
		return nil, &OutOfRangeError{Result: projected, Bound: *stat.MaxValue}
	}

	if err := s.repo.UpsertAdd(ctx, playerID, stat.ID, stat.DefaultValue, change); err != nil {
		return nil, err
	}

	// 증분 이후 재조회한 값이 확정 값이다. 여기서부터 변이는 성공으로
	// 간주되며 이후 실패는 보상 롤백 없이 로그만 남긴다.
	row, _, err := s.repo.GetPlayerStat(ctx, playerID, stat.ID)
	if err != nil {
		return nil, err
	}

	s.afterApply(stat, row, change, continuityDate)
	return row, nil
}

// afterApply: 확정 값이 알려진 뒤의 사이드 이펙트. 응답을 가로막지 않는다.
func (s *Service) afterApply(stat *Stat, row *PlayerStat, change float64, continuityDate *time.Time) {
	// 무효화 enqueue 자체는 동기적이고 빠르다. 실제 삭제는 워커가 수행한다.
	s.coordinator.DeferInvalidate(
		cache.PlayerStatKey(row.PlayerID, stat.ID),
		cache.PlayerStatListKey(row.PlayerID),
	)

	createdAt := time.Now()
	if continuityDate != nil {
		createdAt = *continuityDate
	}

	statCopy := *stat
	rowCopy := *row
	s.effects.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout.SideEffect)
		defer cancel()

		var globalValue *float64
		if statCopy.Global {
			v, err := s.cache.IncrByFloat(ctx, cache.GlobalStatKey(statCopy.ID), change)
			if err != nil {
				s.logger.Warn("Global counter increment failed",
					slog.Uint64("stat_id", uint64(statCopy.ID)),
					slog.Any("error", err),
				)
			} else {
				globalValue = &v
			}
		}

		if s.hooks != nil {
			s.hooks.Notify(ctx, &rowCopy)
		}

		s.snapshots.Enqueue(StatSnapshot{
			PlayerAliasID: rowCopy.PlayerID,
			StatID:        statCopy.ID,
			Change:        change,
			Value:         rowCopy.Value,
			GlobalValue:   globalValue,
			CreatedAt:     createdAt,
		})

		if s.activity != nil {
			s.activity.RecordStatChange(rowCopy.PlayerID, statCopy.InternalName, change, rowCopy.Value)
		}
	})
}

// DrainSideEffects: 진행 중인 사이드 이펙트가 끝날 때까지 기다린다.
// 그레이스풀 셧다운에서만 호출한다.
func (s *Service) DrainSideEffects() {
	s.effects.Wait()
}

// GetValue: (player, stat)의 현재 값을 읽기-관통 캐시로 조회한다.
// 행이 없으면 기본값을 담은 합성 행을 반환한다. (저장하지 않음)
func (s *Service) GetValue(ctx context.Context, gameID uint, playerID, internalName string) (*PlayerStat, error) {
	stat, err := s.repo.GetStatByInternalName(ctx, gameID, internalName)
	if err != nil {
		return nil, err
	}

	var out PlayerStat
	err = s.coordinator.Get(ctx, cache.PlayerStatKey(playerID, stat.ID), &out,
		cache.Options{TTL: constants.CacheTTL.PlayerStat, Sliding: true},
		func(ctx context.Context) (any, error) {
			row, found, err := s.repo.GetPlayerStat(ctx, playerID, stat.ID)
			if err != nil {
				return nil, err
			}
			if !found {
				return &PlayerStat{PlayerID: playerID, StatID: stat.ID, Value: stat.DefaultValue}, nil
			}
			return row, nil
		})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPlayerStats: 플레이어의 전체 스탯 행을 플레이어 단위 목록 키로 캐시해
// 반환한다.
func (s *Service) ListPlayerStats(ctx context.Context, playerID string) ([]PlayerStat, error) {
	var out []PlayerStat
	err := s.coordinator.Get(ctx, cache.PlayerStatListKey(playerID), &out,
		cache.Options{TTL: constants.CacheTTL.PlayerStatList},
		func(ctx context.Context) (any, error) {
			return s.repo.ListPlayerStats(ctx, playerID)
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InvalidatePlayerCache: 플레이어의 캐시 항목 전체(개별 값 키 패턴 + 목록 키)
// 무효화를 큐에 넣는다. 캐시와 저장소가 어긋났을 때 쓰는 운영용 리셋이다.
func (s *Service) InvalidatePlayerCache(playerID string) {
	s.coordinator.DeferInvalidatePattern(cache.PlayerStatPattern(playerID))
	s.coordinator.DeferInvalidate(cache.PlayerStatListKey(playerID))
}

// HistoryQuery: 히스토리 조회 파라미터
type HistoryQuery struct {
	PlayerAliasID string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
}

// HistoryMetrics: 필터 윈도우 전체에 대한 집계 지표
type HistoryMetrics struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Average float64 `json:"average"`
}

// HistoryPage: 히스토리 한 페이지와 페이지네이션 메타데이터
type HistoryPage struct {
	Entries      []StatSnapshot  `json:"entries"`
	Count        int64           `json:"count"`
	ItemsPerPage int             `json:"itemsPerPage"`
	IsLastPage   bool            `json:"isLastPage"`
	Metrics      *HistoryMetrics `json:"metrics,omitempty"`
}

// History: 스탯의 플레이어별 스냅샷 히스토리를 조회한다.
// 지표는 요청 페이지가 아니라 필터된 윈도우 전체의 value에 대해 계산된다.
func (s *Service) History(ctx context.Context, gameID uint, internalName string, q HistoryQuery) (*HistoryPage, error) {
	stat, err := s.repo.GetStatByInternalName(ctx, gameID, internalName)
	if err != nil {
		return nil, err
	}
	return s.historyPage(ctx, SnapshotQuery{
		StatID:        stat.ID,
		PlayerAliasID: q.PlayerAliasID,
		StartDate:     q.StartDate,
		EndDate:       q.EndDate,
		Page:          q.Page,
	}, "value")
}

// GlobalHistory: 글로벌 스탯의 집계값 히스토리를 조회한다.
// 지표는 스냅샷의 global_value에 대해 계산되며, 플레이어 필터는 받지 않는다.
func (s *Service) GlobalHistory(ctx context.Context, gameID uint, internalName string, q HistoryQuery) (*HistoryPage, error) {
	stat, err := s.repo.GetStatByInternalName(ctx, gameID, internalName)
	if err != nil {
		return nil, err
	}
	return s.historyPage(ctx, SnapshotQuery{
		StatID:    stat.ID,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Page:      q.Page,
	}, "global_value")
}

func (s *Service) historyPage(ctx context.Context, q SnapshotQuery, metricsColumn string) (*HistoryPage, error) {
	perPage := constants.PaginationConfig.ItemsPerPage

	rows, err := s.repo.ListSnapshots(ctx, q)
	if err != nil {
		return nil, err
	}
	isLastPage := len(rows) <= perPage
	if !isLastPage {
		rows = rows[:perPage]
	}

	count, err := s.repo.CountSnapshots(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{
		Entries:      rows,
		Count:        count,
		ItemsPerPage: perPage,
		IsLastPage:   isLastPage,
	}

	values, err := s.repo.SnapshotValues(ctx, q, metricsColumn)
	if err != nil {
		return nil, err
	}
	if len(values) > 0 {
		page.Metrics = computeMetrics(values)
	}
	return page, nil
}

func computeMetrics(values []float64) *HistoryMetrics {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return &HistoryMetrics{
		Min:     min,
		Max:     max,
		Median:  util.Median(values),
		Average: util.Mean(values),
	}
}

// GetGlobalValue: 글로벌 카운터 값을 조회한다. 고속 캐시 카운터가 있으면
// 그 값을 쓰고, 없으면(만료·유실) 플레이어 행 합계로 재계산해 되돌린다.
func (s *Service) GetGlobalValue(ctx context.Context, gameID uint, internalName string) (float64, error) {
	stat, err := s.repo.GetStatByInternalName(ctx, gameID, internalName)
	if err != nil {
		return 0, err
	}
	if !stat.Global {
		return 0, apperrors.NewValidationError("stat is not globally aggregated", internalName)
	}

	v, found, err := s.cache.GetFloat(ctx, cache.GlobalStatKey(stat.ID))
	if err != nil {
		s.logger.Warn("Global counter read failed, recomputing",
			slog.Uint64("stat_id", uint64(stat.ID)),
			slog.Any("error", err),
		)
	}
	if err == nil && found {
		return v, nil
	}
	return s.RecalculateGlobalValue(ctx, stat.ID)
}

// RecalculateGlobalValue: 플레이어 행 합계로 글로벌 값을 재계산해 스탯 정의
// 행과 고속 캐시 카운터 양쪽에 기록한다. 두 카운터는 독립적으로 증가하므로
// 장애 시 어긋날 수 있고, 이 재계산이 유일한 복구 수단이다.
func (s *Service) RecalculateGlobalValue(ctx context.Context, statID uint) (float64, error) {
	sum, err := s.repo.SumPlayerValues(ctx, statID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpdateGlobalValue(ctx, statID, sum); err != nil {
		return 0, err
	}
	if err := s.cache.SetFloat(ctx, cache.GlobalStatKey(statID), sum, constants.CacheTTL.GlobalStatValue); err != nil {
		s.logger.Warn("Global counter cache reset failed",
			slog.Uint64("stat_id", uint64(statID)),
			slog.Any("error", err),
		)
	}
	return sum, nil
}

// ReconcileGlobals: 글로벌 집계가 켜진 모든 스탯의 글로벌 값을 재계산한다.
func (s *Service) ReconcileGlobals(ctx context.Context) error {
	list, err := s.repo.ListGlobalStats(ctx)
	if err != nil {
		return err
	}
	for _, stat := range list {
		if _, err := s.RecalculateGlobalValue(ctx, stat.ID); err != nil {
			s.logger.Error("Global value reconciliation failed",
				slog.Uint64("stat_id", uint64(stat.ID)),
				slog.String("internal_name", stat.InternalName),
				slog.Any("error", err),
			)
		}
	}
	return nil
}
