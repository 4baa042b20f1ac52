package stats

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	apperrors "github.com/kapu/gamehub-backend-go/pkg/errors"
)

// Repository: 카운터 저장소(PostgreSQL) 접근 계층.
// 원자적 증분 upsert가 유일하게 경쟁-안전해야 하는 연산이다.
type Repository struct {
	db *gorm.DB
}

// NewRepository: 스탯 저장소를 생성한다.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetStatByInternalName: 게임 내 고유한 내부 이름으로 스탯 정의를 조회한다.
func (r *Repository) GetStatByInternalName(ctx context.Context, gameID uint, internalName string) (*Stat, error) {
	var stat Stat
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND internal_name = ?", gameID, internalName).
		First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("stat", internalName)
		}
		return nil, apperrors.NewDatabaseError("get stat", err)
	}
	return &stat, nil
}

// GetStatByID: ID로 스탯 정의를 조회한다.
func (r *Repository) GetStatByID(ctx context.Context, statID uint) (*Stat, error) {
	var stat Stat
	err := r.db.WithContext(ctx).First(&stat, statID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("stat", "")
		}
		return nil, apperrors.NewDatabaseError("get stat by id", err)
	}
	return &stat, nil
}

// GetPlayerStat: (player, stat) 행을 조회한다. 행이 없는 것은 에러가 아니다.
func (r *Repository) GetPlayerStat(ctx context.Context, playerID string, statID uint) (*PlayerStat, bool, error) {
	var row PlayerStat
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND stat_id = ?", playerID, statID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.NewDatabaseError("get player stat", err)
	}
	return &row, true, nil
}

// UpsertAdd: (player, stat) 행을 원자적으로 증분한다. 행이 없으면
// defaultValue+change로 삽입하고, 있으면 저장소가 단일 문장으로 +change를
// 수행한다. 서비스 계층의 read-modify-write가 아니므로 동시 요청이 겹쳐도
// 최종 값은 적용된 델타의 합이 된다.
func (r *Repository) UpsertAdd(ctx context.Context, playerID string, statID uint, defaultValue, change float64) error {
	now := time.Now()
	row := PlayerStat{
		PlayerID:  playerID,
		StatID:    statID,
		Value:     defaultValue + change,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "stat_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      gorm.Expr("\"player_stats\".\"value\" + ?", change),
			"updated_at": now,
		}),
	}).Create(&row).Error; err != nil {
		return apperrors.NewDatabaseError("upsert player stat", err)
	}
	return nil
}

// ListPlayerStats: 플레이어의 모든 스탯 행을 반환한다.
func (r *Repository) ListPlayerStats(ctx context.Context, playerID string) ([]PlayerStat, error) {
	var rows []PlayerStat
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("stat_id asc").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list player stats", err)
	}
	return rows, nil
}

// SumPlayerValues: 스탯의 글로벌 값을 플레이어 행 합계로 재계산한다.
// 캐시 카운터와 관계형 증분이 어긋났을 때의 복구 경로다.
func (r *Repository) SumPlayerValues(ctx context.Context, statID uint) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).
		Model(&PlayerStat{}).
		Where("stat_id = ?", statID).
		Select("COALESCE(SUM(value), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.NewDatabaseError("sum player values", err)
	}
	return sum, nil
}

// UpdateGlobalValue: 스탯 정의 행의 글로벌 값을 갱신한다.
func (r *Repository) UpdateGlobalValue(ctx context.Context, statID uint, value float64) error {
	err := r.db.WithContext(ctx).
		Model(&Stat{}).
		Where("id = ?", statID).
		Update("global_value", value).Error
	if err != nil {
		return apperrors.NewDatabaseError("update global value", err)
	}
	return nil
}

// ListGlobalStats: 글로벌 집계가 켜진 스탯 정의를 모두 반환한다.
func (r *Repository) ListGlobalStats(ctx context.Context) ([]Stat, error) {
	var list []Stat
	err := r.db.WithContext(ctx).
		Where("global = ?", true).
		Find(&list).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list global stats", err)
	}
	return list, nil
}

// InsertSnapshots: 스냅샷 배치를 청크 단위로 일괄 삽입한다.
func (r *Repository) InsertSnapshots(ctx context.Context, batch []StatSnapshot) error {
	if len(batch) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		CreateInBatches(batch, constants.SnapshotQueueConfig.InsertChunk).Error
	if err != nil {
		return apperrors.NewDatabaseError("insert snapshots", err)
	}
	return nil
}

// SnapshotQuery: 히스토리 조회 필터.
// StartDate/EndDate는 스냅샷의 CreatedAt(연속성 날짜 포함) 기준이다.
type SnapshotQuery struct {
	StatID        uint
	PlayerAliasID string // 빈 문자열이면 전체 플레이어
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int // 0부터 시작
}

func (r *Repository) snapshotScope(ctx context.Context, q SnapshotQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&StatSnapshot{}).Where("stat_id = ?", q.StatID)
	if q.PlayerAliasID != "" {
		tx = tx.Where("player_alias_id = ?", q.PlayerAliasID)
	}
	if q.StartDate != nil {
		tx = tx.Where("created_at >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		tx = tx.Where("created_at <= ?", *q.EndDate)
	}
	return tx
}

// ListSnapshots: 필터된 스냅샷 한 페이지를 최신순으로 반환한다.
// 마지막 페이지 감지를 위해 itemsPerPage+1개를 조회한다.
func (r *Repository) ListSnapshots(ctx context.Context, q SnapshotQuery) ([]StatSnapshot, error) {
	perPage := constants.PaginationConfig.ItemsPerPage
	var rows []StatSnapshot
	err := r.snapshotScope(ctx, q).
		Order("created_at desc, id desc").
		Offset(q.Page * perPage).
		Limit(perPage + 1).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list snapshots", err)
	}
	return rows, nil
}

// CountSnapshots: 필터된 스냅샷 전체 개수를 반환한다.
func (r *Repository) CountSnapshots(ctx context.Context, q SnapshotQuery) (int64, error) {
	var count int64
	if err := r.snapshotScope(ctx, q).Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("count snapshots", err)
	}
	return count, nil
}

// SnapshotValues: 집계 지표 계산용으로 필터 윈도우 전체의 값 컬럼을 반환한다.
// column은 "value" 또는 "global_value"만 허용한다.
func (r *Repository) SnapshotValues(ctx context.Context, q SnapshotQuery, column string) ([]float64, error) {
	if column != "value" && column != "global_value" {
		return nil, apperrors.NewValidationError("unsupported metrics column", column)
	}
	var values []float64
	err := r.snapshotScope(ctx, q).
		Where(column + " IS NOT NULL").
		Order("created_at asc").
		Pluck(column, &values).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("pluck snapshot values", err)
	}
	return values, nil
}
