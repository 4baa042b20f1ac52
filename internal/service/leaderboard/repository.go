package leaderboard

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kapu/gamehub-backend-go/internal/constants"
	apperrors "github.com/kapu/gamehub-backend-go/pkg/errors"
)

// Repository: 리더보드 엔트리 저장소 접근 계층. 순위 정확성은 항상-신선한
// 정렬에 의존하므로 조회는 캐시를 거치지 않는다.
type Repository struct {
	db *gorm.DB
}

// NewRepository: 리더보드 저장소를 생성한다.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetLeaderboard: 게임 소속을 확인하며 리더보드 정의를 조회한다.
func (r *Repository) GetLeaderboard(ctx context.Context, gameID, leaderboardID uint) (*Leaderboard, error) {
	var lb Leaderboard
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		First(&lb, leaderboardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("leaderboard", "")
		}
		return nil, apperrors.NewDatabaseError("get leaderboard", err)
	}
	return &lb, nil
}

// Query: 엔트리 조회 필터. 목록과 순위 계산이 같은 필터·정렬을 공유해야
// 페이지 위치와 전역 순위가 서로 모순되지 않는다.
type Query struct {
	LeaderboardID   uint
	SortMode        string
	AliasID         string // 빈 문자열이면 전체
	PropKey         string
	PropValue       string
	WithDeleted     bool
	IncludeHidden   bool
	IncludeDevBuild bool
	Page            int
}

// scope: AliasID를 제외한 공통 필터를 적용한다.
func (r *Repository) scope(ctx context.Context, q Query) *gorm.DB {
	tx := r.db.WithContext(ctx).
		Model(&LeaderboardEntry{}).
		Where("leaderboard_id = ?", q.LeaderboardID)
	if q.WithDeleted {
		tx = tx.Unscoped()
	}
	if !q.IncludeHidden {
		tx = tx.Where("hidden = ?", false)
	}
	if !q.IncludeDevBuild {
		tx = tx.Where("dev_build = ?", false)
	}
	if q.PropKey != "" {
		tx = tx.Where(datatypes.JSONQuery("props").Equals(q.PropValue, q.PropKey))
	}
	return tx
}

func orderClause(sortMode string) string {
	if sortMode == SortAscending {
		return "score asc, created_at asc"
	}
	return "score desc, created_at asc"
}

// ListEntries: 필터된 엔트리 한 페이지를 반환한다. 별도 카운트 질의 없이
// 마지막 페이지를 감지하기 위해 itemsPerPage+1개를 조회한다.
func (r *Repository) ListEntries(ctx context.Context, q Query) ([]LeaderboardEntry, error) {
	perPage := constants.PaginationConfig.ItemsPerPage
	tx := r.scope(ctx, q)
	if q.AliasID != "" {
		tx = tx.Where("player_alias_id = ?", q.AliasID)
	}

	var rows []LeaderboardEntry
	err := tx.Order(orderClause(q.SortMode)).
		Offset(q.Page * perPage).
		Limit(perPage + 1).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list entries", err)
	}
	return rows, nil
}

// CountEntries: 목록과 동일한 필터로 전체 엔트리 수를 센다.
func (r *Repository) CountEntries(ctx context.Context, q Query) (int64, error) {
	tx := r.scope(ctx, q)
	if q.AliasID != "" {
		tx = tx.Where("player_alias_id = ?", q.AliasID)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("count entries", err)
	}
	return count, nil
}

// RankOf: 엔트리의 전역 0-기반 순위를 계산한다. 같은 필터·정렬 아래에서
// 이 엔트리보다 좋거나 같은 점수의 엔트리 ID 집합을 정렬된 순서로 뽑고,
// 그 안에서 이 엔트리 ID의 인덱스가 순위다. 동점은 createdAt 오름차순으로
// 갈린다. 페이지 윈도우와 무관하며, 매 요청마다 새로 평가된다.
func (r *Repository) RankOf(ctx context.Context, q Query, entry *LeaderboardEntry) (int, error) {
	tx := r.scope(ctx, q)
	if q.SortMode == SortAscending {
		tx = tx.Where("score <= ?", entry.Score)
	} else {
		tx = tx.Where("score >= ?", entry.Score)
	}

	var ids []uint
	err := tx.Order(orderClause(q.SortMode)).Pluck("id", &ids).Error
	if err != nil {
		return 0, apperrors.NewDatabaseError("rank entry", err)
	}
	for i, id := range ids {
		if id == entry.ID {
			return i, nil
		}
	}
	return 0, apperrors.NewNotFoundError("leaderboard entry", "")
}

// GetEntry: 리더보드 소속을 확인하며 엔트리를 조회한다. (소프트 삭제 포함)
func (r *Repository) GetEntry(ctx context.Context, leaderboardID, entryID uint) (*LeaderboardEntry, error) {
	var entry LeaderboardEntry
	err := r.db.WithContext(ctx).Unscoped().
		Where("leaderboard_id = ?", leaderboardID).
		First(&entry, entryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("leaderboard entry", "")
		}
		return nil, apperrors.NewDatabaseError("get entry", err)
	}
	return &entry, nil
}

// UpdateEntry: 엔트리 필드를 갱신한다. (관리자 전용 경로)
func (r *Repository) UpdateEntry(ctx context.Context, entryID uint, fields map[string]any) error {
	err := r.db.WithContext(ctx).
		Model(&LeaderboardEntry{}).
		Where("id = ?", entryID).
		Updates(fields).Error
	if err != nil {
		return apperrors.NewDatabaseError("update entry", err)
	}
	return nil
}

// ArchiveEntries: 리더보드의 현재 엔트리를 모두 소프트 삭제한다.
// 리프레시 간격이 "never"에서 바뀔 때의 보관 동작이다.
func (r *Repository) ArchiveEntries(ctx context.Context, leaderboardID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("leaderboard_id = ?", leaderboardID).
		Delete(&LeaderboardEntry{})
	if result.Error != nil {
		return 0, apperrors.NewDatabaseError("archive entries", result.Error)
	}
	return result.RowsAffected, nil
}

// UpdateRefreshInterval: 리더보드 리프레시 간격을 갱신한다.
func (r *Repository) UpdateRefreshInterval(ctx context.Context, leaderboardID uint, interval string) error {
	err := r.db.WithContext(ctx).
		Model(&Leaderboard{}).
		Where("id = ?", leaderboardID).
		Update("refresh_interval", interval).Error
	if err != nil {
		return apperrors.NewDatabaseError("update refresh interval", err)
	}
	return nil
}
