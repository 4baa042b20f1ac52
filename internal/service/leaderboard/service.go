package leaderboard

import (
	"context"

	"log/slog"

	"github.com/kapu/gamehub-backend-go/internal/constants"
)

// ActivityRecorder: 관리자 엔트리 수정에 대한 감사 기록 협력자
type ActivityRecorder interface {
	RecordEntryEdit(leaderboardID, entryID uint, fields map[string]any)
}

// Caller: 상위 정책 계층이 검증을 마친 호출자 정보. 여기서는
// withDeleted/hidden 가시성만 결정하며, 스코프 검사 자체는 신뢰한다.
type Caller struct {
	Admin           bool
	IncludeDevBuild bool
}

// Service: 리더보드 순위 엔진
type Service struct {
	repo     *Repository
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewService: 리더보드 서비스를 생성한다. activity는 nil일 수 있다.
func NewService(repo *Repository, activity ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, activity: activity, logger: logger}
}

// ListQuery: 엔트리 목록 요청 파라미터
type ListQuery struct {
	Page        int
	AliasID     string
	PropKey     string
	PropValue   string
	WithDeleted bool
}

// EntryView: 전역 위치가 덧붙은 엔트리
type EntryView struct {
	LeaderboardEntry
	Position int `json:"position"`
}

// Page: 엔트리 목록 한 페이지
type Page struct {
	Entries      []EntryView `json:"entries"`
	Count        int64       `json:"count"`
	ItemsPerPage int         `json:"itemsPerPage"`
	IsLastPage   bool        `json:"isLastPage"`
}

// ListEntries: 필터·정렬된 엔트리 한 페이지를 반환한다. 별칭 필터가 없으면
// 위치는 페이지 오프셋 + 페이지 내 인덱스로 계산된다. (카운트와 목록 질의
// 사이에 삽입/삭제가 없다는 근사를 받아들인다) 별칭이 지정되면 각 엔트리의
// 위치를 전체 필터된 순서에 대한 RankOf로 새로 계산한다.
func (s *Service) ListEntries(ctx context.Context, gameID, leaderboardID uint, q ListQuery, caller Caller) (*Page, error) {
	lb, err := s.repo.GetLeaderboard(ctx, gameID, leaderboardID)
	if err != nil {
		return nil, err
	}

	// 제한된 호출자에게는 소프트 삭제 포함을 거부하고 hidden을 강제 제외한다.
	rq := Query{
		LeaderboardID:   lb.ID,
		SortMode:        lb.SortMode,
		AliasID:         q.AliasID,
		PropKey:         q.PropKey,
		PropValue:       q.PropValue,
		WithDeleted:     q.WithDeleted && caller.Admin,
		IncludeHidden:   caller.Admin,
		IncludeDevBuild: caller.IncludeDevBuild,
		Page:            q.Page,
	}

	perPage := constants.PaginationConfig.ItemsPerPage
	rows, err := s.repo.ListEntries(ctx, rq)
	if err != nil {
		return nil, err
	}
	isLastPage := len(rows) <= perPage
	if !isLastPage {
		rows = rows[:perPage]
	}

	count, err := s.repo.CountEntries(ctx, rq)
	if err != nil {
		return nil, err
	}

	rankQuery := rq
	rankQuery.AliasID = ""

	entries := make([]EntryView, 0, len(rows))
	for i, row := range rows {
		position := q.Page*perPage + i
		if q.AliasID != "" {
			row := row
			position, err = s.repo.RankOf(ctx, rankQuery, &row)
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, EntryView{LeaderboardEntry: row, Position: position})
	}

	return &Page{
		Entries:      entries,
		Count:        count,
		ItemsPerPage: perPage,
		IsLastPage:   isLastPage,
	}, nil
}

// EntryUpdate: 관리자 엔트리 수정 내용. nil 필드는 건드리지 않는다.
type EntryUpdate struct {
	Score  *float64
	Hidden *bool
}

// UpdateEntry: 엔트리의 점수/숨김 상태를 수정한다. (관리자 전용)
func (s *Service) UpdateEntry(ctx context.Context, gameID, leaderboardID, entryID uint, update EntryUpdate) (*LeaderboardEntry, error) {
	if _, err := s.repo.GetLeaderboard(ctx, gameID, leaderboardID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEntry(ctx, leaderboardID, entryID); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if update.Score != nil {
		fields["score"] = *update.Score
	}
	if update.Hidden != nil {
		fields["hidden"] = *update.Hidden
	}
	if len(fields) > 0 {
		if err := s.repo.UpdateEntry(ctx, entryID, fields); err != nil {
			return nil, err
		}
		if s.activity != nil {
			s.activity.RecordEntryEdit(leaderboardID, entryID, fields)
		}
	}

	return s.repo.GetEntry(ctx, leaderboardID, entryID)
}

// ChangeRefreshInterval: 리프레시 간격을 바꾼다. "never"에서 벗어나는 변경은
// 현재 엔트리를 전부 보관(소프트 삭제)한다. 삭제가 아니므로 과거 시즌
// 엔트리는 withDeleted 조회로 계속 볼 수 있다.
func (s *Service) ChangeRefreshInterval(ctx context.Context, gameID, leaderboardID uint, interval string) (int64, error) {
	lb, err := s.repo.GetLeaderboard(ctx, gameID, leaderboardID)
	if err != nil {
		return 0, err
	}

	var archived int64
	if lb.RefreshInterval == "never" && interval != "never" {
		archived, err = s.repo.ArchiveEntries(ctx, lb.ID)
		if err != nil {
			return 0, err
		}
		s.logger.Info("Leaderboard entries archived",
			slog.Uint64("leaderboard_id", uint64(lb.ID)),
			slog.Int64("archived", archived),
		)
	}

	if err := s.repo.UpdateRefreshInterval(ctx, lb.ID, interval); err != nil {
		return 0, err
	}
	return archived, nil
}
