package leaderboard

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 정렬 방향. 엔트리 순서는 (score per sortMode, createdAt asc)로 정의되며,
// createdAt 타이브레이크가 페이지네이션과 순위 계산의 결정성을 보장한다.
const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// Leaderboard: 리더보드 정의
type Leaderboard struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	GameID          uint   `gorm:"uniqueIndex:idx_leaderboards_game_internal_name;not null" json:"gameId"`
	InternalName    string `gorm:"uniqueIndex:idx_leaderboards_game_internal_name;size:128;not null" json:"internalName"`
	Name            string `gorm:"size:255" json:"name"`
	SortMode        string `gorm:"size:8;not null;default:desc" json:"sortMode"`
	Unique          bool   `gorm:"not null;default:false" json:"unique"` // alias당 엔트리 1개 제한
	RefreshInterval string `gorm:"size:16;not null;default:never" json:"refreshInterval"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName: Leaderboard의 테이블 이름을 반환한다.
func (Leaderboard) TableName() string {
	return "leaderboards"
}

// LeaderboardEntry: (리더보드, 별칭)별 점수 행. 리프레시 간격 변경 시
// 삭제가 아니라 소프트 삭제로 보관(archive)된다.
type LeaderboardEntry struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	LeaderboardID uint           `gorm:"index;not null" json:"leaderboardId"`
	PlayerAliasID string         `gorm:"index;size:64;not null" json:"playerAliasId"`
	Score         float64        `gorm:"not null;default:0" json:"score"`
	Hidden        bool           `gorm:"not null;default:false" json:"hidden"`
	DevBuild      bool           `gorm:"not null;default:false" json:"devBuild"` // dev 빌드 별칭의 제출
	Props         datatypes.JSON `json:"props"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Leaderboard *Leaderboard `gorm:"foreignKey:LeaderboardID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName: LeaderboardEntry의 테이블 이름을 반환한다.
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
