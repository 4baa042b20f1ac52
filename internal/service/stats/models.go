package stats

import "time"

// Stat: 게임별 카운터 정의. 관리자에 의해 생성되며, 변이 파이프라인은
// GlobalValue만 갱신한다. Min/Max/MaxChange가 nil이면 해당 제한이 없다.
type Stat struct {
	ID                    uint     `gorm:"primaryKey" json:"id"`
	GameID                uint     `gorm:"uniqueIndex:idx_stats_game_internal_name;not null" json:"gameId"`
	InternalName          string   `gorm:"uniqueIndex:idx_stats_game_internal_name;size:128;not null" json:"internalName"`
	Name                  string   `gorm:"size:255" json:"name"`
	DefaultValue          float64  `gorm:"not null;default:0" json:"defaultValue"`
	MinValue              *float64 `json:"minValue"`
	MaxValue              *float64 `json:"maxValue"`
	MaxChange             *float64 `json:"maxChange"`
	MinTimeBetweenUpdates int      `gorm:"not null;default:0" json:"minTimeBetweenUpdates"` // 초 단위
	Global                bool     `gorm:"not null;default:false" json:"global"`
	GlobalValue           float64  `gorm:"not null;default:0" json:"globalValue"` // 주기적 SUM 재계산으로 복구됨

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName: Stat의 테이블 이름을 반환한다.
func (Stat) TableName() string {
	return "stats"
}

// PlayerStat: (플레이어, 스탯) 쌍마다 하나의 행. 첫 변이 성공 시 upsert로
// 생성되고, 이후 변이마다 저장소가 직접 수행하는 원자적 증분으로 갱신된다.
type PlayerStat struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	PlayerID string  `gorm:"uniqueIndex:idx_player_stats_player_stat;size:64;not null" json:"playerId"`
	StatID   uint    `gorm:"uniqueIndex:idx_player_stats_player_stat;not null" json:"statId"`
	Value    float64 `gorm:"not null;default:0" json:"value"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // 스로틀 게이트의 기준 시각

	Stat *Stat `gorm:"foreignKey:StatID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName: PlayerStat의 테이블 이름을 반환한다.
func (PlayerStat) TableName() string {
	return "player_stats"
}

// StatSnapshot: 변이 한 건마다 남는 불변 분석 레코드. CreatedAt은 오프라인
// 이벤트 재생을 위해 continuity date로 과거 시각이 들어올 수 있다.
// 배치로만 쓰이며 갱신되지 않는다.
type StatSnapshot struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	PlayerAliasID string   `gorm:"index;size:64;not null" json:"playerAliasId"`
	StatID        uint     `gorm:"index;not null" json:"statId"`
	Change        float64  `gorm:"not null" json:"change"`
	Value         float64  `gorm:"not null" json:"value"`
	GlobalValue   *float64 `json:"globalValue"` // 글로벌 스탯일 때만 채워진다

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName: StatSnapshot의 테이블 이름을 반환한다.
func (StatSnapshot) TableName() string {
	return "stat_snapshots"
}
