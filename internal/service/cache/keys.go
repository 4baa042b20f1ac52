package cache

import "fmt"

// 캐시 키는 (플레이어, 스탯) 좌표에서 결정적으로 유도된다.
// 변이 파이프라인과 무효화 워커가 같은 빌더를 사용해야 키가 어긋나지 않는다.

// PlayerStatKey: 개별 (player, stat) 값 캐시 키
func PlayerStatKey(playerID string, statID uint) string {
	return fmt.Sprintf("player-stat:%s:%d", playerID, statID)
}

// PlayerStatListKey: 플레이어별 스탯 목록 캐시 키
func PlayerStatListKey(playerID string) string {
	return fmt.Sprintf("player-stats:%s", playerID)
}

// PlayerStatPattern: 플레이어의 개별 스탯 값 키 전체와 일치하는 패턴.
// 스탯 ID 구분자까지 고정해 다른 플레이어 ID가 접두사로 걸리지 않게 한다.
// 목록 키(player-stats:{id})는 정확 키로 따로 무효화한다.
func PlayerStatPattern(playerID string) string {
	return fmt.Sprintf("player-stat:%s:*", playerID)
}

// GlobalStatKey: 글로벌 스탯 카운터 키
func GlobalStatKey(statID uint) string {
	return fmt.Sprintf("stat-global:%d", statID)
}
