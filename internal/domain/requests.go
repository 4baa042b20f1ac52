// Package domain: HTTP 표면에서 쓰이는 요청 DTO 모음
package domain

import "time"

// StatChangeRequest: 스탯 변이 요청 본문. ContinuityDate는 오프라인에서
// 버퍼된 이벤트를 원래 순서로 재생할 때 스냅샷 시각을 백데이트하는 용도다.
type StatChangeRequest struct {
	Change         *float64   `json:"change" binding:"required"`
	ContinuityDate *time.Time `json:"continuityDate"`
}

// EntryUpdateRequest: 리더보드 엔트리 관리자 수정 본문. nil 필드는 유지된다.
type EntryUpdateRequest struct {
	Score  *float64 `json:"score"`
	Hidden *bool    `json:"hidden"`
}

// RefreshIntervalRequest: 리더보드 리프레시 간격 변경 본문
type RefreshIntervalRequest struct {
	RefreshInterval string `json:"refreshInterval" binding:"required"`
}
