package stats

import "fmt"

// 변이 파이프라인의 거절 에러들. 모두 클라이언트 귀책이며 요청을 종료시키고
// 4xx로 매핑된다. 자동 재시도 대상이 아니다.

// ThrottledError: 마지막 갱신 이후 최소 간격이 지나지 않았을 때의 거절
type ThrottledError struct {
	RetryAfterSeconds int
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf("stat update throttled, retry after %d seconds", e.RetryAfterSeconds)
}

// ChangeTooLargeError: 단일 변경폭이 스탯의 maxChange를 초과했을 때의 거절
type ChangeTooLargeError struct {
	Change float64
	Max    float64
}

func (e ChangeTooLargeError) Error() string {
	return fmt.Sprintf("change %g exceeds max allowed change %g", e.Change, e.Max)
}

// OutOfRangeError: 적용 결과가 스탯의 min/max 범위를 벗어날 때의 거절.
// 경쟁 상황에서 이 검사는 낡은 값 기준의 권고적(advisory) 게이트다.
type OutOfRangeError struct {
	Result float64
	Bound  float64
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("resulting value %g violates bound %g", e.Result, e.Bound)
}
