package util

import "sort"

// Median: float64 슬라이스의 중앙값을 계산합니다. (입력은 복사 후 정렬되어 원본은 보존됨)
// 빈 슬라이스는 0을 반환한다.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Mean: float64 슬라이스의 산술 평균을 계산합니다. 빈 슬라이스는 0을 반환한다.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
