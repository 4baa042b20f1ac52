package util

import "testing"

func TestMedian(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Median(tc.values); got != tc.want {
				t.Fatalf("median=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_ = Median(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Fatalf("input mutated: %v", values)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Fatalf("mean=%v want=2.5", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("mean of empty=%v want=0", got)
	}
}
