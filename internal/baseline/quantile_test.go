package baseline

import "testing"

func TestQuantile_SingleElement(t *testing.T) {
	for _, q := range []float64{0, 0.25, 0.5, 0.75, 1} {
		v := Quantile([]float64{5}, q)
		if !v.Valid || v.Float64 != 5 {
			t.Errorf("quantile([5], %g): expected 5, got %+v", q, v)
		}
	}
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		v := Quantile(vals, tt.q)
		if !v.Valid || v.Float64 != tt.want {
			t.Errorf("quantile(%v, %g): expected %g, got %+v", vals, tt.q, tt.want, v)
		}
	}
}

func TestQuantile_EmptyIsAbsent(t *testing.T) {
	if v := Quantile(nil, 0.5); v.Valid {
		t.Errorf("quantile of empty sample must be absent, got %g", v.Float64)
	}
}
