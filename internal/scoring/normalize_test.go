package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScale(t *testing.T) {
	cases := []struct {
		name   string
		scores []float64
		want   []float64
	}{
		{"概率制", []float64{0.8, 0.6, 0.9}, []float64{80, 60, 90}},
		{"十分制", []float64{7, 5, 9}, []float64{70, 50, 90}},
		{"百分制原样", []float64{70, 50, 90}, []float64{70, 50, 90}},
		{"单一分数概率制", []float64{0.35}, []float64{35}},
		{"边界值1.0按概率制", []float64{1.0, 0.5}, []float64{100, 50}},
		{"边界值10按十分制", []float64{10, 3}, []float64{100, 30}},
		{"空批次", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeScale(tc.scores))
		})
	}
}

// 整批判定的已知限制：一批全是极低百分制分数时会被判成十分制。
// 这是规则本身的行为，不是 bug。
func TestNormalizeScaleAmbiguousLowBatch(t *testing.T) {
	assert.Equal(t, []float64{70, 90}, NormalizeScale([]float64{7, 9}))
}
