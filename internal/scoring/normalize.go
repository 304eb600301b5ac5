package scoring

// 制式判定的固定門檻。整批最大值 ≤1 視為機率制，≤10 視為十分制，
// 否則視為已是百分制。
const (
	probabilityScaleMax = 1.0
	tenPointScaleMax    = 10.0
)

// NormalizeScale 把一批同級維度的分數換算成百分制。
// 這是整批一次的決策而非逐一判斷，確保同級維度彼此一致。
//
// 已知啟發式限制：若模型在一批百分制分數中回報單一極低分
// （例如 7/100），整批可能被誤判為十分制。這個歧義在來源格式中
// 無從消解，此處按規則保留，不做靜默「修正」。
func NormalizeScale(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	factor := 1.0
	switch {
	case max <= probabilityScaleMax:
		factor = 100.0
	case max <= tenPointScaleMax:
		factor = 10.0
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s * factor
	}
	return out
}
