package scoring

import (
	"math"

	"videoscore-admin/internal/models"
)

// 功能分與感知分的固定線性權重。
var functionalWeights = map[string]float64{
	models.DimensionHook:  0.4,
	models.DimensionPitch: 0.4,
	models.DimensionClose: 0.2,
}

var perceptionWeights = map[string]float64{
	models.PillarAuthenticity: 0.5,
	models.PillarValue:        0.3,
	models.PillarConversion:   0.2,
}

// weightedScore 計算一組維度採用分的加權和。
// 全有全無：任何一軸缺席就回傳缺席，不補零。
func weightedScore(scores map[string]models.DimensionScore, weights map[string]float64) *int {
	sum := 0.0
	for name, weight := range weights {
		dim, ok := scores[name]
		if !ok || dim.Used == nil {
			return nil
		}
		sum += float64(*dim.Used) * weight
	}
	v := clampScore(int(math.Round(sum)))
	return &v
}

// Aggregate 把校正後的各維度分數聚合成功能分、感知分與融合前分。
// 融合規則：兩者皆在 → 各半混合；僅一者在 → 直接採用；皆缺 → 缺席。
// 缺席的融合分只有質量指數的基底會當成 0，其他任何下游都不得默默補零。
func Aggregate(dims, pillars map[string]models.DimensionScore) (functional, perception, fused *int) {
	functional = weightedScore(dims, functionalWeights)
	perception = weightedScore(pillars, perceptionWeights)

	switch {
	case functional != nil && perception != nil:
		v := clampScore(int(math.Round(float64(*functional)*0.5 + float64(*perception)*0.5)))
		fused = &v
	case functional != nil:
		v := *functional
		fused = &v
	case perception != nil:
		v := *perception
		fused = &v
	}
	return functional, perception, fused
}
