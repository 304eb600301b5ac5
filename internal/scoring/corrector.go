package scoring

import (
	"math"

	"videoscore-admin/internal/models"
)

// 維度修正的固定參數。
const (
	// 模型分數與清單命中率基準的容差：差距超過此值就以基準取代。
	baseTolerance = 15
	// 一致性護欄：命中率 ≥0.30 時採用分下限 20，防止清單有明確正向
	// 證據卻配上近零分；命中率 ≤0.20 時採用分上限 60，反向同理。
	guardrailFloorHitRate = 0.30
	guardrailFloor        = 20
	guardrailCapHitRate   = 0.20
	guardrailCap          = 60
)

// panelOrder/pillarOrder 固定各級維度的批次順序，讓換算制式與輸出確定。
var panelOrder = []string{models.DimensionHook, models.DimensionPitch, models.DimensionClose}

var pillarOrder = []string{models.PillarAuthenticity, models.PillarValue, models.PillarConversion}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// clampReported 把（可能已換算制式的）模型分數收斂成 [0,100] 整數。
// nil/NaN 一律視為「沒有回報分數」。
func clampReported(score *float64) *int {
	if score == nil || math.IsNaN(*score) || math.IsInf(*score, 0) {
		return nil
	}
	v := clampScore(int(math.Round(*score)))
	return &v
}

// correctOne 對單一維度做基準替換與一致性護欄。
// raw 必須已完成制式換算與夾限。
func correctOne(raw *int, hits, total int) models.DimensionScore {
	out := models.DimensionScore{Raw: raw, Hits: hits, Total: total}
	if total == 0 {
		// 清單無訊號：採用分維持原樣，不做基準替換也不套護欄
		out.Used = raw
		return out
	}

	hitRate := float64(hits) / float64(total)
	base := clampScore(int(math.Round(100 * hitRate)))

	used := base
	if raw != nil && absInt(*raw-base) <= baseTolerance {
		used = *raw
	}

	if hitRate >= guardrailFloorHitRate && used < guardrailFloor {
		used = guardrailFloor
	}
	if hitRate <= guardrailCapHitRate && used > guardrailCap {
		used = guardrailCap
	}
	out.Used = &used
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CorrectPanelScores 校正 hook/pitch/close 三軸的模型分數。
// 先對整批在場分數做制式換算（批次一致），再逐軸夾限、基準替換、套護欄。
func CorrectPanelScores(panel map[string]*models.PanelDimension) map[string]models.DimensionScore {
	out := make(map[string]models.DimensionScore, len(panelOrder))
	if len(panel) == 0 {
		return out
	}

	// 收集在場的原始分數，保持固定順序以便整批換算
	var present []float64
	var presentDims []string
	for _, name := range panelOrder {
		dim := panel[name]
		if dim != nil && dim.Score != nil && !math.IsNaN(*dim.Score) && !math.IsInf(*dim.Score, 0) {
			present = append(present, *dim.Score)
			presentDims = append(presentDims, name)
		}
	}
	rescaled := NormalizeScale(present)
	rescaledByDim := make(map[string]float64, len(presentDims))
	for i, name := range presentDims {
		rescaledByDim[name] = rescaled[i]
	}

	for _, name := range panelOrder {
		dim := panel[name]
		if dim == nil {
			continue
		}
		var raw *int
		if v, ok := rescaledByDim[name]; ok {
			raw = clampReported(&v)
		}
		hits, total := ChecklistStats(dim.Checklist)
		out[name] = correctOne(raw, hits, total)
	}
	return out
}

// CorrectPillarScores 校正消費者三支柱的模型分數。
// 與面板維度同一套基準替換與護欄，但支柱定義上已是百分制，不做批次換算。
func CorrectPillarScores(pillars map[string]*models.ConsumerPillar) map[string]models.DimensionScore {
	out := make(map[string]models.DimensionScore, len(pillarOrder))
	if len(pillars) == 0 {
		return out
	}
	for _, name := range pillarOrder {
		pillar := pillars[name]
		if pillar == nil {
			continue
		}
		raw := clampReported(pillar.Score)
		hits, total := ChecklistStats(pillar.Checklist)
		out[name] = correctOne(raw, hits, total)
	}
	return out
}
