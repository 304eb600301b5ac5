package scoring

import "videoscore-admin/internal/models"

// Result 打包一次完整評分的全部產物。
type Result struct {
	Corrected models.CorrectedScores
	Quality   models.QualityAssessment
	Trace     models.ScoringTrace
	Signals   Signals
}

// Score 對一份分析結果執行完整管線：
// 訊號提取 → 維度校正 → 加權聚合 → 紅旗罰分/封頂 → 質量指數。
// 純函式且冪等：同一份輸入重跑任意多次產出完全相同的結果，
// 可以安全地重試或重算而不會重複扣分。
func Score(p *models.AnalysisPayload) Result {
	sig := ExtractSignals(p)

	var dims map[string]models.DimensionScore
	var pillars map[string]models.DimensionScore
	if p != nil {
		dims = CorrectPanelScores(p.PanelEvaluation)
		pillars = CorrectPillarScores(p.ConsumerPillars)
	}

	functional, perception, fused := Aggregate(dims, pillars)

	var trace models.ScoringTrace
	if functional != nil {
		trace = trace.Add("aggregate", "功能分", *functional, "")
	}
	if perception != nil {
		trace = trace.Add("aggregate", "感知分", *perception, "")
	}
	if fused != nil {
		trace = trace.Add("aggregate", "融合前分", *fused, "")
	}

	penaltyTotal, capApplied, final, trace := ApplyPenalties(fused, sig.Flags, trace)
	if final != nil {
		trace = trace.Add("final", "最终得分", *final, "")
	}

	quality, trace := AssessQuality(sig, fused, dims, trace)

	return Result{
		Corrected: models.CorrectedScores{
			FunctionalScore: functional,
			PerceptionScore: perception,
			FusedPrePenalty: fused,
			PenaltyTotal:    penaltyTotal,
			CapApplied:      capApplied,
			FinalScore:      final,
			Dimensions:      dims,
			Pillars:         pillars,
		},
		Quality: quality,
		Trace:   trace,
		Signals: sig,
	}
}
