package scoring

import (
	"strings"

	"videoscore-admin/internal/models"
)

// 質量指數的加減分參數。
const (
	structuralRoleBonus = 2 // 痛点/展示/证明/CTA 各自在場
	hookHealthyBonus    = 2 // 开场分析文字不含致命缺陷关键词

	onCameraBonus   = 3
	syncAudioBonus  = 2
	liveSpeechBonus = 2 // 真人出镜 + 同期声且无配音的完整加成

	naturalEmotionBonus = 5 // 以真人开播为前提
	highEnergyBonus     = 3 // 同上

	imagePassBonus      = 5
	closeUpBonus        = 3
	highlightRatioBonus = 2
	highlightRatioMin   = 0.15

	tightPacingBonus  = 5
	goodDurationBonus = 3
	goodDurationMin   = 2.0
	goodDurationMax   = 6.0

	ctaAllHitBonus = 5

	missHookPenalty       = 25
	missCTAPenalty        = 25
	missPainScenePenalty  = 10
	missShowcasePenalty   = 10
	missProofPenalty      = 10
	lowSubScorePenalty    = 5 // hook/close 采用分 <40
	lowSubScoreThreshold  = 40
	voiceOverPenalty      = 5  // 真人出镜却检出配音
	noPresencePenalty     = 10 // 既无出镜也无同期声
	fakeLiveSpeechPenalty = 10 // 号称真人开播但情绪生硬
	imageFailPenalty      = 15
	weakHighlightPenalty  = 5 // 有亮点片段但占比 <0.05
	weakHighlightMin      = 0.05
	slowPacingPenalty     = 5
	slowPacingSecs        = 6.0
	verySlowPenalty       = 10
	verySlowSecs          = 10.0

	highlightBonusCap   = 10
	strongSegmentsBonus = 5
	strongSegmentsMin   = 3
	textureCompareBonus = 5
	ctaHighlightBonus   = 5

	excellentThreshold  = 80
	omissionRatingLimit = 10
)

// 广告感/无实拍两个反模式红旗按严重度的扣分（低/中/高）。
var antiPatternPenalties = map[string]penaltyTiers{
	models.FlagAdvertisingNoise: {-5, -10, -15},
	models.FlagNoLiveFootage:    {-10, -15, -20},
}

// hookFailureKeywords 是开场分析文字中的致命缺陷关键词。
var hookFailureKeywords = []string{"无钩子", "开场失败", "严重流失", "毫无吸引力"}

func hookAnalysisHealthy(analysis string) bool {
	for _, kw := range hookFailureKeywords {
		if strings.Contains(analysis, kw) {
			return false
		}
	}
	return true
}

// AssessQuality 是獨立的第二評分通道：從結構完整性、呈現真實性與
// 紅旗檢出推導 0–100 的質量指數與兩檔評級。
// 設計上刻意不受兩個最主觀的紅旗（不公平对比、医疗化承诺）影響——
// 它們只記錄供人工覆核，永不從指數中扣除。
// 融合前分缺席時基底取 0；這是全管線唯一允許缺席補零的地方。
func AssessQuality(sig Signals, fused *int, dims map[string]models.DimensionScore, trace models.ScoringTrace) (models.QualityAssessment, models.ScoringTrace) {
	var comp models.QualityComponents
	if fused != nil {
		comp.Base = *fused
	}
	trace = trace.Add("quality", "基底", comp.Base, "融合前分")

	addBonus := func(label string, delta int, note string) {
		comp.PositiveBonus += delta
		trace = trace.Add("quality_bonus", label, delta, note)
	}
	addOmission := func(label string, delta int, note string) {
		comp.CriticalOmissionPenalty += delta
		trace = trace.Add("quality_omission", label, -delta, note)
	}

	// 結構覆蓋
	if sig.Structure.HasPainScene {
		addBonus("痛点场景", structuralRoleBonus, "")
	} else {
		addOmission("缺少痛点场景", missPainScenePenalty, "")
	}
	if sig.Structure.HasShowcase {
		addBonus("产品展示", structuralRoleBonus, "")
	} else {
		addOmission("缺少产品展示", missShowcasePenalty, "")
	}
	if sig.Structure.HasProof {
		addBonus("效果证明", structuralRoleBonus, "")
	} else {
		addOmission("缺少效果证明", missProofPenalty, "")
	}
	if sig.Structure.HasCTA {
		addBonus("行动号召", structuralRoleBonus, "")
	} else {
		addOmission("缺少行动号召", missCTAPenalty, "")
	}
	if !sig.Structure.HasHook {
		addOmission("缺少开场钩子", missHookPenalty, "")
	}
	if hookAnalysisHealthy(sig.HookAnalysis) {
		addBonus("开场无致命缺陷", hookHealthyBonus, "")
	}

	// 真人出鏡與同期聲
	var evidence []string
	if sig.OnCamera {
		addBonus("真人出镜", onCameraBonus, "")
		evidence = append(evidence, "检出真人出镜标签")
	}
	if sig.SyncAudio {
		addBonus("同期声", syncAudioBonus, "")
		evidence = append(evidence, "检出同期声标签")
	}
	if sig.LiveSpeech {
		addBonus("真人开播", liveSpeechBonus, "出镜+同期声且无配音")
		evidence = append(evidence, "无配音标签，判定为真人开播")
	}
	if sig.OnCamera && sig.VoiceOver {
		addOmission("出镜但检出配音", voiceOverPenalty, "")
	}
	if !sig.OnCamera && !sig.SyncAudio {
		addOmission("无出镜且无同期声", noPresencePenalty, "")
	}

	// 情緒呈現（以真人開播為前提）
	if sig.LiveSpeech {
		if sig.EmotionNatural {
			addBonus("情绪自然", naturalEmotionBonus, "")
		}
		if sig.HighEnergy {
			addBonus("情绪高涨", highEnergyBonus, "")
		}
		if sig.EmotionUnnatural {
			addOmission("号称开播但情绪生硬", fakeLiveSpeechPenalty, "")
		}
	}

	// 畫面質量與亮點
	if sig.ImageQualityPass {
		addBonus("画质达标", imagePassBonus, "")
	}
	if sig.ImageQualityFail {
		addOmission("画质不达标", imageFailPenalty, "")
	}
	if sig.CloseUpTexture {
		addBonus("质感特写", closeUpBonus, "")
	}
	if sig.HighlightRatio >= highlightRatioMin {
		addBonus("亮点片段占比达标", highlightRatioBonus, "")
	}
	if sig.HighlightRatio > 0 && sig.HighlightRatio < weakHighlightMin {
		addOmission("亮点片段占比过低", weakHighlightPenalty, "")
	}

	// 節奏
	if sig.TightPacing {
		addBonus("节奏紧凑", tightPacingBonus, "")
	}
	if sig.AvgSegmentSecs >= goodDurationMin && sig.AvgSegmentSecs <= goodDurationMax {
		addBonus("片段时长适中", goodDurationBonus, "")
	}
	switch {
	case sig.AvgSegmentSecs > verySlowSecs:
		addOmission("节奏严重拖沓", verySlowPenalty, "")
	case sig.AvgSegmentSecs > slowPacingSecs:
		addOmission("节奏拖沓", slowPacingPenalty, "")
	}

	// 行動號召
	if sig.CTAHits >= len(ctaCheckNames) {
		addBonus("行动号召三项全中", ctaAllHitBonus, "")
	}

	// 面板子分過低
	if hook, ok := dims[models.DimensionHook]; ok && hook.Used != nil && *hook.Used < lowSubScoreThreshold {
		addOmission("开场子分过低", lowSubScorePenalty, "")
	}
	if closeDim, ok := dims[models.DimensionClose]; ok && closeDim.Used != nil && *closeDim.Used < lowSubScoreThreshold {
		addOmission("收尾子分过低", lowSubScorePenalty, "")
	}

	// 反模式紅旗（與主罰分引擎分開計，亦不封頂）；固定順序保證軌跡確定
	for _, name := range []string{models.FlagAdvertisingNoise, models.FlagNoLiveFootage} {
		tiers := antiPatternPenalties[name]
		flag, ok := sig.Flags[name]
		if !ok || !flag.Hit {
			continue
		}
		if p := tiers.forSeverity(flag.Severity); p != 0 {
			comp.AntiPatternPenalty += -p
			trace = trace.Add("quality_antipattern", name, p, "严重度 "+flag.Severity.String())
		}
	}

	// 兩個最主觀的紅旗：只記錄、不扣指數
	if flag, ok := sig.Flags[models.FlagUnfairComparison]; ok && flag.Hit {
		comp.UnfairPenalty = -redFlagPenalties[models.FlagUnfairComparison].forSeverity(flag.Severity)
		trace = trace.Add("quality_tracked", models.FlagUnfairComparison, 0, "仅记录，不计入指数")
	}
	if flag, ok := sig.Flags[models.FlagMedicalClaims]; ok && flag.Hit {
		comp.MedicalPenalty = -redFlagPenalties[models.FlagMedicalClaims].forSeverity(flag.Severity)
		trace = trace.Add("quality_tracked", models.FlagMedicalClaims, 0, "仅记录，不计入指数")
	}

	// 亮點加成，總額封頂
	highlight := 0
	if sig.HighlightCount >= strongSegmentsMin {
		highlight += strongSegmentsBonus
		trace = trace.Add("quality_highlight", "视觉强片段达标", strongSegmentsBonus, "")
	}
	if sig.CloseUpTexture && sig.Comparison {
		highlight += textureCompareBonus
		trace = trace.Add("quality_highlight", "质感特写+对比叙事", textureCompareBonus, "")
	}
	if sig.CTAHits >= len(ctaCheckNames) {
		highlight += ctaHighlightBonus
		trace = trace.Add("quality_highlight", "行动号召三项全中", ctaHighlightBonus, "")
	}
	if highlight > highlightBonusCap {
		highlight = highlightBonusCap
		trace = trace.Add("quality_highlight", "亮点加成封顶", 0, "总额上限 10")
	}
	comp.HighlightBonus = highlight

	index := clampScore(comp.Base + comp.PositiveBonus + comp.HighlightBonus -
		comp.CriticalOmissionPenalty - comp.AntiPatternPenalty)

	rating := models.RatingOrdinary
	if index >= excellentThreshold && sig.Structure.HasHook && sig.Structure.HasCTA &&
		comp.CriticalOmissionPenalty <= omissionRatingLimit {
		rating = models.RatingExcellent
	}

	return models.QualityAssessment{
		QualityIndex:       index,
		QualityRating:      rating,
		Components:         comp,
		LiveSpeech:         sig.LiveSpeech,
		LiveSpeechEvidence: evidence,
	}, trace
}
