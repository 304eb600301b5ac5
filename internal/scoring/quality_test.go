package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"videoscore-admin/internal/models"
)

func fullStructureSignals() Signals {
	return Signals{
		Structure: StructureSignals{
			HasHook: true, HasPainScene: true, HasShowcase: true, HasProof: true, HasCTA: true,
		},
		OnCamera:         true,
		SyncAudio:        true,
		LiveSpeech:       true,
		EmotionNatural:   true,
		ImageQualityPass: true,
		CloseUpTexture:   true,
		TightPacing:      true,
		HighlightCount:   3,
		HighlightRatio:   0.3,
		AvgSegmentSecs:   4.0,
		CTAHits:          3,
		Flags:            map[string]RedFlagSignal{},
	}
}

func TestAssessQualityIndexBounded(t *testing.T) {
	qa, _ := AssessQuality(fullStructureSignals(), intPtr(95), nil, models.ScoringTrace{})
	assert.GreaterOrEqual(t, qa.QualityIndex, 0)
	assert.LessOrEqual(t, qa.QualityIndex, 100)
	assert.Equal(t, models.RatingExcellent, qa.QualityRating)
}

func TestAssessQualityEmptySignals(t *testing.T) {
	// 空输入：缺失罚分堆满，指数夹限到 0，评级普通
	qa, _ := AssessQuality(Signals{Flags: map[string]RedFlagSignal{}}, nil, nil, models.ScoringTrace{})
	assert.Equal(t, 0, qa.Components.Base)
	assert.GreaterOrEqual(t, qa.Components.CriticalOmissionPenalty, 60)
	assert.Equal(t, 0, qa.QualityIndex)
	assert.Equal(t, models.RatingOrdinary, qa.QualityRating)
	assert.False(t, qa.LiveSpeech)
}

func TestAssessQualityRatingGateRequiresHookAndCTA(t *testing.T) {
	// 指数高但缺少开场钩子：评级仍为普通
	sig := fullStructureSignals()
	sig.Structure.HasHook = false
	qa, _ := AssessQuality(sig, intPtr(95), nil, models.ScoringTrace{})
	assert.Equal(t, models.RatingOrdinary, qa.QualityRating)

	sig = fullStructureSignals()
	sig.Structure.HasCTA = false
	qa, _ = AssessQuality(sig, intPtr(95), nil, models.ScoringTrace{})
	assert.Equal(t, models.RatingOrdinary, qa.QualityRating)
}

func TestAssessQualityRatingGateOmissionLimit(t *testing.T) {
	// 关键缺失罚分超过 10 时，即使指数达标也不给优秀
	sig := fullStructureSignals()
	sig.Structure.HasProof = false // -10
	sig.ImageQualityFail = true    // -15，合计 25
	qa, _ := AssessQuality(sig, intPtr(100), nil, models.ScoringTrace{})
	assert.Greater(t, qa.Components.CriticalOmissionPenalty, 10)
	assert.Equal(t, models.RatingOrdinary, qa.QualityRating)
}

func TestAssessQualityHighlightBonusCapped(t *testing.T) {
	// 三个亮点来源都命中（5+5+5），总额被封在 10
	sig := fullStructureSignals()
	sig.Comparison = true
	qa, _ := AssessQuality(sig, intPtr(50), nil, models.ScoringTrace{})
	assert.Equal(t, 10, qa.Components.HighlightBonus)
}

func TestAssessQualityAntiPatternSubtracts(t *testing.T) {
	sig := fullStructureSignals()
	sig.Flags = map[string]RedFlagSignal{
		models.FlagAdvertisingNoise: {Hit: true, Severity: models.SeverityHigh},
	}
	base := fullStructureSignals()
	qaClean, _ := AssessQuality(base, intPtr(20), nil, models.ScoringTrace{})
	qaNoisy, _ := AssessQuality(sig, intPtr(20), nil, models.ScoringTrace{})
	assert.Equal(t, 15, qaNoisy.Components.AntiPatternPenalty)
	assert.Equal(t, qaClean.QualityIndex-15, qaNoisy.QualityIndex)
}

func TestAssessQualityTrackedFlagsDoNotAffectIndex(t *testing.T) {
	// 不公平对比与医疗化承诺只记录、不扣指数
	sig := fullStructureSignals()
	sig.Flags = map[string]RedFlagSignal{
		models.FlagUnfairComparison: {Hit: true, Severity: models.SeverityHigh},
		models.FlagMedicalClaims:    {Hit: true, Severity: models.SeverityHigh},
	}
	qaClean, _ := AssessQuality(fullStructureSignals(), intPtr(20), nil, models.ScoringTrace{})
	qaFlagged, _ := AssessQuality(sig, intPtr(20), nil, models.ScoringTrace{})
	assert.Equal(t, qaClean.QualityIndex, qaFlagged.QualityIndex)
	assert.Equal(t, 20, qaFlagged.Components.UnfairPenalty)
	assert.Equal(t, 30, qaFlagged.Components.MedicalPenalty)
}

func TestAssessQualityLowSubScorePenalty(t *testing.T) {
	dims := map[string]models.DimensionScore{
		models.DimensionHook:  {Used: intPtr(35)},
		models.DimensionClose: {Used: intPtr(30)},
	}
	sig := fullStructureSignals()
	qa, _ := AssessQuality(sig, intPtr(80), dims, models.ScoringTrace{})
	qaBase, _ := AssessQuality(sig, intPtr(80), nil, models.ScoringTrace{})
	assert.Equal(t, qaBase.Components.CriticalOmissionPenalty+10, qa.Components.CriticalOmissionPenalty)
}

func TestAssessQualityEmotionRequiresLiveSpeech(t *testing.T) {
	// 情绪加成以真人开播为前提
	sig := fullStructureSignals()
	sig.LiveSpeech = false
	sig.VoiceOver = true
	qa, _ := AssessQuality(sig, intPtr(50), nil, models.ScoringTrace{})

	sigLive := fullStructureSignals()
	qaLive, _ := AssessQuality(sigLive, intPtr(50), nil, models.ScoringTrace{})
	// 真人开播路径多出开播与情绪两类加成
	assert.Greater(t, qaLive.Components.PositiveBonus, qa.Components.PositiveBonus)
}

func TestHookAnalysisHealthy(t *testing.T) {
	assert.True(t, hookAnalysisHealthy(""))
	assert.True(t, hookAnalysisHealthy("开场三秒给出价格冲击，悬念保持良好"))
	assert.False(t, hookAnalysisHealthy("前三秒无钩子，观众严重流失"))
	assert.False(t, hookAnalysisHealthy("开场失败"))
}
