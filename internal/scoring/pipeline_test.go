package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/models"
)

func fullPayload() *models.AnalysisPayload {
	return &models.AnalysisPayload{
		PanelEvaluation: map[string]*models.PanelDimension{
			models.DimensionHook: {
				Score:    floatPtr(85),
				Analysis: "开场三秒给出价格冲击",
				Checklist: models.NewArrayChecklist(
					models.ChecklistItem{Name: "开场三秒有钩子", Hit: true},
					models.ChecklistItem{Name: "悬念保持", Hit: true},
				),
			},
			models.DimensionPitch: {
				Score: floatPtr(75),
				Checklist: models.NewArrayChecklist(
					models.ChecklistItem{Name: "卖点展示清晰", Hit: true},
					models.ChecklistItem{Name: "效果证明充分", Hit: true},
					models.ChecklistItem{Name: "价格锚点明确", Hit: false},
				),
			},
			models.DimensionClose: {
				Score: floatPtr(70),
				Checklist: models.NewArrayChecklist(
					models.ChecklistItem{Name: "明确行动号召", Hit: true},
					models.ChecklistItem{Name: "紧迫感营造", Hit: true},
					models.ChecklistItem{Name: "转化路径清晰", Hit: false},
				),
			},
		},
		ConsumerPillars: map[string]*models.ConsumerPillar{
			models.PillarAuthenticity: {Score: floatPtr(80)},
			models.PillarValue:        {Score: floatPtr(75)},
			models.PillarConversion:   {Score: floatPtr(85)},
		},
		VideoStructure: &models.VideoStructure{
			Segments: []models.StructureSegment{
				{Part: "hook"},
				{Part: "痛点场景"},
				{Part: "卖点展示"},
				{Part: "效果证明"},
				{Part: "行动引导"},
			},
		},
		SubtitleGroups: []models.SubtitleGroup{
			{StartTime: "00:00", EndTime: "00:03", VisuallyStrong: true},
			{StartTime: "00:03", EndTime: "00:07"},
			{StartTime: "00:07", EndTime: "00:12", VisuallyStrong: true},
		},
		V3Labeling: map[string]map[string]models.LabelGroup{
			"呈现形式": {
				"出镜": {Labels: []string{LabelOnCamera, LabelSyncAudio}},
				"画面": {Labels: []string{LabelImageClear, LabelCloseUpTexture}},
				"节奏": {Labels: []string{LabelTightPacing}},
				"情绪": {Labels: []string{LabelEmotionNatural}},
			},
		},
		Tags: []string{"羽绒服", "冬季清仓"},
	}
}

func TestScoreHappyPath(t *testing.T) {
	result := Score(fullPayload())

	// 功能分：0.4*85 + 0.4*75 + 0.2*70 = 78
	require.NotNil(t, result.Corrected.FunctionalScore)
	assert.Equal(t, 78, *result.Corrected.FunctionalScore)
	// 感知分：0.5*80 + 0.3*75 + 0.2*85 = 79.5 → 80
	require.NotNil(t, result.Corrected.PerceptionScore)
	assert.Equal(t, 80, *result.Corrected.PerceptionScore)
	// 融合：round((78+80)/2) = 79，无红旗时最终得分等于融合分
	require.NotNil(t, result.Corrected.FinalScore)
	assert.Equal(t, 79, *result.Corrected.FinalScore)
	assert.Zero(t, result.Corrected.PenaltyTotal)
	assert.Equal(t, 100, result.Corrected.CapApplied)

	assert.True(t, result.Signals.LiveSpeech)
	assert.GreaterOrEqual(t, result.Quality.QualityIndex, 80)
	assert.Equal(t, models.RatingExcellent, result.Quality.QualityRating)
	assert.NotEmpty(t, result.Trace.Entries)
}

func TestScoreMedicalClaimCapsFinal(t *testing.T) {
	p := fullPayload()
	fullHit := models.NewArrayChecklist(
		models.ChecklistItem{Name: "明确行动号召", Hit: true},
		models.ChecklistItem{Name: "紧迫感营造", Hit: true},
	)
	p.PanelEvaluation[models.DimensionHook] = &models.PanelDimension{Score: floatPtr(100), Checklist: fullHit}
	p.PanelEvaluation[models.DimensionPitch] = &models.PanelDimension{Score: floatPtr(100), Checklist: fullHit}
	p.PanelEvaluation[models.DimensionClose] = &models.PanelDimension{Score: floatPtr(100), Checklist: fullHit}
	p.ConsumerPillars[models.PillarAuthenticity].Score = floatPtr(100)
	p.ConsumerPillars[models.PillarValue].Score = floatPtr(100)
	p.ConsumerPillars[models.PillarConversion].Score = floatPtr(100)
	p.RedFlags = []models.RedFlag{
		{Name: models.FlagMedicalClaims, Hit: true, Severity: "high", Notes: "宣称根治"},
	}

	result := Score(p)
	require.NotNil(t, result.Corrected.FusedPrePenalty)
	assert.Equal(t, 100, *result.Corrected.FusedPrePenalty)
	assert.Equal(t, -30, result.Corrected.PenaltyTotal)
	assert.Equal(t, 50, result.Corrected.CapApplied)
	require.NotNil(t, result.Corrected.FinalScore)
	assert.Equal(t, 50, *result.Corrected.FinalScore)

	// 医疗化承诺只记录在质量通道，不扣指数
	assert.Equal(t, 30, result.Quality.Components.MedicalPenalty)
}

func TestScoreEmptyPayload(t *testing.T) {
	result := Score(&models.AnalysisPayload{})
	assert.Nil(t, result.Corrected.FunctionalScore)
	assert.Nil(t, result.Corrected.PerceptionScore)
	assert.Nil(t, result.Corrected.FusedPrePenalty)
	assert.Nil(t, result.Corrected.FinalScore)
	assert.Zero(t, result.Corrected.PenaltyTotal)
	// 质量指数基底补零后被缺失罚分压到 0
	assert.Equal(t, 0, result.Quality.QualityIndex)
	assert.Equal(t, models.RatingOrdinary, result.Quality.QualityRating)
}

func TestScoreNilPayload(t *testing.T) {
	result := Score(nil)
	assert.Nil(t, result.Corrected.FinalScore)
	assert.Equal(t, 0, result.Quality.QualityIndex)
}

func TestScoreIdempotent(t *testing.T) {
	p := fullPayload()
	p.RedFlags = []models.RedFlag{
		{Name: models.FlagAdvertisingNoise, Hit: true, Severity: "mid"},
	}
	first := Score(p)
	second := Score(p)
	assert.Equal(t, first.Corrected, second.Corrected)
	assert.Equal(t, first.Quality, second.Quality)
	assert.Equal(t, first.Trace, second.Trace)
}
