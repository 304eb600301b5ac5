package format_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/format"
	"videoscore-admin/internal/models"
)

func intPtr(v int) *int { return &v }

func TestScriptBlocks(t *testing.T) {
	groups := []models.SubtitleGroup{
		{
			StartTime:         "00:00",
			EndTime:           "00:03",
			Transcription:     "这件羽绒服今天只要199",
			ScreenDescription: "主播手持羽绒服特写",
			Summary:           "价格钩子开场",
		},
		{
			StartTime: "00:03",
			EndTime:   "00:08",
		},
	}
	out := format.Script(groups)

	assert.Contains(t, out, "### 🕒 00:00 - 00:03")
	assert.Contains(t, out, "**口播内容**: 这件羽绒服今天只要199")
	assert.Contains(t, out, "**画面描述**: 主播手持羽绒服特写")
	assert.Contains(t, out, "**片段总结**: 价格钩子开场")
	// 缺漏字段以占位呈现
	assert.Contains(t, out, "**口播内容**: （无）")
	// 两个片段之间有分隔线
	assert.Equal(t, 1, strings.Count(out, "\n---\n"))
}

func TestScriptEmpty(t *testing.T) {
	assert.Empty(t, format.Script(nil))
	assert.Empty(t, format.Script([]models.SubtitleGroup{}))
}

func TestReportSections(t *testing.T) {
	payload := &models.AnalysisPayload{
		Summary: "整体节奏紧凑，转化引导清晰。",
		RedFlags: []models.RedFlag{
			{Name: models.FlagComplianceRisk, Hit: true, Severity: "high", Notes: "绝对化用语"},
			{Name: models.FlagMedicalClaims, Hit: false},
		},
		SubtitleGroups: []models.SubtitleGroup{
			{StartTime: "00:00", EndTime: "00:03", Transcription: "开场"},
		},
	}
	corrected := models.CorrectedScores{
		FunctionalScore: intPtr(78),
		PerceptionScore: intPtr(80),
		FusedPrePenalty: intPtr(79),
		PenaltyTotal:    -20,
		CapApplied:      50,
		FinalScore:      intPtr(50),
		Dimensions: map[string]models.DimensionScore{
			models.DimensionHook: {Raw: intPtr(90), Used: intPtr(100), Hits: 2, Total: 2},
		},
	}
	quality := models.QualityAssessment{
		QualityIndex:  72,
		QualityRating: models.RatingOrdinary,
		Components: models.QualityComponents{
			Base: 79, PositiveBonus: 20, CriticalOmissionPenalty: 27,
		},
		LiveSpeech:         true,
		LiveSpeechEvidence: []string{"检出真人出镜标签"},
	}

	out := format.Report(payload, corrected, quality)

	assert.Contains(t, out, "**最终得分**: 50")
	assert.Contains(t, out, "**红旗扣分**: -20")
	assert.Contains(t, out, "**得分封顶**: 50")
	assert.Contains(t, out, "**质量指数**: 72（普通）")
	// 命中的红旗带严重度与说明，未命中的不出现
	assert.Contains(t, out, "合规风险（high）: 绝对化用语")
	assert.NotContains(t, out, "医疗化或夸大承诺")
	// 维度明细呈现基准替换前后的分数
	assert.Contains(t, out, "开场钩子: 100（模型原始分 90）")
	assert.Contains(t, out, "**真人开播**: 是")
	assert.Contains(t, out, "整体节奏紧凑，转化引导清晰。")
	assert.Contains(t, out, "### 🕒 00:00 - 00:03")
}

func TestReportAbsentScores(t *testing.T) {
	out := format.Report(&models.AnalysisPayload{}, models.CorrectedScores{CapApplied: 100}, models.QualityAssessment{QualityRating: models.RatingOrdinary})
	assert.Contains(t, out, "**最终得分**: （无）")
	assert.NotContains(t, out, "**红旗扣分**")
	assert.NotContains(t, out, "**得分封顶**")
}

func TestCleanTags(t *testing.T) {
	in := []string{" 羽绒服 ", "羽绒服", "", "这个标签实在是太长了需要截断处理", "冬季清仓"}
	out := format.CleanTags(in)
	require.Len(t, out, 3)
	assert.Equal(t, "羽绒服", out[0])
	assert.Equal(t, "这个标签实在是太长了", out[1]) // 截断到 10 个字元
	assert.Equal(t, "冬季清仓", out[2])
}
