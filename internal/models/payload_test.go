package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/models"
)

func TestChecklistUnmarshalArrayForm(t *testing.T) {
	raw := `[{"name":"明确行动号召","hit":true},{"name":"紧迫感营造","hit":false,"notes":"缺少限时信息"}]`
	var c models.Checklist
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	hits, total := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, total)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "明确行动号召", items[0].Name)
	assert.True(t, items[0].Hit)
	assert.Equal(t, "缺少限时信息", items[1].Notes)
}

func TestChecklistUnmarshalMapForm(t *testing.T) {
	raw := `{
		"开场三秒有钩子": true,
		"开场三秒有钩子_explanation": "前三秒出现价格冲击",
		"痛点清晰": false,
		"卖点数量": 3
	}`
	var c models.Checklist
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	// 说明键与非布林值都不算检查项
	hits, total := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, total)
}

func TestChecklistUnmarshalMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"null", `null`},
		{"字符串", `"不是清单"`},
		{"数字", `42`},
		{"坏的数组", `[{"name": 1}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c models.Checklist
			assert.NoError(t, json.Unmarshal([]byte(tc.raw), &c))
			hits, total := c.Stats()
			assert.Zero(t, hits)
			assert.Zero(t, total)
		})
	}
}

func TestChecklistMarshalRoundTrip(t *testing.T) {
	c := models.NewMapChecklist(map[string]bool{"痛点清晰": true})
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back models.Checklist
	require.NoError(t, json.Unmarshal(data, &back))
	hits, total := back.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, total)
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Severity
	}{
		{"high", models.SeverityHigh},
		{"HIGH ", models.SeverityHigh},
		{"严重度：高", models.SeverityHigh},
		{"mid", models.SeverityMid},
		{"中等", models.SeverityMid},
		{"low", models.SeverityLow},
		{"较低", models.SeverityLow},
		{"", models.SeverityUnknown},
		{"critical", models.SeverityUnknown},
		{"毫无问题", models.SeverityUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, models.ParseSeverity(tc.raw), "raw=%q", tc.raw)
	}
}

func TestAnalysisPayloadMergeFillsOnlyMissing(t *testing.T) {
	score := 80.0
	a := &models.AnalysisPayload{
		PanelEvaluation: map[string]*models.PanelDimension{
			models.DimensionHook: {Score: &score},
		},
		Summary: "第一阶段总评",
	}
	b := &models.AnalysisPayload{
		PanelEvaluation: map[string]*models.PanelDimension{
			models.DimensionPitch: {},
		},
		RedFlags: []models.RedFlag{{Name: models.FlagComplianceRisk, Hit: true}},
		Summary:  "第二阶段总评",
		Tags:     []string{"羽绒服"},
	}

	a.Merge(b)

	// 已有的面板评估与总评不被覆盖
	assert.Contains(t, a.PanelEvaluation, models.DimensionHook)
	assert.NotContains(t, a.PanelEvaluation, models.DimensionPitch)
	assert.Equal(t, "第一阶段总评", a.Summary)
	// 缺漏的红旗与标签被填补
	assert.Len(t, a.RedFlags, 1)
	assert.Equal(t, []string{"羽绒服"}, a.Tags)
}

func TestHasLabel(t *testing.T) {
	p := &models.AnalysisPayload{
		V3Labeling: map[string]map[string]models.LabelGroup{
			"呈现形式": {
				"出镜": {Labels: []string{" 真人出镜 ", "同期声"}},
			},
		},
	}
	assert.True(t, p.HasLabel("真人出镜"))
	assert.True(t, p.HasLabel("同期声"))
	assert.False(t, p.HasLabel("配音"))

	var nilPayload *models.AnalysisPayload
	assert.False(t, nilPayload.HasLabel("真人出镜"))
}
