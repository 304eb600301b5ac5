// Package format 把校正後的評分資料渲染成寫回記錄庫的人類可讀報告。
package format

import (
	"fmt"
	"strings"

	"videoscore-admin/internal/models"
)

// Report 渲染完整的分析報告：總評、評分明細、紅旗、質量指數與分段腳本。
func Report(p *models.AnalysisPayload, corrected models.CorrectedScores, quality models.QualityAssessment) string {
	var sb strings.Builder

	sb.WriteString("## 📊 评分总览\n")
	if corrected.FinalScore != nil {
		fmt.Fprintf(&sb, "**最终得分**: %d\n", *corrected.FinalScore)
	} else {
		sb.WriteString("**最终得分**: （无）\n")
	}
	writeOptionalScore(&sb, "功能分", corrected.FunctionalScore)
	writeOptionalScore(&sb, "感知分", corrected.PerceptionScore)
	writeOptionalScore(&sb, "融合前分", corrected.FusedPrePenalty)
	if corrected.PenaltyTotal != 0 {
		fmt.Fprintf(&sb, "**红旗扣分**: %d\n", corrected.PenaltyTotal)
	}
	if corrected.CapApplied < 100 {
		fmt.Fprintf(&sb, "**得分封顶**: %d\n", corrected.CapApplied)
	}
	fmt.Fprintf(&sb, "**质量指数**: %d（%s）\n", quality.QualityIndex, quality.QualityRating)

	if len(corrected.Dimensions) > 0 || len(corrected.Pillars) > 0 {
		sb.WriteString("\n## 🔍 评分明细\n")
		writeDimension(&sb, "开场钩子", corrected.Dimensions[models.DimensionHook])
		writeDimension(&sb, "卖点陈述", corrected.Dimensions[models.DimensionPitch])
		writeDimension(&sb, "收尾转化", corrected.Dimensions[models.DimensionClose])
		writeDimension(&sb, "真实可信", corrected.Pillars[models.PillarAuthenticity])
		writeDimension(&sb, "价值说服", corrected.Pillars[models.PillarValue])
		writeDimension(&sb, "转化就绪", corrected.Pillars[models.PillarConversion])
	}

	if p != nil && len(p.RedFlags) > 0 {
		var hits []string
		for _, f := range p.RedFlags {
			if f.Hit {
				line := fmt.Sprintf("- ⚠️ %s（%s）", f.Name, models.ParseSeverity(f.Severity).String())
				if f.Notes != "" {
					line += ": " + f.Notes
				}
				hits = append(hits, line)
			}
		}
		if len(hits) > 0 {
			sb.WriteString("\n## 🚩 风险提示\n")
			sb.WriteString(strings.Join(hits, "\n"))
			sb.WriteString("\n")
		}
	}

	comp := quality.Components
	sb.WriteString("\n## 🧮 质量指数拆解\n")
	fmt.Fprintf(&sb, "**基底**: %d / **正向加成**: +%d / **亮点加成**: +%d\n", comp.Base, comp.PositiveBonus, comp.HighlightBonus)
	fmt.Fprintf(&sb, "**关键缺失**: -%d / **反模式**: -%d\n", comp.CriticalOmissionPenalty, comp.AntiPatternPenalty)
	if comp.UnfairPenalty > 0 || comp.MedicalPenalty > 0 {
		fmt.Fprintf(&sb, "**仅记录（不计入指数）**: 不公平对比 -%d / 医疗化承诺 -%d\n", comp.UnfairPenalty, comp.MedicalPenalty)
	}
	if quality.LiveSpeech {
		sb.WriteString("**真人开播**: 是\n")
		for _, ev := range quality.LiveSpeechEvidence {
			fmt.Fprintf(&sb, "  - %s\n", ev)
		}
	}

	if p != nil {
		if p.Summary != "" {
			sb.WriteString("\n## 📝 内容总评\n")
			sb.WriteString(p.Summary)
			sb.WriteString("\n")
		}
		if script := Script(p.SubtitleGroups); script != "" {
			sb.WriteString("\n## 🎬 分段脚本\n")
			sb.WriteString(script)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Script 把字幕片段渲染成分段的 markdown 腳本。
func Script(groups []models.SubtitleGroup) string {
	if len(groups) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		header := fmt.Sprintf("### 🕒 %s - %s", orPlaceholder(g.StartTime), orPlaceholder(g.EndTime))
		lines := []string{
			header,
			"**口播内容**: " + orEmptyNote(g.Transcription),
			"**画面描述**: " + orEmptyNote(g.ScreenDescription),
			"**片段总结**: " + orEmptyNote(g.Summary),
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// CleanTags 對標籤做確定性清理：去重、去空白、截斷到 10 個字元。
func CleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if runes := []rune(t); len(runes) > 10 {
			t = string(runes[:10])
		}
		out = append(out, t)
	}
	return out
}

func writeOptionalScore(sb *strings.Builder, label string, score *int) {
	if score != nil {
		fmt.Fprintf(sb, "**%s**: %d\n", label, *score)
	}
}

func writeDimension(sb *strings.Builder, label string, dim models.DimensionScore) {
	if dim.Used == nil && dim.Raw == nil && dim.Total == 0 {
		return
	}
	line := "- " + label + ": "
	if dim.Used != nil {
		line += fmt.Sprintf("%d", *dim.Used)
	} else {
		line += "（无）"
	}
	if dim.Raw != nil && dim.Used != nil && *dim.Raw != *dim.Used {
		line += fmt.Sprintf("（模型原始分 %d）", *dim.Raw)
	}
	if dim.Total > 0 {
		line += fmt.Sprintf("，清单命中 %d/%d", dim.Hits, dim.Total)
	}
	sb.WriteString(line + "\n")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "??:??"
	}
	return s
}

func orEmptyNote(s string) string {
	if strings.TrimSpace(s) == "" {
		return "（无）"
	}
	return s
}
