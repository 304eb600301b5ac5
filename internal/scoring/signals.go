// Package scoring 實現確定性的評分/後處理管線：
// 從半結構化的推論結果提取訊號，校正模型自報的分數，加權聚合，
// 套用紅旗罰分與封頂，並獨立推導質量指數。
// 整個套件都是純函式：不發起 I/O、不保留狀態、對稀疏輸入永不報錯。
package scoring

import (
	"strings"

	"videoscore-admin/internal/models"
)

// v3 標籤體系中評分管線關心的標籤白名單。
const (
	LabelOnCamera           = "真人出镜"
	LabelSyncAudio          = "同期声"
	LabelVoiceOver          = "配音"
	LabelEmotionNatural     = "情绪自然"
	LabelEmotionStiff       = "情绪生硬"
	LabelEmotionExaggerated = "情绪浮夸"
	LabelHighEnergy         = "情绪高涨"
	LabelImageClear         = "画质清晰"
	LabelImageBlurry        = "画质模糊"
	LabelCloseUpTexture     = "产品质感特写"
	LabelTightPacing        = "节奏紧凑"
	LabelSlowPacing         = "节奏拖沓"
	LabelComparison         = "对比叙事"
)

// StructureRole 是敘事結構中的一個固定角色。
type StructureRole string

const (
	RoleHook      StructureRole = "hook"
	RolePainScene StructureRole = "pain_scene"
	RoleShowcase  StructureRole = "showcase"
	RoleProof     StructureRole = "proof"
	RoleCTA       StructureRole = "cta"
)

// roleKeywords 是各結構角色的關鍵詞集，對段落名稱與檢查項名稱
// 做不分大小寫的子字串比對。
var roleKeywords = map[StructureRole][]string{
	RoleHook:      {"hook", "开场", "钩子"},
	RolePainScene: {"pain", "痛点", "场景"},
	RoleShowcase:  {"showcase", "展示", "卖点"},
	RoleProof:     {"proof", "证明", "背书", "信任"},
	RoleCTA:       {"cta", "行动", "引导", "转化"},
}

// ctaCheckNames 是行動號召的三個固定檢查項。
var ctaCheckNames = []string{"明确行动号召", "紧迫感营造", "转化路径清晰"}

// StructureSignals 是五個結構角色的在場布林。
type StructureSignals struct {
	HasHook      bool
	HasPainScene bool
	HasShowcase  bool
	HasProof     bool
	HasCTA       bool
}

// RedFlagSignal 是單一紅旗在訊號提取邊界收斂後的狀態。
type RedFlagSignal struct {
	Hit      bool
	Severity models.Severity
	Notes    string
}

// Signals 是訊號提取器從原始分析結果推導出的全部定量/布林訊號。
// 每個欄位的零值就是它的「無訊號」語義。
type Signals struct {
	Structure    StructureSignals
	HookAnalysis string

	OnCamera   bool
	SyncAudio  bool
	VoiceOver  bool
	LiveSpeech bool // OnCamera && SyncAudio && !VoiceOver

	EmotionNatural   bool
	EmotionUnnatural bool
	HighEnergy       bool

	ImageQualityPass bool
	ImageQualityFail bool
	CloseUpTexture   bool
	Comparison       bool

	TightPacing bool
	SlowPacing  bool

	HighlightCount int
	HighlightRatio float64
	AvgSegmentSecs float64

	CTAHits int

	Flags map[string]RedFlagSignal
}

// ChecklistStats 回傳清單的 (命中數, 總項數)。
// 兩種清單形態在 models.Checklist 解析時已收斂，這裡只是統一的取值入口。
// total 為 0 時代表「無訊號」，呼叫端不得把它當成命中率計算。
func ChecklistStats(c models.Checklist) (hits, total int) {
	return c.Stats()
}

// matchesRole 以關鍵詞集判斷名稱是否屬於某結構角色。
func matchesRole(name string, role StructureRole) bool {
	lower := strings.ToLower(name)
	for _, kw := range roleKeywords[role] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectStructurePresence 判斷五個結構角色是否在場。
// 每個角色有兩個訊號來源：敘事結構段落名稱，以及命中的檢查項名稱。
// 任一來源確認即視為在場——刻意採 OR 而非 AND，容忍模型用
// 兩種方式表達同一件事。
func DetectStructurePresence(p *models.AnalysisPayload) StructureSignals {
	var out StructureSignals
	if p == nil {
		return out
	}

	present := func(role StructureRole) bool {
		if p.VideoStructure != nil {
			for _, seg := range p.VideoStructure.Segments {
				if matchesRole(seg.Part, role) {
					return true
				}
			}
		}
		for _, dim := range p.PanelEvaluation {
			if dim == nil {
				continue
			}
			for _, item := range dim.Checklist.Items() {
				if item.Hit && matchesRole(item.Name, role) {
					return true
				}
			}
		}
		for _, pillar := range p.ConsumerPillars {
			if pillar == nil {
				continue
			}
			for _, item := range pillar.Checklist.Items() {
				if item.Hit && matchesRole(item.Name, role) {
					return true
				}
			}
		}
		return false
	}

	out.HasHook = present(RoleHook)
	out.HasPainScene = present(RolePainScene)
	out.HasShowcase = present(RoleShowcase)
	out.HasProof = present(RoleProof)
	out.HasCTA = present(RoleCTA)
	return out
}

// parseClockSeconds 解析 "MM:SS" 或 "HH:MM:SS" 為秒數。
func parseClockSeconds(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	total := 0
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		n := 0
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, false
			}
			n = n*10 + int(r-'0')
		}
		total = total*60 + n
	}
	return float64(total), true
}

// segmentSeconds 計算一段字幕片段的時長。
// 起訖任一無法解析、或時長非正數時回報無效，該段不納入平均。
func segmentSeconds(g models.SubtitleGroup) (float64, bool) {
	start, okStart := parseClockSeconds(g.StartTime)
	end, okEnd := parseClockSeconds(g.EndTime)
	if !okStart || !okEnd {
		return 0, false
	}
	dur := end - start
	if dur <= 0 {
		return 0, false
	}
	return dur, true
}

// countCTAHits 統計三個固定行動號召檢查項的命中數（0–3）。
// 同名檢查項跨清單重複出現只計一次。
func countCTAHits(p *models.AnalysisPayload) int {
	hit := make(map[string]bool, len(ctaCheckNames))
	mark := func(c models.Checklist) {
		for _, item := range c.Items() {
			if !item.Hit {
				continue
			}
			name := strings.TrimSpace(item.Name)
			for _, want := range ctaCheckNames {
				if name == want {
					hit[want] = true
				}
			}
		}
	}
	for _, dim := range p.PanelEvaluation {
		if dim != nil {
			mark(dim.Checklist)
		}
	}
	for _, pillar := range p.ConsumerPillars {
		if pillar != nil {
			mark(pillar.Checklist)
		}
	}
	return len(hit)
}

// extractRedFlags 把紅旗序列收斂成名稱→訊號的查找表。
// 名稱不在封閉詞彙表內的一律忽略；同名取第一筆。
func extractRedFlags(flags []models.RedFlag) map[string]RedFlagSignal {
	known := make(map[string]bool, len(models.RedFlagNames))
	for _, name := range models.RedFlagNames {
		known[name] = true
	}
	out := make(map[string]RedFlagSignal, len(models.RedFlagNames))
	for _, f := range flags {
		name := strings.TrimSpace(f.Name)
		if !known[name] {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = RedFlagSignal{
			Hit:      f.Hit,
			Severity: models.ParseSeverity(f.Severity),
			Notes:    f.Notes,
		}
	}
	return out
}

// ExtractSignals 從原始分析結果計算整組派生訊號。
// 任何缺漏欄位都退化成對應的「無訊號」零值，永不報錯。
func ExtractSignals(p *models.AnalysisPayload) Signals {
	var sig Signals
	sig.Flags = map[string]RedFlagSignal{}
	if p == nil {
		return sig
	}

	sig.Structure = DetectStructurePresence(p)
	if hook := p.PanelEvaluation[models.DimensionHook]; hook != nil {
		sig.HookAnalysis = hook.Analysis
	}

	sig.OnCamera = p.HasLabel(LabelOnCamera)
	sig.SyncAudio = p.HasLabel(LabelSyncAudio)
	sig.VoiceOver = p.HasLabel(LabelVoiceOver)
	sig.LiveSpeech = sig.OnCamera && sig.SyncAudio && !sig.VoiceOver

	sig.EmotionNatural = p.HasLabel(LabelEmotionNatural)
	sig.EmotionUnnatural = p.HasLabel(LabelEmotionStiff) || p.HasLabel(LabelEmotionExaggerated)
	sig.HighEnergy = p.HasLabel(LabelHighEnergy)

	sig.ImageQualityPass = p.HasLabel(LabelImageClear)
	sig.ImageQualityFail = p.HasLabel(LabelImageBlurry)
	sig.CloseUpTexture = p.HasLabel(LabelCloseUpTexture)
	sig.Comparison = p.HasLabel(LabelComparison)

	sig.TightPacing = p.HasLabel(LabelTightPacing)
	sig.SlowPacing = p.HasLabel(LabelSlowPacing)

	if n := len(p.SubtitleGroups); n > 0 {
		var durSum float64
		var durCount int
		for _, g := range p.SubtitleGroups {
			if g.VisuallyStrong {
				sig.HighlightCount++
			}
			if secs, ok := segmentSeconds(g); ok {
				durSum += secs
				durCount++
			}
		}
		sig.HighlightRatio = float64(sig.HighlightCount) / float64(n)
		if durCount > 0 {
			sig.AvgSegmentSecs = durSum / float64(durCount)
		}
	}

	sig.CTAHits = countCTAHits(p)
	sig.Flags = extractRedFlags(p.RedFlags)
	return sig
}
