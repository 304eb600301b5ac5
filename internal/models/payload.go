package models

import (
	"encoding/json"
	"strings"
)

// 面板維度與消費者支柱的固定鍵名。
// 推論回應以這些鍵組織 panel_evaluation / consumer_pillars。
const (
	DimensionHook  = "hook"
	DimensionPitch = "pitch"
	DimensionClose = "close"

	PillarAuthenticity = "pillar1_authenticity_trust"
	PillarValue        = "pillar2_value_persuasion"
	PillarConversion   = "pillar3_conversion_readiness"
)

// 紅旗的封閉詞彙表。模型回報的名稱必須是其中之一，其餘一律忽略。
const (
	FlagUnfairComparison = "不公平对比"
	FlagMedicalClaims    = "医疗化或夸大承诺"
	FlagNoLiveFootage    = "无实拍画面"
	FlagComplianceRisk   = "合规风险"
	FlagAdvertisingNoise = "广告感过重"
)

// RedFlagNames 列出全部五個紅旗名稱，順序固定。
var RedFlagNames = []string{
	FlagUnfairComparison,
	FlagMedicalClaims,
	FlagNoLiveFootage,
	FlagComplianceRisk,
	FlagAdvertisingNoise,
}

// AnalysisPayload 是推論邊界產出的半結構化分析結果。
// 生產端不保證任何欄位存在或格式正確；所有消費者都必須把缺漏視為「無訊號」。
type AnalysisPayload struct {
	PanelEvaluation map[string]*PanelDimension       `json:"panel_evaluation,omitempty"`
	ConsumerPillars map[string]*ConsumerPillar       `json:"consumer_pillars,omitempty"`
	RedFlags        []RedFlag                        `json:"red_flags,omitempty"`
	SubtitleGroups  []SubtitleGroup                  `json:"subtitle_groups,omitempty"`
	VideoStructure  *VideoStructure                  `json:"video_structure,omitempty"`
	V3Labeling      map[string]map[string]LabelGroup `json:"v3_labeling,omitempty"`

	// 模型自报的總分。最終得分計算完成後會覆寫此欄位供顯示，
	// 下游只應信任覆寫後的值。
	OverallScore *float64 `json:"overall_score,omitempty"`

	// 自由文字欄位，對評分管線不透明，原樣傳給報告格式化。
	Summary   string   `json:"summary,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// PanelDimension 是 hook/pitch/close 其中一軸的模型評估。
type PanelDimension struct {
	Score     *float64  `json:"score,omitempty"`
	Analysis  string    `json:"analysis,omitempty"`
	Checklist Checklist `json:"checklist,omitempty"`
}

// ConsumerPillar 是消費者感知三支柱其中一軸的模型評估。
type ConsumerPillar struct {
	Score     *float64  `json:"score,omitempty"`
	Analysis  string    `json:"analysis,omitempty"`
	Checklist Checklist `json:"checklist,omitempty"`
}

// RedFlag 是一個具名風險條件。Severity 為模型回報的自由文字，
// 下游一律先經 ParseSeverity 收斂成列舉再使用。
type RedFlag struct {
	Name     string `json:"name"`
	Hit      bool   `json:"hit"`
	Severity string `json:"severity,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// SubtitleGroup 是一段帶時間戳的字幕片段，含視覺強度標記。
type SubtitleGroup struct {
	StartTime         string `json:"start_time,omitempty"`
	EndTime           string `json:"end_time,omitempty"`
	Transcription     string `json:"transcription,omitempty"`
	ScreenDescription string `json:"screen_description,omitempty"`
	Summary           string `json:"summary,omitempty"`
	VisuallyStrong    bool   `json:"visually_strong,omitempty"`
}

// VideoStructure 描述影片的敘事結構。
type VideoStructure struct {
	Segments []StructureSegment `json:"segments,omitempty"`
}

// StructureSegment 是敘事結構中的一段。
type StructureSegment struct {
	TimeRange   string `json:"time_range,omitempty"`
	Part        string `json:"part,omitempty"`
	Description string `json:"description,omitempty"`
}

// LabelGroup 是 v3 標籤體系中一個子維度的標籤集合與判定依據。
type LabelGroup struct {
	Labels []string `json:"labels,omitempty"`
	Basis  string   `json:"basis,omitempty"`
}

// Merge 把另一階段的分析結果加性合併進來：只填補自己缺漏的欄位，
// 已有的內容不被覆蓋。兩階段推論彼此獨立，合併順序不影響結果。
func (p *AnalysisPayload) Merge(other *AnalysisPayload) {
	if p == nil || other == nil {
		return
	}
	if len(p.PanelEvaluation) == 0 {
		p.PanelEvaluation = other.PanelEvaluation
	}
	if len(p.ConsumerPillars) == 0 {
		p.ConsumerPillars = other.ConsumerPillars
	}
	if len(p.RedFlags) == 0 {
		p.RedFlags = other.RedFlags
	}
	if len(p.SubtitleGroups) == 0 {
		p.SubtitleGroups = other.SubtitleGroups
	}
	if p.VideoStructure == nil {
		p.VideoStructure = other.VideoStructure
	}
	if len(p.V3Labeling) == 0 {
		p.V3Labeling = other.V3Labeling
	}
	if p.OverallScore == nil {
		p.OverallScore = other.OverallScore
	}
	if p.Summary == "" {
		p.Summary = other.Summary
	}
	if p.Rationale == "" {
		p.Rationale = other.Rationale
	}
	if len(p.Tags) == 0 {
		p.Tags = other.Tags
	}
}

// HasLabel 回報整份標籤體系中是否出現指定標籤。
func (p *AnalysisPayload) HasLabel(label string) bool {
	if p == nil {
		return false
	}
	for _, dim := range p.V3Labeling {
		for _, group := range dim {
			for _, l := range group.Labels {
				if strings.TrimSpace(l) == label {
					return true
				}
			}
		}
	}
	return false
}

// checklistForm 標記清單在線上出現的形態
type checklistForm int

const (
	checklistAbsent checklistForm = iota
	checklistArray                // 有序的 {name, hit, notes} 物件序列
	checklistMap                  // 鍵值布林表，"..._explanation" 字串鍵為說明、不算檢查項
)

// ChecklistItem 是陣列形態清單的一個檢查項。
type ChecklistItem struct {
	Name  string `json:"name"`
	Hit   bool   `json:"hit"`
	Notes string `json:"notes,omitempty"`
}

// explanationSuffix 是鍵值形態清單中說明鍵共用的命名後綴。
const explanationSuffix = "_explanation"

// Checklist 是模型清單的帶標籤變體：同一份結構模型可能以
// 物件陣列或鍵值布林表兩種形態表達，在反序列化邊界解析一次，
// 下游只透過 Stats/Items 取值，不再分支判斷形態。
type Checklist struct {
	form  checklistForm
	items []ChecklistItem
	flags map[string]bool
}

// UnmarshalJSON 解析兩種清單形態。無法辨識的形態視為「無訊號」而非錯誤，
// 符合「缺漏即無訊號」的容錯原則。
func (c *Checklist) UnmarshalJSON(data []byte) error {
	c.form, c.items, c.flags = checklistAbsent, nil, nil
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []ChecklistItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		c.form, c.items = checklistArray, items
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		flags := make(map[string]bool)
		for key, val := range raw {
			if strings.HasSuffix(key, explanationSuffix) {
				continue
			}
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				// 非布林值（說明文字、數字等）不是檢查項
				continue
			}
			flags[key] = b
		}
		c.form, c.flags = checklistMap, flags
	}
	return nil
}

// MarshalJSON 以解析後的正準形態輸出。
func (c Checklist) MarshalJSON() ([]byte, error) {
	switch c.form {
	case checklistArray:
		return json.Marshal(c.items)
	case checklistMap:
		return json.Marshal(c.flags)
	default:
		return []byte("null"), nil
	}
}

// Stats 回傳 (命中數, 總項數)。兩種形態收斂成同一個積分對；
// 沒有任何布林檢查項時回傳 (0, 0)，呼叫端必須視為「無訊號」。
func (c Checklist) Stats() (hits, total int) {
	switch c.form {
	case checklistArray:
		for _, item := range c.items {
			total++
			if item.Hit {
				hits++
			}
		}
	case checklistMap:
		for _, hit := range c.flags {
			total++
			if hit {
				hits++
			}
		}
	}
	return hits, total
}

// Items 以統一的項目序列回傳清單內容，供按名稱查找檢查項。
// 鍵值形態的回傳順序不保證。
func (c Checklist) Items() []ChecklistItem {
	switch c.form {
	case checklistArray:
		return c.items
	case checklistMap:
		items := make([]ChecklistItem, 0, len(c.flags))
		for name, hit := range c.flags {
			items = append(items, ChecklistItem{Name: name, Hit: hit})
		}
		return items
	default:
		return nil
	}
}

// NewArrayChecklist 以陣列形態建構清單，主要供測試與信號合成使用。
func NewArrayChecklist(items ...ChecklistItem) Checklist {
	return Checklist{form: checklistArray, items: items}
}

// NewMapChecklist 以鍵值形態建構清單。
func NewMapChecklist(flags map[string]bool) Checklist {
	return Checklist{form: checklistMap, flags: flags}
}
