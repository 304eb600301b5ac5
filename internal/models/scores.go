package models

import (
	"database/sql"
	"time"
)

// CorrectedScores 是評分管線的最終產物，計算完成後不可變。
// 不變量：FinalScore = min(max(0, FusedPrePenalty+PenaltyTotal), CapApplied)，
// 且 FinalScore ∈ [0, 100]。
// Functional/Perception/Fused 以指標表達「缺席」：缺席不等於零分。
type CorrectedScores struct {
	FunctionalScore *int `json:"functional_score,omitempty"`
	PerceptionScore *int `json:"perception_score,omitempty"`
	FusedPrePenalty *int `json:"fused_pre_penalty,omitempty"`
	PenaltyTotal    int  `json:"penalty_total"`
	CapApplied      int  `json:"cap_applied"`
	FinalScore      *int `json:"final_score,omitempty"`

	// Dimensions/Pillars 保留每一軸修正前後的分數供稽核顯示。
	Dimensions map[string]DimensionScore `json:"dimensions,omitempty"`
	Pillars    map[string]DimensionScore `json:"pillars,omitempty"`
}

// DimensionScore 是單一維度修正的結果：
// Raw 為換算制式並夾限後的模型原始分，Used 為經基準替換與護欄後實際採用的分數。
type DimensionScore struct {
	Raw   *int `json:"raw,omitempty"`
	Used  *int `json:"used,omitempty"`
	Hits  int  `json:"hits"`
	Total int  `json:"total"`
}

// 質量評級的兩檔分類，無中間檔。
const (
	RatingExcellent = "优秀"
	RatingOrdinary  = "普通"
)

// QualityAssessment 是獨立第二評分通道的產物：0–100 的質量指數與兩檔評級。
// UnfairPenalty/MedicalPenalty 只記錄、不參與指數計算，留給人工覆核。
type QualityAssessment struct {
	QualityIndex  int               `json:"quality_index"`
	QualityRating string            `json:"quality_rating"`
	Components    QualityComponents `json:"components"`

	LiveSpeech         bool     `json:"live_speech"`
	LiveSpeechEvidence []string `json:"live_speech_evidence,omitempty"`
}

// QualityComponents 是質量指數的分項拆解。罰分皆以正數記錄，計算時做減法。
type QualityComponents struct {
	Base                    int `json:"base"`
	PositiveBonus           int `json:"positive_bonus"`
	HighlightBonus          int `json:"highlight_bonus"`
	CriticalOmissionPenalty int `json:"critical_omission_penalty"`
	AntiPatternPenalty      int `json:"anti_pattern_penalty"`
	UnfairPenalty           int `json:"unfair_penalty"`
	MedicalPenalty          int `json:"medical_penalty"`
}

// TraceEntry 是評分軌跡中一筆具名的加減分記錄。
type TraceEntry struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
	Delta int    `json:"delta"`
	Note  string `json:"note,omitempty"`
}

// ScoringTrace 是隨評分結果一併回傳的不可變稽核軌跡，
// 取代在 payload 物件上堆疊可變欄位的做法，讓軌跡可以獨立測試。
type ScoringTrace struct {
	Entries []TraceEntry `json:"entries,omitempty"`
}

// Add 追加一筆軌跡記錄並回傳新的 ScoringTrace，原值不變。
func (t ScoringTrace) Add(stage, label string, delta int, note string) ScoringTrace {
	entries := make([]TraceEntry, 0, len(t.Entries)+1)
	entries = append(entries, t.Entries...)
	entries = append(entries, TraceEntry{Stage: stage, Label: label, Delta: delta, Note: note})
	return ScoringTrace{Entries: entries}
}

// ScoreJob 是外層邊界收到的單支影片工作描述。
type ScoreJob struct {
	RecordID     string `json:"record_id"`
	VideoID      string `json:"video_id"`
	AccessToken  string `json:"access_token,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	ReturnReport bool   `json:"return_report,omitempty"`
}

// JobResult 是單支影片處理的結構化結果。
type JobResult struct {
	Status  JobStatus `json:"status"`
	Error   string    `json:"error,omitempty"`
	Report  string    `json:"report,omitempty"`
	Final   *int      `json:"final_score,omitempty"`
	Quality *int      `json:"quality_index,omitempty"`
}

// Job 對應 jobs 資料表，是單支影片評分工作在資料庫中的稽核記錄。
type Job struct {
	ID           int64          `json:"id"`
	RecordID     string         `json:"record_id"`
	VideoID      string         `json:"video_id"`
	Status       JobStatus      `json:"status"`
	ErrorMessage JsonNullString `json:"error_message,omitempty"`
	EnqueuedAt   time.Time      `json:"enqueued_at"`
	ProcessedAt  sql.NullTime   `json:"processed_at,omitempty"`
}

// ScoreResult 對應 score_results 資料表，保存一次評分的完整稽核內容。
type ScoreResult struct {
	JobID         int64             `json:"-"`
	PayloadJSON   JsonNullString    `json:"payload,omitempty"`
	Corrected     CorrectedScores   `json:"corrected"`
	Quality       QualityAssessment `json:"quality"`
	Trace         ScoringTrace      `json:"trace"`
	ErrorMessage  *JsonNullString   `json:"error_message,omitempty"`
	PromptVersion string            `json:"-"`
	ModelTier     string            `json:"-"`
	CreatedAt     time.Time         `json:"-"`
	UpdatedAt     time.Time         `json:"-"`
}
