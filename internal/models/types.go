package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// JsonNullString 是一個 sql.NullString 的包裝類型，用於自訂 JSON (un)marshalling。
type JsonNullString struct {
	sql.NullString
}

// MarshalJSON 為 JsonNullString 實現 json.Marshaler 介面。
func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

// UnmarshalJSON 為 JsonNullString 實現 json.Unmarshaler 介面。
func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: 期望 JSON 字串或 null，但得到 '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}

// JobStatus 定義單支影片評分工作的處理狀態
type JobStatus string

const (
	StatusPending        JobStatus = "pending"         // 已入列，等待處理
	StatusProcessing     JobStatus = "processing"      // 正在下載/分析/評分
	StatusCompleted      JobStatus = "completed"       // 評分完成並已回寫
	StatusSkipped        JobStatus = "skipped"         // 缺少必要輸入，視為上游 no-op
	StatusDownloadFailed JobStatus = "download_failed" // 影片下載失敗
	StatusAnalysisFailed JobStatus = "analysis_failed" // 推論或解析失敗
	StatusWriteFailed    JobStatus = "write_failed"    // 記錄回寫失敗
)

// Severity 是紅旗嚴重度的封閉列舉。
// 模型以自由文字回報嚴重度，在訊號提取邊界解析一次之後，下游只看這個列舉。
type Severity int

const (
	SeverityUnknown Severity = iota // 無法辨識的嚴重度，不計罰分；封頂仍由命中與否決定
	SeverityLow
	SeverityMid
	SeverityHigh
)

// ParseSeverity 以子字串包含的方式解析自由文字嚴重度。
// 同時比對 high/mid/low 的英文與常見中文寫法；比對不到回傳 SeverityUnknown。
func ParseSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "high") || strings.Contains(s, "高"):
		return SeverityHigh
	case strings.Contains(s, "mid") || strings.Contains(s, "中"):
		return SeverityMid
	case strings.Contains(s, "low") || strings.Contains(s, "低"):
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// String 回傳嚴重度的顯示名稱
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMid:
		return "mid"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}
