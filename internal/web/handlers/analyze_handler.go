package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"videoscore-admin/internal/models"
)

// ScoreRunner 介面定義了單支影片的同步評分操作
type ScoreRunner interface {
	ProcessJob(ctx context.Context, job models.ScoreJob) models.JobResult
}

// AnalyzeHandler 處理單支影片的同步評分請求
type AnalyzeHandler struct {
	scoreService ScoreRunner
}

// NewAnalyzeHandler 建立 AnalyzeHandler 實例
func NewAnalyzeHandler(ss ScoreRunner) *AnalyzeHandler {
	if ss == nil {
		log.Panicln("AnalyzeHandler：ScoreRunner 不得為空")
	}
	return &AnalyzeHandler{scoreService: ss}
}

// ServeHTTP 實現 http.Handler 介面。
// 請求同步處理到完成才回應，呼叫端自行控制逾時。
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("資訊：[AnalyzeHandler] 收到請求: %s %s 來自 %s\n", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		log.Printf("警告：[AnalyzeHandler] 收到非 POST 請求 (%s)，已拒絕。\n", r.Method)
		http.Error(w, "僅支援 POST 方法", http.StatusMethodNotAllowed)
		return
	}

	var job models.ScoreJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		log.Printf("警告：[AnalyzeHandler] 解析請求內容失敗: %v\n", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "無法解析請求內容"})
		return
	}

	result := h.scoreService.ProcessJob(r.Context(), job)

	w.Header().Set("Content-Type", "application/json")
	switch result.Status {
	case models.StatusSkipped:
		w.WriteHeader(http.StatusOK)
	case models.StatusCompleted:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(result)
}
