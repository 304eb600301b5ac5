package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"videoscore-admin/internal/models"
)

// JobReader 介面定義了工作稽核記錄的查詢操作
type JobReader interface {
	GetJobByID(jobID int64) (*models.Job, error)
}

// JobHandler 查詢單一工作的稽核狀態
type JobHandler struct {
	db JobReader
}

// NewJobHandler 建立 JobHandler 實例
func NewJobHandler(db JobReader) *JobHandler {
	if db == nil {
		log.Panicln("JobHandler：JobReader 不得為空")
	}
	return &JobHandler{db: db}
}

// ServeHTTP 實現 http.Handler 介面
func (h *JobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "僅支援 GET 方法", http.StatusMethodNotAllowed)
		return
	}

	idParam := r.URL.Query().Get("id")
	jobID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || jobID <= 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "缺少或無效的 id 參數"})
		return
	}

	job, err := h.db.GetJobByID(jobID)
	if err != nil {
		log.Printf("錯誤：[JobHandler] 查詢工作失敗 (JobID: %d): %v\n", jobID, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "查詢工作失敗"})
		return
	}
	if job == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "找不到指定的工作"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(job)
}
