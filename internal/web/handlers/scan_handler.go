package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
)

// ScanRunner 介面定義了掃描加處理的完整批次操作
type ScanRunner interface {
	Run(ctx context.Context) error
}

// ScanHandler 手動觸發記錄掃描與評分處理，同一時間只允許一個批次在跑
type ScanHandler struct {
	scanService ScanRunner
	mu          sync.Mutex
	isRunning   bool
}

// NewScanHandler 建立 ScanHandler 實例
func NewScanHandler(ss ScanRunner) *ScanHandler {
	if ss == nil {
		log.Panicln("ScanHandler：ScanRunner 不得為空")
	}
	return &ScanHandler{scanService: ss}
}

// ServeHTTP 實現 http.Handler 介面
func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Printf("資訊：[ScanHandler] 收到請求: %s %s 來自 %s\n", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		log.Printf("警告：[ScanHandler] 收到非 POST 請求 (%s)，已拒絕。\n", r.Method)
		http.Error(w, "僅支援 POST 方法", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		log.Println("警告：[ScanHandler] 掃描批次已在進行中，拒絕新的觸發。")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "掃描批次已在進行中，請稍候。"})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	log.Println("資訊：[ScanHandler] 收到手動觸發掃描請求，準備啟動 goroutine。")

	go func() {
		defer func() {
			h.mu.Lock()
			h.isRunning = false
			h.mu.Unlock()
			log.Println("資訊：[ScanHandler] 手動觸發的掃描批次 goroutine 已結束。")
		}()

		if err := h.scanService.Run(context.Background()); err != nil {
			log.Printf("錯誤：[ScanHandler] 手動觸發的掃描批次執行失敗: %v", err)
		} else {
			log.Println("資訊：[ScanHandler] 手動觸發的掃描批次執行成功。")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "掃描批次已觸發，正在背景執行。請稍後查看結果。"})
}
