package web

import (
	"encoding/json"
	"log"
	"net/http"

	"videoscore-admin/internal/services"
	"videoscore-admin/internal/web/handlers"
)

// SetupRouter 組裝 HTTP 路由：同步評分、手動掃描觸發、工作查詢與健康檢查。
func SetupRouter(scoreService *services.ScoreService, scanService *services.ScanService, jobReader handlers.JobReader) http.Handler {
	mux := http.NewServeMux()

	if scoreService == nil {
		log.Panicln("SetupRouter：ScoreService 不得為空")
	}
	if scanService == nil {
		log.Panicln("SetupRouter：ScanService 不得為空")
	}

	mux.Handle("/analyze", handlers.NewAnalyzeHandler(scoreService))
	mux.Handle("/scan", handlers.NewScanHandler(scanService))
	mux.Handle("/jobs", handlers.NewJobHandler(jobReader))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	log.Println("資訊：HTTP 路由設定完成。")
	return mux
}
