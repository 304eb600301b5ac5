package scheduler

import (
	"context"
	"log"

	"videoscore-admin/internal/services"
)

// ScanJob 是一個排程任務，用於掃描記錄庫並把待分析記錄入列
type ScanJob struct {
	scanService *services.ScanService
}

// NewScanJob 建立一個 ScanJob
func NewScanJob(ss *services.ScanService) *ScanJob {
	return &ScanJob{scanService: ss}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *ScanJob) Run() {
	log.Println("資訊：執行排程任務 - 記錄掃描...")
	if _, err := j.scanService.Scan(context.Background()); err != nil {
		log.Printf("錯誤：記錄掃描排程任務執行失敗: %v", err)
	} else {
		log.Println("資訊：記錄掃描排程任務執行完成。")
	}
}

// ProcessJob 是一個排程任務，用於串行處理已入列的評分工作
type ProcessJob struct {
	scanService *services.ScanService
}

// NewProcessJob 建立一個 ProcessJob
func NewProcessJob(ss *services.ScanService) *ProcessJob {
	return &ProcessJob{scanService: ss}
}

// Run 實現 cron.Job 介面
func (j *ProcessJob) Run() {
	log.Println("資訊：執行排程任務 - 評分處理...")
	if err := j.scanService.ProcessPending(context.Background()); err != nil {
		log.Printf("錯誤：評分處理排程任務執行失敗: %v", err)
	} else {
		log.Println("資訊：評分處理排程任務執行完成。")
	}
}
