package scheduler

import (
	"log"
	"time"

	"videoscore-admin/internal/services"

	"github.com/robfig/cron/v3"
)

// Scheduler 結構
type Scheduler struct {
	cron       *cron.Cron
	scanJob    *ScanJob
	processJob *ProcessJob
}

// NewScheduler 依設定檔的 Cron 表達式註冊掃描與處理兩個任務。
func NewScheduler(
	ss *services.ScanService,
	scanCronSpec string,
	processCronSpec string,
) *Scheduler {
	c := cron.New(cron.WithSeconds())

	scanJob := NewScanJob(ss)
	processJob := NewProcessJob(ss)

	if scanCronSpec != "" {
		_, err := c.AddJob(scanCronSpec, scanJob)
		if err != nil {
			log.Fatalf("錯誤：無法新增記錄掃描任務到排程器 (spec: %s): %v", scanCronSpec, err)
		}
		log.Printf("資訊：記錄掃描任務已註冊，排程：%s\n", scanCronSpec)
	} else {
		log.Println("警告：未提供記錄掃描任務的 Cron 表達式，該任務將不會被排程。")
	}

	if processCronSpec != "" {
		_, err := c.AddJob(processCronSpec, processJob)
		if err != nil {
			log.Fatalf("錯誤：無法新增評分處理任務到排程器 (spec: %s): %v", processCronSpec, err)
		}
		log.Printf("資訊：評分處理任務已註冊，排程：%s\n", processCronSpec)
	} else {
		log.Println("警告：未提供評分處理任務的 Cron 表達式，該任務將不會被排程。")
	}

	return &Scheduler{
		cron:       c,
		scanJob:    scanJob,
		processJob: processJob,
	}
}

// Start 非阻塞啟動排程器。
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("資訊：排程器已非阻塞啟動 (如果任務已註冊)。")
}

// Stop 優雅停止排程器，等待運行中任務完成，最多 10 秒。
func (s *Scheduler) Stop() {
	log.Println("資訊：正在停止排程器...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("資訊：排程器已優雅停止，所有運行中任務已完成。")
	case <-time.After(10 * time.Second):
		log.Println("警告：排程器停止超時，可能仍有任務在執行。")
	}
}
