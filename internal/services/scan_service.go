package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"videoscore-admin/internal/clients/bitable"
	"videoscore-admin/internal/config"
	"videoscore-admin/internal/models"
)

const pendingBatchLimit = 50

// JobProcessor 介面定義了單支影片工作的處理操作
type JobProcessor interface {
	ProcessJob(ctx context.Context, job models.ScoreJob) models.JobResult
}

// ScanService 掃描記錄庫中待分析的記錄並入列，再依節流間隔逐一送交處理。
// 下游推論端點不耐並發，處理一律串行並以固定間隔節流。
type ScanService struct {
	cfg       *config.Config
	db        DBStore
	records   RecordStore
	processor JobProcessor
	limiter   *rate.Limiter
}

// NewScanService 建立 ScanService 實例
func NewScanService(cfg *config.Config, db DBStore, records RecordStore, processor JobProcessor) (*ScanService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ScanService：設定不得為空")
	}
	if db == nil {
		return nil, fmt.Errorf("ScanService：DBStore 不得為空")
	}
	if records == nil {
		return nil, fmt.Errorf("ScanService：RecordStore 不得為空")
	}
	if processor == nil {
		return nil, fmt.Errorf("ScanService：JobProcessor 不得為空")
	}
	interval := cfg.RateLimit.Interval
	if interval <= 0 {
		interval = time.Second
	}
	log.Printf("資訊：ScanService 初始化完成（節流間隔: %s）。\n", interval)
	return &ScanService{
		cfg:       cfg,
		db:        db,
		records:   records,
		processor: processor,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// yesterdayBeijing 回傳北京時區的昨日日期字串 "YYYY-MM-DD"。
// 記錄庫的時間欄位以北京時間填寫，掃描窗口同樣以北京時間切日。
func yesterdayBeijing(now time.Time) string {
	beijing := time.FixedZone("CST", 8*60*60)
	return now.In(beijing).AddDate(0, 0, -1).Format("2006-01-02")
}

// Scan 掃描記錄庫：Video ID 已填、狀態欄位為空且時間落在昨日的記錄入列為待處理工作。
// 入列成功的記錄立即標記「是」，下次掃描的空狀態條件就不會再撈到它；
// 資料庫的 (record_id, video_id) 唯一鍵是第二道防線。回傳本次新入列的工作數。
func (s *ScanService) Scan(ctx context.Context) (int, error) {
	token, err := s.records.TenantAccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("取得存取權杖失敗: %w", err)
	}

	bcfg := s.cfg.Bitable
	if err := s.records.EnsureField(ctx, token, bcfg.StatusField, bitable.FieldTypeText); err != nil {
		log.Printf("警告：[ScanService] 確保狀態欄位 '%s' 失敗，繼續掃描: %v\n", bcfg.StatusField, err)
	}
	conditions := []bitable.SearchCondition{
		{FieldName: bcfg.VideoIDField, Operator: "isNotEmpty", Value: []string{}},
		{FieldName: bcfg.StatusField, Operator: "isEmpty", Value: []string{}},
	}
	records, err := s.records.SearchRecords(ctx, token, conditions)
	if err != nil {
		return 0, fmt.Errorf("掃描記錄庫失敗: %w", err)
	}
	log.Printf("資訊：[ScanService] 掃描到 %d 筆候選記錄。\n", len(records))

	targetDate := yesterdayBeijing(time.Now())
	enqueued := 0
	for _, rec := range records {
		videoID := bitable.ExtractText(rec.Fields[bcfg.VideoIDField])
		if videoID == "" {
			continue
		}
		recordDate := bitable.ParseBeijingDateOnly(bitable.ExtractText(rec.Fields[bcfg.TimeField]))
		if recordDate != targetDate {
			continue
		}
		if _, err := s.db.FindOrCreateJob(&models.Job{RecordID: rec.RecordID, VideoID: videoID, Status: models.StatusPending}); err != nil {
			log.Printf("錯誤：[ScanService] 工作入列失敗 (Record: %s): %v\n", rec.RecordID, err)
			continue
		}
		mark := map[string]interface{}{bcfg.StatusField: statusMarkDone}
		if err := s.records.UpdateRecord(ctx, token, rec.RecordID, mark); err != nil {
			log.Printf("警告：[ScanService] 標記已發起分析失敗 (Record: %s)，下次掃描會重新入列: %v\n", rec.RecordID, err)
		}
		enqueued++
	}
	log.Printf("資訊：[ScanService] 掃描完成，入列 %d 個工作（目標日期: %s）。\n", enqueued, targetDate)
	return enqueued, nil
}

// ProcessPending 取出待處理工作並串行處理，每件之間依節流間隔等待。
func (s *ScanService) ProcessPending(ctx context.Context) error {
	jobs, err := s.db.GetPendingJobs(pendingBatchLimit)
	if err != nil {
		return fmt.Errorf("查詢待處理工作失敗: %w", err)
	}
	if len(jobs) == 0 {
		log.Println("資訊：[ScanService] 沒有待處理工作。")
		return nil
	}
	log.Printf("資訊：[ScanService] 開始處理 %d 個待處理工作。\n", len(jobs))
	for _, j := range jobs {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("等待節流間隔被中斷: %w", err)
		}
		result := s.processor.ProcessJob(ctx, models.ScoreJob{RecordID: j.RecordID, VideoID: j.VideoID})
		if result.Error != "" {
			log.Printf("警告：[ScanService] 工作處理結束 (Record: %s, Status: %s): %s\n", j.RecordID, result.Status, result.Error)
		}
	}
	return nil
}

// Run 先掃描入列再處理，供排程任務與手動觸發共用。
func (s *ScanService) Run(ctx context.Context) error {
	if _, err := s.Scan(ctx); err != nil {
		return err
	}
	return s.ProcessPending(ctx)
}
