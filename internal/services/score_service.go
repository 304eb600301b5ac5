package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"videoscore-admin/internal/clients/bitable"
	"videoscore-admin/internal/clients/gemini"
	"videoscore-admin/internal/config"
	"videoscore-admin/internal/format"
	"videoscore-admin/internal/models"
	"videoscore-admin/internal/scoring"
)

// 回寫到記錄庫狀態欄位的處理結果字串。
const (
	statusMarkDone           = "是"
	statusDownloadFailPrefix = "下载失败: "
	statusAnalysisFailPrefix = "分析失败: "
)

const videoMIMEType = "video/mp4"

// ScoreService 串起單支影片的完整處理流程：
// 下載、兩階段推論、評分管線、報告渲染與記錄回寫，並在本地資料庫留下稽核記錄。
type ScoreService struct {
	cfg       *config.Config
	db        DBStore
	records   RecordStore
	source    VideoSource
	inference InferenceClient
}

// NewScoreService 建立 ScoreService 實例
func NewScoreService(
	cfg *config.Config,
	db DBStore,
	records RecordStore,
	source VideoSource,
	inference InferenceClient,
) (*ScoreService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ScoreService：設定不得為空")
	}
	if db == nil {
		return nil, fmt.Errorf("ScoreService：DBStore 不得為空")
	}
	if records == nil {
		return nil, fmt.Errorf("ScoreService：RecordStore 不得為空")
	}
	if source == nil {
		return nil, fmt.Errorf("ScoreService：VideoSource 不得為空")
	}
	if inference == nil {
		return nil, fmt.Errorf("ScoreService：推論客戶端不得為空")
	}
	log.Println("資訊：ScoreService 初始化完成。")
	return &ScoreService{
		cfg:       cfg,
		db:        db,
		records:   records,
		source:    source,
		inference: inference,
	}, nil
}

// EnsureFields 確保記錄庫具備回寫所需的欄位；標籤欄位為多選型，缺少時建立。
func (s *ScoreService) EnsureFields(ctx context.Context, token string) error {
	bcfg := s.cfg.Bitable
	if err := s.records.EnsureField(ctx, token, bcfg.ScoreField, bitable.FieldTypeNumber); err != nil {
		return fmt.Errorf("確保分數欄位 '%s' 失敗: %w", bcfg.ScoreField, err)
	}
	if err := s.records.EnsureField(ctx, token, bcfg.ReportField, bitable.FieldTypeText); err != nil {
		return fmt.Errorf("確保報告欄位 '%s' 失敗: %w", bcfg.ReportField, err)
	}
	if _, err := s.records.GetOrCreateMultiSelectField(ctx, token, bcfg.TagField, bcfg.TagFieldAlt); err != nil {
		return fmt.Errorf("確保標籤欄位 '%s' 失敗: %w", bcfg.TagField, err)
	}
	return nil
}

// ProcessJob 處理單支影片的評分工作。
// 缺少必要輸入時視為上游 no-op，不寫入任何記錄；其餘失敗依階段回寫對應的狀態字串。
func (s *ScoreService) ProcessJob(ctx context.Context, job models.ScoreJob) models.JobResult {
	log.Printf("資訊：[ScoreService] 開始處理工作 (Record: %s, Video: %s, DryRun: %t)\n", job.RecordID, job.VideoID, job.DryRun)

	if job.RecordID == "" || job.VideoID == "" {
		log.Printf("警告：[ScoreService] 工作缺少 RecordID 或 VideoID，跳過處理。\n")
		return models.JobResult{Status: models.StatusSkipped, Error: "缺少 record_id 或 video_id"}
	}

	token := job.AccessToken
	if token == "" {
		var err error
		token, err = s.records.TenantAccessToken(ctx)
		if err != nil {
			log.Printf("錯誤：[ScoreService] 取得存取權杖失敗: %v\n", err)
			return models.JobResult{Status: models.StatusSkipped, Error: fmt.Sprintf("取得存取權杖失敗: %v", err)}
		}
	}

	var jobID int64
	if !job.DryRun {
		var err error
		jobID, err = s.db.FindOrCreateJob(&models.Job{RecordID: job.RecordID, VideoID: job.VideoID, Status: models.StatusProcessing})
		if err != nil {
			log.Printf("警告：[ScoreService] 建立稽核工作記錄失敗，繼續處理: %v\n", err)
		} else if err := s.db.UpdateJobStatus(jobID, models.StatusProcessing, sql.NullString{}); err != nil {
			log.Printf("警告：[ScoreService] 更新稽核工作狀態失敗: %v\n", err)
		}
	}

	videoData, err := s.source.FetchVideo(ctx, job.VideoID)
	if err != nil {
		return s.failJob(ctx, token, job, jobID, models.StatusDownloadFailed, statusDownloadFailPrefix+err.Error())
	}
	if minBytes := s.cfg.VideoSource.MinBytes; minBytes > 0 && len(videoData) < minBytes {
		msg := fmt.Sprintf("影片過小 (%d bytes)，可能是佔位或下載不完整", len(videoData))
		return s.failJob(ctx, token, job, jobID, models.StatusDownloadFailed, statusDownloadFailPrefix+msg)
	}
	if maxBytes := s.cfg.VideoSource.MaxBytes; maxBytes > 0 && len(videoData) > maxBytes {
		msg := fmt.Sprintf("影片過大 (%d bytes)，超過推論上限", len(videoData))
		return s.failJob(ctx, token, job, jobID, models.StatusDownloadFailed, statusDownloadFailPrefix+msg)
	}
	log.Printf("資訊：[ScoreService] 影片下載完成 (Video: %s, %d bytes)\n", job.VideoID, len(videoData))

	promptA, versionA, okA := s.cfg.Prompts.StageA.Current()
	if !okA {
		return s.failJob(ctx, token, job, jobID, models.StatusAnalysisFailed, statusAnalysisFailPrefix+"未設定第一階段提示詞")
	}

	outcomeA, tierA := s.runStage(ctx, videoData, promptA)
	if outcomeA.Kind != gemini.OutcomeSuccess || outcomeA.Payload == nil {
		msg := "第一階段推論失敗"
		if outcomeA.Err != nil {
			msg = fmt.Sprintf("第一階段推論失敗: %v", outcomeA.Err)
		}
		return s.failJob(ctx, token, job, jobID, models.StatusAnalysisFailed, statusAnalysisFailPrefix+msg)
	}
	payload := outcomeA.Payload
	modelTier := string(tierA)

	// 第二階段失敗只降級不中止：支柱與紅旗缺席時評分管線自會按缺席處理。
	if promptB, _, okB := s.cfg.Prompts.StageB.Current(); okB {
		outcomeB, _ := s.runStage(ctx, videoData, promptB)
		if outcomeB.Kind == gemini.OutcomeSuccess && outcomeB.Payload != nil {
			payload.Merge(outcomeB.Payload)
		} else {
			log.Printf("警告：[ScoreService] 第二階段推論失敗，以第一階段結果繼續 (Record: %s): %v\n", job.RecordID, outcomeB.Err)
		}
	}

	result := scoring.Score(payload)
	report := format.Report(payload, result.Corrected, result.Quality)
	tags := format.CleanTags(payload.Tags)

	if !job.DryRun {
		if err := s.writeBack(ctx, token, job.RecordID, result, report, tags); err != nil {
			log.Printf("錯誤：[ScoreService] 記錄回寫失敗 (Record: %s): %v\n", job.RecordID, err)
			s.auditResult(jobID, payload, result, versionA, modelTier, err.Error())
			s.updateAudit(jobID, models.StatusWriteFailed, err.Error())
			return models.JobResult{Status: models.StatusWriteFailed, Error: err.Error(), Final: result.Corrected.FinalScore}
		}
		s.auditResult(jobID, payload, result, versionA, modelTier, "")
		s.updateAudit(jobID, models.StatusCompleted, "")
	}

	log.Printf("資訊：[ScoreService] 工作處理完成 (Record: %s, 質量指數: %d, 評級: %s)\n", job.RecordID, result.Quality.QualityIndex, result.Quality.QualityRating)

	jr := models.JobResult{
		Status:  models.StatusCompleted,
		Final:   result.Corrected.FinalScore,
		Quality: &result.Quality.QualityIndex,
	}
	if job.ReturnReport || job.DryRun {
		jr.Report = report
	}
	return jr
}

// runStage 執行單一階段的推論：
// 主力模型空回應先原地重試一次，仍失敗才降級到備援模型。
// 解析失敗不重試，同一輸入重跑大機率得到同樣的壞輸出。
func (s *ScoreService) runStage(ctx context.Context, videoData []byte, prompt string) (gemini.AnalysisOutcome, gemini.ModelTier) {
	outcome := s.analyzeWithTimeout(ctx, videoData, prompt, gemini.TierPrimary)
	if outcome.Kind == gemini.OutcomeSuccess || outcome.Kind == gemini.OutcomeParseError {
		return outcome, gemini.TierPrimary
	}

	log.Printf("警告：[ScoreService] 主力模型 %s 回應異常，原地重試一次。\n", s.inference.ModelName(gemini.TierPrimary))
	outcome = s.analyzeWithTimeout(ctx, videoData, prompt, gemini.TierPrimary)
	if outcome.Kind == gemini.OutcomeSuccess || outcome.Kind == gemini.OutcomeParseError {
		return outcome, gemini.TierPrimary
	}

	log.Printf("警告：[ScoreService] 主力模型重試仍失敗，降級到備援模型 %s。\n", s.inference.ModelName(gemini.TierFallback))
	outcome = s.analyzeWithTimeout(ctx, videoData, prompt, gemini.TierFallback)
	return outcome, gemini.TierFallback
}

func (s *ScoreService) analyzeWithTimeout(ctx context.Context, videoData []byte, prompt string, tier gemini.ModelTier) gemini.AnalysisOutcome {
	timeout := s.cfg.GeminiClient.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.inference.AnalyzeVideo(callCtx, videoData, videoMIMEType, prompt, tier)
}

// writeBack 把評分結果寫回記錄庫：分數、報告與標籤一次更新。
// 標籤先確保多選欄位與選項存在，選項建立後由客戶端等待傳播再寫值；
// 多選寫入失敗時改以 " / " 連接的純文字重寫一次。
func (s *ScoreService) writeBack(ctx context.Context, token, recordID string, result scoring.Result, report string, tags []string) error {
	bcfg := s.cfg.Bitable

	fields := map[string]interface{}{
		bcfg.ReportField: report,
		bcfg.StatusField: statusMarkDone,
	}
	if result.Corrected.FinalScore != nil {
		fields[bcfg.ScoreField] = *result.Corrected.FinalScore
	}

	var tagFieldName string
	if len(tags) > 0 {
		target, err := s.records.GetOrCreateMultiSelectField(ctx, token, bcfg.TagField, bcfg.TagFieldAlt)
		if err != nil {
			return fmt.Errorf("確保標籤欄位失敗: %w", err)
		}
		if err := s.records.EnsureMultiSelectOptions(ctx, token, target.FieldID, target.FieldName, tags); err != nil {
			return fmt.Errorf("確保標籤選項失敗: %w", err)
		}
		tagFieldName = target.FieldName
		fields[tagFieldName] = tags
	}

	if err := s.records.UpdateRecord(ctx, token, recordID, fields); err != nil {
		if tagFieldName == "" {
			return fmt.Errorf("更新記錄失敗: %w", err)
		}
		log.Printf("警告：[ScoreService] 多選標籤寫入失敗，改以純文字重寫 (Record: %s): %v\n", recordID, err)
		fields[tagFieldName] = strings.Join(tags, " / ")
		if retryErr := s.records.UpdateRecord(ctx, token, recordID, fields); retryErr != nil {
			return fmt.Errorf("更新記錄失敗: %w", retryErr)
		}
	}
	return nil
}

// failJob 統一處理失敗路徑：狀態字串回寫到記錄庫，稽核狀態落到本地資料庫。
func (s *ScoreService) failJob(ctx context.Context, token string, job models.ScoreJob, jobID int64, status models.JobStatus, message string) models.JobResult {
	log.Printf("錯誤：[ScoreService] 工作失敗 (Record: %s, Status: %s): %s\n", job.RecordID, status, message)
	if !job.DryRun {
		fields := map[string]interface{}{s.cfg.Bitable.StatusField: message}
		if err := s.records.UpdateRecord(ctx, token, job.RecordID, fields); err != nil {
			log.Printf("錯誤：[ScoreService] 回寫失敗狀態到記錄庫失敗 (Record: %s): %v\n", job.RecordID, err)
		}
		s.updateAudit(jobID, status, message)
	}
	return models.JobResult{Status: status, Error: message}
}

func (s *ScoreService) updateAudit(jobID int64, status models.JobStatus, message string) {
	if jobID == 0 {
		return
	}
	errMsg := sql.NullString{}
	if message != "" {
		errMsg = sql.NullString{String: message, Valid: true}
	}
	if err := s.db.UpdateJobStatus(jobID, status, errMsg); err != nil {
		log.Printf("警告：[ScoreService] 更新稽核工作狀態失敗 (JobID: %d): %v\n", jobID, err)
	}
}

// auditResult 把完整評分內容落到本地資料庫，寫入失敗只記日誌不影響主流程。
func (s *ScoreService) auditResult(jobID int64, payload *models.AnalysisPayload, result scoring.Result, promptVersion, modelTier, errorMessage string) {
	if jobID == 0 {
		return
	}
	payloadJSON := models.JsonNullString{}
	if raw, err := json.Marshal(payload); err == nil {
		payloadJSON = models.JsonNullString{NullString: sql.NullString{String: string(raw), Valid: true}}
	}
	sr := &models.ScoreResult{
		JobID:         jobID,
		PayloadJSON:   payloadJSON,
		Corrected:     result.Corrected,
		Quality:       result.Quality,
		Trace:         result.Trace,
		PromptVersion: promptVersion,
		ModelTier:     modelTier,
	}
	if errorMessage != "" {
		sr.ErrorMessage = &models.JsonNullString{NullString: sql.NullString{String: errorMessage, Valid: true}}
	}
	if err := s.db.SaveScoreResult(sr); err != nil {
		log.Printf("警告：[ScoreService] 保存評分稽核記錄失敗 (JobID: %d): %v\n", jobID, err)
	}
}
