package services

import (
	"context"
	"database/sql"

	"videoscore-admin/internal/clients/bitable"
	"videoscore-admin/internal/clients/gemini"
	"videoscore-admin/internal/models"
)

// InferenceClient 介面定義了影片推論操作
type InferenceClient interface {
	AnalyzeVideo(ctx context.Context, videoData []byte, mimeType, prompt string, tier gemini.ModelTier) gemini.AnalysisOutcome
	ModelName(tier gemini.ModelTier) string
}

// RecordStore 介面定義了外部記錄庫（多維表格）操作
type RecordStore interface {
	TenantAccessToken(ctx context.Context) (string, error)
	GetRecord(ctx context.Context, token, recordID string) (*bitable.Record, error)
	UpdateRecord(ctx context.Context, token, recordID string, fields map[string]interface{}) error
	SearchRecords(ctx context.Context, token string, conditions []bitable.SearchCondition) ([]bitable.Record, error)
	EnsureField(ctx context.Context, token, fieldName string, fieldType int) error
	GetOrCreateMultiSelectField(ctx context.Context, token, primaryName, altName string) (bitable.FieldTarget, error)
	EnsureMultiSelectOptions(ctx context.Context, token, fieldID, fieldName string, optionNames []string) error
}

// VideoSource 介面定義了影片下載操作
type VideoSource interface {
	FetchVideo(ctx context.Context, videoID string) ([]byte, error)
}

// DBStore 介面定義了本地稽核資料庫操作
type DBStore interface {
	FindOrCreateJob(job *models.Job) (int64, error)
	UpdateJobStatus(jobID int64, status models.JobStatus, errorMessage sql.NullString) error
	GetPendingJobs(limit int) ([]models.Job, error)
	SaveScoreResult(result *models.ScoreResult) error
}
