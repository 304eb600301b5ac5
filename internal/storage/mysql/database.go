package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"videoscore-admin/internal/config"
	"videoscore-admin/internal/models"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore 結構
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(dbCfg config.DatabaseConfig) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.DBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("資訊：成功連線到 MySQL 資料庫。")
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		log.Println("資訊：正在關閉 MySQL 資料庫連線...")
		return s.db.Close()
	}
	return nil
}

// FindOrCreateJob 依 (record_id, video_id) 查找工作記錄，不存在則以 pending 狀態新增。
func (s *MySQLStore) FindOrCreateJob(job *models.Job) (int64, error) {
	if job == nil {
		return 0, fmt.Errorf("傳入的 job 物件不得為 nil")
	}
	if job.RecordID == "" || job.VideoID == "" {
		return 0, fmt.Errorf("job 物件的 RecordID 與 VideoID 皆必須提供")
	}
	var jobID int64
	query := "SELECT id FROM jobs WHERE record_id = ? AND video_id = ?"
	queryErr := s.db.QueryRow(query, job.RecordID, job.VideoID).Scan(&jobID)
	if queryErr == sql.ErrNoRows {
		log.Printf("資訊：資料庫中未找到工作記錄 (Record: %s, Video: %s)，正在新增...\n", job.RecordID, job.VideoID)
		status := job.Status
		if status == "" {
			status = models.StatusPending
		}
		enqueuedAt := job.EnqueuedAt
		if enqueuedAt.IsZero() {
			enqueuedAt = time.Now()
		}
		insertQuery := "INSERT INTO jobs (record_id, video_id, status, enqueued_at) VALUES (?, ?, ?, ?)"
		res, insertErr := s.db.Exec(insertQuery, job.RecordID, job.VideoID, status, enqueuedAt)
		if insertErr != nil {
			return 0, fmt.Errorf("插入新工作記錄失敗 (Record: %s, Video: %s): %w", job.RecordID, job.VideoID, insertErr)
		}
		jobID, insertErr = res.LastInsertId()
		if insertErr != nil {
			return 0, fmt.Errorf("獲取新插入工作的 ID 失敗 (Record: %s, Video: %s): %w", job.RecordID, job.VideoID, insertErr)
		}
		log.Printf("資訊：新增工作記錄成功，ID: %d (Record: %s, Video: %s)\n", jobID, job.RecordID, job.VideoID)
		return jobID, nil
	} else if queryErr != nil {
		return 0, fmt.Errorf("查找工作記錄失敗 (Record: %s, Video: %s): %w", job.RecordID, job.VideoID, queryErr)
	}
	return jobID, nil
}

// UpdateJobStatus 更新工作狀態與錯誤訊息；完成或失敗時一併寫入處理時間。
func (s *MySQLStore) UpdateJobStatus(jobID int64, status models.JobStatus, errorMessage sql.NullString) error {
	if jobID == 0 {
		return fmt.Errorf("無效的 JobID")
	}
	query := "UPDATE jobs SET status = ?, error_message = ?, processed_at = ? WHERE id = ?"
	processedAt := sql.NullTime{}
	if status != models.StatusPending && status != models.StatusProcessing {
		processedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	_, err := s.db.Exec(query, status, errorMessage, processedAt, jobID)
	if err != nil {
		return fmt.Errorf("更新工作狀態失敗 (JobID: %d, Status: %s): %w", jobID, status, err)
	}
	log.Printf("資訊：工作狀態成功更新 (JobID: %d, Status: %s)\n", jobID, status)
	return nil
}

// GetPendingJobs 依入列時間遞增取出待處理工作。
func (s *MySQLStore) GetPendingJobs(limit int) ([]models.Job, error) {
	query := "SELECT id, record_id, video_id, status, error_message, enqueued_at, processed_at FROM jobs WHERE status = ? ORDER BY enqueued_at ASC LIMIT ?"
	rows, err := s.db.Query(query, models.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢待處理工作失敗: %w", err)
	}
	defer rows.Close()
	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		var errMsgSQL sql.NullString
		if err := rows.Scan(&j.ID, &j.RecordID, &j.VideoID, &j.Status, &errMsgSQL, &j.EnqueuedAt, &j.ProcessedAt); err != nil {
			log.Printf("錯誤：掃描待處理工作查詢結果行失敗: %v", err)
			continue
		}
		j.ErrorMessage = models.JsonNullString{NullString: errMsgSQL}
		jobs = append(jobs, j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("處理待處理工作查詢結果集時發生錯誤: %w", err)
	}
	log.Printf("資訊：查詢到 %d 個待處理工作。\n", len(jobs))
	return jobs, nil
}

// GetJobByID 依主鍵查詢工作記錄；不存在時回傳 (nil, nil)。
func (s *MySQLStore) GetJobByID(jobID int64) (*models.Job, error) {
	if jobID == 0 {
		return nil, fmt.Errorf("無效的 JobID")
	}
	query := "SELECT id, record_id, video_id, status, error_message, enqueued_at, processed_at FROM jobs WHERE id = ?"
	row := s.db.QueryRow(query, jobID)
	var j models.Job
	var errMsgSQL sql.NullString
	err := row.Scan(&j.ID, &j.RecordID, &j.VideoID, &j.Status, &errMsgSQL, &j.EnqueuedAt, &j.ProcessedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("查詢 JobID %d 失敗: %w", jobID, err)
	}
	j.ErrorMessage = models.JsonNullString{NullString: errMsgSQL}
	return &j, nil
}

// SaveScoreResult 以 upsert 保存一次評分的完整稽核內容。
// 校正分數、質量評估與評分軌跡以 JSON 存放，保留完整結構供事後查核。
func (s *MySQLStore) SaveScoreResult(result *models.ScoreResult) error {
	if result == nil || result.JobID == 0 {
		return fmt.Errorf("無效的評分結果或 JobID 為空")
	}
	correctedJSON, err := json.Marshal(result.Corrected)
	if err != nil {
		return fmt.Errorf("序列化校正分數失敗 (JobID: %d): %w", result.JobID, err)
	}
	qualityJSON, err := json.Marshal(result.Quality)
	if err != nil {
		return fmt.Errorf("序列化質量評估失敗 (JobID: %d): %w", result.JobID, err)
	}
	traceJSON, err := json.Marshal(result.Trace)
	if err != nil {
		return fmt.Errorf("序列化評分軌跡失敗 (JobID: %d): %w", result.JobID, err)
	}

	query := `
		INSERT INTO score_results (
			job_id, payload, corrected, quality, trace,
			error_message, prompt_version, model_tier, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload), corrected = VALUES(corrected),
			quality = VALUES(quality), trace = VALUES(trace),
			error_message = VALUES(error_message), prompt_version = VALUES(prompt_version),
			model_tier = VALUES(model_tier), updated_at = VALUES(updated_at);`

	toSQLNullString := func(jns *models.JsonNullString) sql.NullString {
		if jns != nil {
			return jns.NullString
		}
		return sql.NullString{Valid: false}
	}

	var promptVersion sql.NullString
	if result.PromptVersion != "" {
		promptVersion = sql.NullString{String: result.PromptVersion, Valid: true}
	}
	var modelTier sql.NullString
	if result.ModelTier != "" {
		modelTier = sql.NullString{String: result.ModelTier, Valid: true}
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := result.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.Exec(query,
		result.JobID,
		result.PayloadJSON.NullString,
		correctedJSON,
		qualityJSON,
		traceJSON,
		toSQLNullString(result.ErrorMessage),
		promptVersion,
		modelTier,
		createdAt,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("儲存評分結果到資料庫失敗 (JobID: %d): %w", result.JobID, err)
	}
	log.Printf("資訊：評分結果成功儲存到資料庫 (JobID: %d, PromptVersion: %s)\n", result.JobID, result.PromptVersion)
	return nil
}
