package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/clients/bitable"
	"videoscore-admin/internal/models"
)

type fakeProcessor struct {
	processed []models.ScoreJob
}

func (f *fakeProcessor) ProcessJob(ctx context.Context, job models.ScoreJob) models.JobResult {
	f.processed = append(f.processed, job)
	return models.JobResult{Status: models.StatusCompleted}
}

func TestYesterdayBeijing(t *testing.T) {
	// UTC 2024-01-15 18:00 是北京時間 2024-01-16 02:00，昨日即 01-15
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", yesterdayBeijing(now))

	// UTC 2024-01-15 10:00 是北京時間同日 18:00，昨日即 01-14
	now = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-14", yesterdayBeijing(now))

	// 跨月與跨年
	now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-29", yesterdayBeijing(now))
	now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-12-31", yesterdayBeijing(now))
}

func TestScanEnqueuesYesterdayRecords(t *testing.T) {
	target := yesterdayBeijing(time.Now())
	targetDay, err := time.Parse("2006-01-02", target)
	require.NoError(t, err)
	yesterdaySlash := targetDay.Format("2006/01/02") + " 10:30:00"
	todaySlash := targetDay.AddDate(0, 0, 1).Format("2006/01/02") + " 09:00:00"

	db := newFakeDBStore()
	records := newFakeRecordStore()
	records.searchItems = []bitable.Record{
		{RecordID: "rec1", Fields: map[string]interface{}{"Video ID": "v1", "Time": yesterdaySlash}},
		{RecordID: "rec2", Fields: map[string]interface{}{"Video ID": "v2", "Time": todaySlash}},
		{RecordID: "rec3", Fields: map[string]interface{}{"Video ID": "", "Time": yesterdaySlash}},
		{RecordID: "rec4", Fields: map[string]interface{}{"Video ID": "v4", "Time": yesterdaySlash}},
	}

	cfg := testConfig()
	cfg.Bitable.VideoIDField = "Video ID"
	cfg.Bitable.TimeField = "Time"
	svc, err := NewScanService(cfg, db, records, &fakeProcessor{})
	require.NoError(t, err)

	enqueued, err := svc.Scan(context.Background())
	require.NoError(t, err)
	// rec2 非昨日、rec3 缺 Video ID，僅 rec1 與 rec4 入列
	assert.Equal(t, 2, enqueued)
	assert.Contains(t, db.jobs, "rec1/v1")
	assert.Contains(t, db.jobs, "rec4/v4")
	assert.NotContains(t, db.jobs, "rec2/v2")

	// 入列後立即標記，避免下次掃描重複撈到
	assert.Equal(t, "是", records.updates["rec1"]["是否发起分析"])
	assert.Equal(t, "是", records.updates["rec4"]["是否发起分析"])
	assert.NotContains(t, records.updates, "rec2")
}

func TestScanEnqueueIdempotent(t *testing.T) {
	target := yesterdayBeijing(time.Now())
	targetDay, err := time.Parse("2006-01-02", target)
	require.NoError(t, err)

	db := newFakeDBStore()
	records := newFakeRecordStore()
	records.searchItems = []bitable.Record{
		{RecordID: "rec1", Fields: map[string]interface{}{"Video ID": "v1", "Time": targetDay.Format("2006/01/02")}},
	}

	cfg := testConfig()
	cfg.Bitable.VideoIDField = "Video ID"
	cfg.Bitable.TimeField = "Time"
	svc, err := NewScanService(cfg, db, records, &fakeProcessor{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		enqueued, err := svc.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, enqueued)
	}
	// 重複掃描不重複建立工作
	assert.Len(t, db.jobs, 1)
}

func TestProcessPendingDrainsQueue(t *testing.T) {
	db := newFakeDBStore()
	db.pending = []models.Job{
		{ID: 1, RecordID: "rec1", VideoID: "v1", Status: models.StatusPending},
		{ID: 2, RecordID: "rec2", VideoID: "v2", Status: models.StatusPending},
	}
	processor := &fakeProcessor{}
	svc, err := NewScanService(testConfig(), db, newFakeRecordStore(), processor)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessPending(context.Background()))
	require.Len(t, processor.processed, 2)
	assert.Equal(t, "rec1", processor.processed[0].RecordID)
	assert.Equal(t, "v2", processor.processed[1].VideoID)
}

func TestProcessPendingEmptyQueue(t *testing.T) {
	processor := &fakeProcessor{}
	svc, err := NewScanService(testConfig(), newFakeDBStore(), newFakeRecordStore(), processor)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessPending(context.Background()))
	assert.Empty(t, processor.processed)
}

func TestProcessPendingCancelledContext(t *testing.T) {
	db := newFakeDBStore()
	db.pending = []models.Job{{ID: 1, RecordID: "rec1", VideoID: "v1", Status: models.StatusPending}}
	svc, err := NewScanService(testConfig(), db, newFakeRecordStore(), &fakeProcessor{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, svc.ProcessPending(ctx))
}
