package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoscore-admin/internal/models"
)

type fakeJobReader struct {
	job *models.Job
	err error
}

func (f *fakeJobReader) GetJobByID(jobID int64) (*models.Job, error) {
	return f.job, f.err
}

func TestJobHandlerFound(t *testing.T) {
	job := &models.Job{ID: 7, RecordID: "rec7", VideoID: "v7", Status: models.StatusCompleted, EnqueuedAt: time.Now()}
	h := NewJobHandler(&fakeJobReader{job: job})

	req := httptest.NewRequest(http.MethodGet, "/jobs?id=7", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"record_id":"rec7"`)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestJobHandlerNotFound(t *testing.T) {
	h := NewJobHandler(&fakeJobReader{})

	req := httptest.NewRequest(http.MethodGet, "/jobs?id=99", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobHandlerBadRequest(t *testing.T) {
	h := NewJobHandler(&fakeJobReader{})

	for _, target := range []string{"/jobs", "/jobs?id=abc", "/jobs?id=0", "/jobs?id=-3"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestJobHandlerQueryError(t *testing.T) {
	h := NewJobHandler(&fakeJobReader{err: fmt.Errorf("連線中斷")})

	req := httptest.NewRequest(http.MethodGet, "/jobs?id=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJobHandlerMethodNotAllowed(t *testing.T) {
	h := NewJobHandler(&fakeJobReader{})

	req := httptest.NewRequest(http.MethodPost, "/jobs?id=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
