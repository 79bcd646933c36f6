package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/grading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(url string, retries int) *ScannerClient {
	c := NewScannerClient(config.ScannerConfig{URL: url, Timeout: time.Second, MaxRetries: retries})
	c.backoff = time.Millisecond
	return c
}

func TestScannerClient_RetriesThenSucceeds(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
		got   ScanTemplate
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/scan", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"studentId":"S-1","examId":"E-1","score":"88.5"}`))
	}))
	defer srv.Close()

	c := newTestScanner(srv.URL, 3)
	rec, err := c.Scan(context.Background(), ScanTemplate{ExamID: "E-1", Title: "Physics", TotalQuestions: 40, ChoiceCount: 4})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 40, got.TotalQuestions)
	assert.Equal(t, 88.5, grading.Normalize("scan_results", rec).Score)
}

func TestScannerClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestScanner(srv.URL, 2).Scan(context.Background(), ScanTemplate{})
	assert.True(t, errors.Is(err, ErrScannerUnavailable))
}

func TestScannerClient_RejectsWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad template", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestScanner(srv.URL, 5).Scan(context.Background(), ScanTemplate{})
	var se *ScannerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, 1, calls)
}

func TestScannerClient_NotConfigured(t *testing.T) {
	_, err := newTestScanner("", 3).Scan(context.Background(), ScanTemplate{})
	assert.True(t, errors.Is(err, ErrScannerNotConfigured))
}

type memoryScanStore struct {
	saved []grading.Record
}

func (m *memoryScanStore) SaveScan(ctx context.Context, rec grading.Record) (string, error) {
	m.saved = append(m.saved, rec)
	return "scan-1", nil
}

func TestScanService_FillsExamID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"studentId":"S-7","correctAnswers":3,"totalQuestions":4}`))
	}))
	defer srv.Close()

	store := &memoryScanStore{}
	svc := NewScanService(newTestScanner(srv.URL, 1), store, nil)

	out, err := svc.Scan(context.Background(), ScanTemplate{ExamID: "E-9", ClassID: "C-1"})
	require.NoError(t, err)

	assert.Equal(t, "scan-1", out.ID)
	assert.Equal(t, "E-9", out.Normalized.ExamID)
	assert.Equal(t, "C-1", out.Normalized.ClassID)
	assert.Equal(t, 75.0, out.Normalized.Score)
	assert.NotContains(t, out.Raw, "examId")
	require.Len(t, store.saved, 1)
	assert.Equal(t, "E-9", store.saved[0]["examId"])
}

func TestPrepareScanTemplate_Defaults(t *testing.T) {
	got, err := PrepareScanTemplate(ScanTemplate{Title: "Quiz", TotalQuestions: 10,
		AnswerKey: []ScanAnswer{{Number: 3, CorrectAnswer: "D"}}})
	require.NoError(t, err)
	assert.Equal(t, DefaultChoiceCount, got.ChoiceCount)
	assert.Equal(t, DefaultStudentIDLength, got.StudentIDLength)

	_, err = PrepareScanTemplate(ScanTemplate{Title: "Quiz", TotalQuestions: 10,
		AnswerKey: []ScanAnswer{{Number: 11, CorrectAnswer: "A"}}})
	assert.True(t, IsInputError(err))

	_, err = PrepareScanTemplate(ScanTemplate{Title: "Quiz", TotalQuestions: 10, StudentIDLength: 16})
	assert.True(t, IsInputError(err))
}
