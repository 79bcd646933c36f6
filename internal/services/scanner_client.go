package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rosec/backend/internal/config"
	"github.com/rosec/backend/internal/grading"
	"github.com/rosec/backend/internal/models"
	"github.com/rosec/backend/internal/sheet"
)

var (
	ErrScannerNotConfigured = errors.New("scanner not configured")
	ErrScannerUnavailable   = errors.New("scanner unavailable")
)

// ScannerError is a non-retryable rejection from the device.
type ScannerError struct {
	Status int
	Body   string
}

func (e *ScannerError) Error() string {
	return fmt.Sprintf("scanner returned %d: %s", e.Status, e.Body)
}

// ScanPointsRange and ScanAnswer mirror the device's wire format.
type ScanPointsRange struct {
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Points float64 `json:"points"`
}

type ScanAnswer struct {
	Number        int    `json:"number"`
	CorrectAnswer string `json:"correctAnswer"`
}

// ScanTemplate is the exam description the device reads a sheet against.
type ScanTemplate struct {
	ExamID          string            `json:"examId,omitempty"`
	Title           string            `json:"title"`
	TotalQuestions  int               `json:"totalQuestions"`
	ChoiceCount     int               `json:"choiceCount"`
	StudentIDLength int               `json:"studentIdLength"`
	SubjectIDLength int               `json:"subjectIdLength"`
	PointsRanges    []ScanPointsRange `json:"pointsRanges"`
	AnswerKey       []ScanAnswer      `json:"answerKey"`
	ClassID         string            `json:"classId,omitempty"`
	SubjectID       string            `json:"subjectId,omitempty"`
}

// ScanTemplateFromExam converts a stored exam into the device format.
func ScanTemplateFromExam(exam *models.ExamTemplate) ScanTemplate {
	t := ScanTemplate{
		ExamID:          exam.ID.String(),
		Title:           exam.Title,
		TotalQuestions:  exam.TotalQuestions,
		ChoiceCount:     exam.ChoiceCount,
		StudentIDLength: exam.StudentIDLength,
		SubjectIDLength: exam.SubjectIDLength,
		PointsRanges:    make([]ScanPointsRange, 0, len(exam.PointsRanges)),
		AnswerKey:       make([]ScanAnswer, 0, len(exam.AnswerKey)),
	}
	for _, r := range exam.PointsRanges {
		t.PointsRanges = append(t.PointsRanges, ScanPointsRange{Start: r.Start, End: r.End, Points: r.Points})
	}
	for _, a := range exam.AnswerKey {
		t.AnswerKey = append(t.AnswerKey, ScanAnswer{Number: a.Number, CorrectAnswer: a.CorrectAnswer})
	}
	if exam.ClassID != nil {
		t.ClassID = exam.ClassID.String()
	}
	if exam.SubjectID != nil {
		t.SubjectID = exam.SubjectID.String()
	}
	return t
}

// PrepareScanTemplate fills the defaults an inline template may omit
// (choice count, student id length) and checks it the way a stored exam is
// checked, answer key included.
func PrepareScanTemplate(t ScanTemplate) (ScanTemplate, error) {
	if t.ChoiceCount == 0 {
		t.ChoiceCount = DefaultChoiceCount
	}
	if t.StudentIDLength == 0 {
		t.StudentIDLength = DefaultStudentIDLength
	}

	st := sheet.Template{
		Title:           t.Title,
		TotalQuestions:  t.TotalQuestions,
		ChoiceCount:     t.ChoiceCount,
		StudentIDLength: t.StudentIDLength,
		SubjectIDLength: t.SubjectIDLength,
		PointsRanges:    make([]sheet.PointsRange, 0, len(t.PointsRanges)),
	}
	for _, r := range t.PointsRanges {
		st.PointsRanges = append(st.PointsRanges, sheet.PointsRange{Start: r.Start, End: r.End, Points: r.Points})
	}
	if err := ValidateTemplate(st); err != nil {
		return t, err
	}
	for _, a := range t.AnswerKey {
		if err := checkSelection(st, sheet.AnswerItem{Number: a.Number, CorrectAnswer: a.CorrectAnswer}); err != nil {
			return t, err
		}
	}
	return t, nil
}

// ScannerClient forwards templates to the optical scanning device.
type ScannerClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewScannerClient(cfg config.ScannerConfig) *ScannerClient {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &ScannerClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: retries,
		backoff:    500 * time.Millisecond,
	}
}

// Configured reports whether a device URL is set.
func (c *ScannerClient) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Scan sends t to the device and returns the raw record it produced.
func (c *ScannerClient) Scan(ctx context.Context, t ScanTemplate) (grading.Record, error) {
	if !c.Configured() {
		return nil, ErrScannerNotConfigured
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan template: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/scan", payload)
	if err != nil {
		return nil, err
	}

	var rec grading.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrScannerUnavailable, err)
	}
	if rec == nil {
		rec = grading.Record{}
	}
	return rec, nil
}

// doRequest retries transport failures, 429 and 5xx with exponential
// backoff. Other 4xx responses are returned at once.
func (c *ScannerClient) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			slog.WarnContext(ctx, "retrying scanner request", "attempt", attempt+1, "max", c.maxRetries, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &ScannerError{Status: resp.StatusCode, Body: string(respBody)}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &ScannerError{Status: resp.StatusCode, Body: string(respBody)}
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrScannerUnavailable, c.maxRetries, lastErr)
}
