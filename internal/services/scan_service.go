package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rosec/backend/internal/docstore"
	"github.com/rosec/backend/internal/grading"
	"github.com/rosec/backend/internal/metrics"
)

// ScanStore persists raw scan records.
type ScanStore interface {
	SaveScan(ctx context.Context, rec grading.Record) (string, error)
}

// ScanOutcome is the raw device record and its normalized reading.
type ScanOutcome struct {
	ID         string         `json:"id,omitempty"`
	Raw        grading.Record `json:"raw"`
	Normalized grading.Result `json:"normalized"`
}

type ScanService struct {
	client  *ScannerClient
	store   ScanStore
	results *ResultService
}

// NewScanService wires the proxy. store and results may be nil, in which
// case scans are returned without being kept.
func NewScanService(client *ScannerClient, store ScanStore, results *ResultService) *ScanService {
	return &ScanService{client: client, store: store, results: results}
}

// Scan forwards t to the device, stores what comes back and normalizes it.
// A record missing its exam or scope ids inherits them from t.
func (s *ScanService) Scan(ctx context.Context, t ScanTemplate) (*ScanOutcome, error) {
	raw, err := s.client.Scan(ctx, t)
	if err != nil {
		metrics.ScanRequests.WithLabelValues(scanOutcome(err)).Inc()
		return nil, err
	}
	metrics.ScanRequests.WithLabelValues("ok").Inc()

	normalized := grading.Normalize(docstore.ScanCollection, raw)
	stored := grading.Record{}
	for k, v := range raw {
		stored[k] = v
	}
	if normalized.ExamID == "" && t.ExamID != "" {
		stored["examId"] = t.ExamID
	}
	if normalized.ClassID == "" && t.ClassID != "" {
		stored["classId"] = t.ClassID
	}
	if normalized.SubjectID == "" && t.SubjectID != "" {
		stored["subjectId"] = t.SubjectID
	}

	out := &ScanOutcome{Raw: raw, Normalized: grading.Normalize(docstore.ScanCollection, stored)}
	if s.store != nil {
		id, err := s.store.SaveScan(ctx, stored)
		if err != nil {
			slog.ErrorContext(ctx, "failed to store scan result", "exam_id", t.ExamID, "error", err)
			return nil, err
		}
		out.ID = id
	}
	if s.results != nil {
		s.results.InvalidateDashboards(ctx)
	}
	return out, nil
}

func scanOutcome(err error) string {
	var se *ScannerError
	switch {
	case errors.Is(err, ErrScannerNotConfigured):
		return "not_configured"
	case errors.As(err, &se):
		return "rejected"
	case errors.Is(err, ErrScannerUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
