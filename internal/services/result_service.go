package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rosec/backend/internal/analytics"
	"github.com/rosec/backend/internal/cache"
	"github.com/rosec/backend/internal/grading"
	"github.com/rosec/backend/internal/metrics"
	"github.com/rosec/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ResultSource reads raw result records from the collections they live in.
type ResultSource interface {
	Collections() []string
	FetchResults(ctx context.Context, collection, studentID string) ([]grading.Record, error)
}

// LookupSource resolves exam, class and subject ids to display data.
type LookupSource interface {
	Lookups(ctx context.Context) (analytics.Lookups, error)
}

// StudentResult is one graded result row of a student report.
type StudentResult struct {
	grading.Result
	Grade  string `json:"grade"`
	Passed bool   `json:"passed"`
}

// StudentReport is every normalized result of one student.
type StudentReport struct {
	StudentID string            `json:"student_id"`
	Summary   analytics.Summary `json:"summary"`
	Results   []StudentResult   `json:"results"`
}

// ResultService turns raw result collections into analytics.
type ResultService struct {
	source  ResultSource
	lookups LookupSource
	cache   cache.DashboardCache
	now     func() time.Time
}

// NewResultService wires the readers. dc may be nil when no cache is
// configured.
func NewResultService(source ResultSource, lookups LookupSource, dc cache.DashboardCache) *ResultService {
	return &ResultService{source: source, lookups: lookups, cache: dc, now: time.Now}
}

// LoadResults fetches every collection concurrently and normalizes the
// records. Output keeps collection order so repeated calls agree.
func (s *ResultService) LoadResults(ctx context.Context, studentID string) ([]grading.Result, error) {
	collections := s.source.Collections()
	batches := make([][]grading.Result, len(collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range collections {
		g.Go(func() error {
			recs, err := s.source.FetchResults(gctx, name, studentID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			batch := grading.NormalizeAll(name, recs)
			for _, r := range batch {
				metrics.ResultsNormalized.WithLabelValues(name, string(r.Rule)).Inc()
			}
			batches[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []grading.Result
	for _, b := range batches {
		results = append(results, b...)
	}
	// Records whose student id came from a different alias field than the
	// filter matched on are still this student's.
	if studentID != "" {
		kept := results[:0]
		for _, r := range results {
			if r.StudentID == studentID {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	return results, nil
}

// Dashboard builds the analytics page for a period and optional class or
// subject scope.
func (s *ResultService) Dashboard(ctx context.Context, period analytics.Period, classID, subjectID string) (*analytics.Dashboard, error) {
	key := cache.DashboardKey(period, classID, subjectID)
	if s.cache != nil {
		d, err := s.cache.GetDashboard(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "dashboard cache read failed", "key", key, "error", err)
		} else if d != nil {
			return d, nil
		}
	}

	var (
		results []grading.Result
		lookups analytics.Lookups
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = s.LoadResults(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		lookups, err = s.lookups.Lookups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scoped := analytics.Filter(results, lookups, classID, subjectID)
	d := analytics.BuildDashboard(scoped, lookups, period, s.now())

	if s.cache != nil {
		if err := s.cache.SetDashboard(ctx, key, &d); err != nil {
			slog.WarnContext(ctx, "dashboard cache write failed", "key", key, "error", err)
		}
	}
	return &d, nil
}

// StudentReport returns the results of one student, newest first where
// timestamps are known.
func (s *ResultService) StudentReport(ctx context.Context, studentID string) (*StudentReport, error) {
	results, err := s.LoadResults(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(results)

	rows := make([]StudentResult, 0, len(results))
	for _, r := range results {
		rows = append(rows, StudentResult{Result: r, Grade: grading.LetterGrade(r.Score), Passed: grading.Passed(r.Score)})
	}
	return &StudentReport{
		StudentID: studentID,
		Summary:   analytics.Summarize(results),
		Results:   rows,
	}, nil
}

// InvalidateDashboards drops cached dashboards after new results arrive.
func (s *ResultService) InvalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "dashboard cache invalidation failed", "error", err)
	}
}

// sortNewestFirst keeps untimed records in fetch order at the end.
func sortNewestFirst(results []grading.Result) {
	sort.SliceStable(results, func(i, j int) bool { return newer(results[i], results[j]) })
}

func newer(a, b grading.Result) bool {
	if !a.HasTimestamp() {
		return false
	}
	if !b.HasTimestamp() {
		return true
	}
	return a.Timestamp.After(b.Timestamp)
}

// CatalogLookups reads lookup tables from the SQL catalog.
type CatalogLookups struct {
	db *gorm.DB
}

func NewCatalogLookups(db *gorm.DB) *CatalogLookups {
	return &CatalogLookups{db: db}
}

func (c *CatalogLookups) Lookups(ctx context.Context) (analytics.Lookups, error) {
	var (
		exams    []models.ExamTemplate
		classes  []models.Class
		subjects []models.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.db.WithContext(gctx).Select("id", "title", "class_id", "subject_id").Find(&exams).Error
	})
	g.Go(func() error {
		return c.db.WithContext(gctx).Select("id", "name").Find(&classes).Error
	})
	g.Go(func() error {
		return c.db.WithContext(gctx).Select("id", "name").Find(&subjects).Error
	})
	if err := g.Wait(); err != nil {
		return analytics.Lookups{}, fmt.Errorf("failed to load lookups: %w", err)
	}

	l := analytics.Lookups{
		Exams:    make(map[string]analytics.ExamInfo, len(exams)),
		Classes:  make(map[string]string, len(classes)),
		Subjects: make(map[string]string, len(subjects)),
	}
	for _, e := range exams {
		info := analytics.ExamInfo{Title: e.Title}
		if e.ClassID != nil {
			info.ClassID = e.ClassID.String()
		}
		if e.SubjectID != nil {
			info.SubjectID = e.SubjectID.String()
		}
		l.Exams[e.ID.String()] = info
	}
	for _, cl := range classes {
		l.Classes[cl.ID.String()] = cl.Name
	}
	for _, sub := range subjects {
		l.Subjects[sub.ID.String()] = sub.Name
	}
	return l, nil
}
