package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/okulpanel/sinav-backend/internal/exam"
	"github.com/okulpanel/sinav-backend/internal/repository"
)

// ErrExamCancelled marks report requests against a cancelled exam.
var ErrExamCancelled = errors.New("cancelled exams have no report")

// reportCacheTTL bounds staleness for reports of still-active exams. Closed
// exams' reports are invalidated explicitly on close instead.
const reportCacheTTL = 30 * time.Second

// AnalyticsService computes and caches per-exam reports.
type AnalyticsService struct {
	examRepo    *repository.ExamRepository
	resultRepo  *repository.ResultRepository
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	examRepo *repository.ExamRepository,
	resultRepo *repository.ResultRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		examRepo:    examRepo,
		resultRepo:  resultRepo,
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "analytics_service").Logger(),
	}
}

// GetReport returns the analytics report for an exam, serving from the Redis
// cache when fresh. Reports are re-runnable: late submissions simply change
// the next computation.
func (s *AnalyticsService) GetReport(ctx context.Context, examID uuid.UUID, teacherID int) (*exam.Report, error) {
	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if def.TeacherID != teacherID {
		return nil, ErrNotExamAuthor
	}
	if def.Status == exam.StatusCancelled {
		return nil, ErrExamCancelled
	}

	cacheKey := config.CacheKey.ExamReportKey(examID.String())
	if data, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		report := &exam.Report{}
		if err := json.Unmarshal(data, report); err == nil {
			return report, nil
		}
	}

	results, err := s.resultRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	report := exam.Analyze(def, results)

	if raw, err := json.Marshal(report); err == nil {
		ttl := reportCacheTTL
		if def.Status == exam.StatusClosed {
			ttl = 0
		}
		if err := s.rdb.Set(ctx, cacheKey, raw, ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to cache report")
		}
	}

	s.log.Debug().
		Str("exam_id", examID.String()).
		Int("results", len(results)).
		Msg("Report computed")
	return report, nil
}

// ListResults returns the per-student attempt rows for an exam, paginated,
// for the teacher's results table.
func (s *AnalyticsService) ListResults(ctx context.Context, examID uuid.UUID, teacherID, page, perPage int) ([]repository.AttemptRow, int, error) {
	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, 0, err
	}
	if def.TeacherID != teacherID {
		return nil, 0, ErrNotExamAuthor
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	return s.attemptRepo.ListByExam(ctx, examID, page, perPage)
}
