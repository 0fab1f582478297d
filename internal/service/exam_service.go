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
	"github.com/okulpanel/sinav-backend/internal/model"
	"github.com/okulpanel/sinav-backend/internal/repository"
	"github.com/okulpanel/sinav-backend/internal/response"
)

// Domain errors.
var (
	ErrNotExamAuthor = errors.New("not the author of this exam")
	ErrExamNotDraft  = errors.New("exam status is not DRAFT")
	ErrExamNotActive = errors.New("exam status is not ACTIVE")
)

// ExamService handles exam authoring, lifecycle transitions, and the Redis
// cache that backs exam delivery.
type ExamService struct {
	examRepo *repository.ExamRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam definition with its questions.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*exam.Definition, error) {
	return s.examRepo.GetByID(ctx, id)
}

// GetOwned retrieves an exam and verifies the caller authored it.
func (s *ExamService) GetOwned(ctx context.Context, id uuid.UUID, teacherID int) (*exam.Definition, error) {
	def, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.TeacherID != teacherID {
		return nil, ErrNotExamAuthor
	}
	return def, nil
}

// ListByTeacher retrieves a teacher's exams with pagination.
func (s *ExamService) ListByTeacher(ctx context.Context, teacherID, page, perPage int) ([]repository.ExamSummary, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	summaries, total, err := s.examRepo.ListByTeacherPaginated(ctx, teacherID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if summaries == nil {
		summaries = []repository.ExamSummary{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return summaries, pagination, nil
}

// Create inserts a new exam as DRAFT.
func (s *ExamService) Create(ctx context.Context, teacherID int, req *model.CreateExamRequest) (*exam.Definition, error) {
	allowBacktrack := true
	if req.AllowBacktrack != nil {
		allowBacktrack = *req.AllowBacktrack
	}

	def := &exam.Definition{
		Title:                 req.Title,
		Subject:               req.Subject,
		TeacherID:             teacherID,
		DurationMinutes:       req.DurationMinutes,
		StartsAt:              req.StartsAt,
		MaxScore:              req.MaxScore,
		ShuffleQuestions:      req.ShuffleQuestions,
		ShuffleOptions:        req.ShuffleOptions,
		AllowBacktrack:        allowBacktrack,
		ShowResultAfterSubmit: req.ShowResultAfterSubmit,
		Status:                exam.StatusDraft,
	}

	if err := s.examRepo.Create(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Update modifies a draft exam's header fields.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, teacherID int, req *model.UpdateExamRequest) (*exam.Definition, error) {
	def, err := s.GetOwned(ctx, id, teacherID)
	if err != nil {
		return nil, err
	}
	if !def.Editable() {
		return nil, ErrExamNotDraft
	}

	if req.Title != "" {
		def.Title = req.Title
	}
	if req.Subject != "" {
		def.Subject = req.Subject
	}
	if req.DurationMinutes != nil {
		def.DurationMinutes = *req.DurationMinutes
	}
	if req.StartsAt != nil {
		def.StartsAt = *req.StartsAt
	}
	if req.MaxScore != nil {
		def.MaxScore = *req.MaxScore
	}
	if req.ShuffleQuestions != nil {
		def.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		def.ShuffleOptions = *req.ShuffleOptions
	}
	if req.AllowBacktrack != nil {
		def.AllowBacktrack = *req.AllowBacktrack
	}
	if req.ShowResultAfterSubmit != nil {
		def.ShowResultAfterSubmit = *req.ShowResultAfterSubmit
	}

	if err := s.examRepo.Update(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, teacherID int) error {
	def, err := s.GetOwned(ctx, id, teacherID)
	if err != nil {
		return err
	}
	if !def.Editable() {
		return ErrExamNotDraft
	}
	return s.examRepo.Delete(ctx, id)
}

// AddQuestion validates a question against the point budget and appends it to
// a draft exam's pool.
func (s *ExamService) AddQuestion(ctx context.Context, examID uuid.UUID, teacherID int, req *model.AddQuestionRequest) (*exam.Question, error) {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}
	if !def.Editable() {
		return nil, ErrExamNotDraft
	}

	q := req.Question()
	if err := exam.CheckAddQuestion(def, q); err != nil {
		return nil, err
	}

	if err := s.examRepo.AddQuestion(ctx, examID, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ReplaceQuestions swaps a draft exam's entire question pool.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, teacherID int, req *model.ReplaceQuestionsRequest) (*exam.Definition, error) {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}
	if !def.Editable() {
		return nil, ErrExamNotDraft
	}

	questions := make([]exam.Question, 0, len(req.Questions))
	for i := range req.Questions {
		questions = append(questions, req.Questions[i].Question())
	}

	// Validate the would-be pool as a whole before touching storage.
	if verrs := exam.CheckReplaceQuestions(def, questions); len(verrs) > 0 {
		return nil, verrs
	}

	if err := s.examRepo.ReplaceQuestions(ctx, examID, questions); err != nil {
		return nil, err
	}
	def.Questions = questions
	return def, nil
}

// DeleteQuestion removes a single question from a draft exam.
func (s *ExamService) DeleteQuestion(ctx context.Context, examID, questionID uuid.UUID, teacherID int) error {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return err
	}
	if !def.Editable() {
		return ErrExamNotDraft
	}
	return s.examRepo.DeleteQuestion(ctx, examID, questionID)
}

// Publish runs the definition validator, freezes the end time, flips the exam
// to ACTIVE, and warms the delivery cache. Validation failures surface as
// exam.ValidationErrors for field-level reporting.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, teacherID int) (*exam.Definition, error) {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}

	if err := exam.Publish(def); err != nil {
		return nil, err
	}

	// Commit the status first; a cache warmed for a publish that never
	// landed would keep serving an ACTIVE definition with no TTL.
	if err := s.examRepo.UpdateStatus(ctx, examID, def.Status, def.EndsAt); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err := s.WarmExamCache(ctx, def); err != nil {
		// The exam is live in the database; delivery lazily re-warms on
		// the first read, so a warm failure is not fatal here.
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Cache warm after publish failed")
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Time("ends_at", *def.EndsAt).
		Msg("Exam published")
	return def, nil
}

// Close flips an ACTIVE exam to CLOSED and drops its delivery cache. Results
// and the analytics report stay available.
func (s *ExamService) Close(ctx context.Context, examID uuid.UUID, teacherID int) (*exam.Definition, error) {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}

	if err := exam.Close(def); err != nil {
		return nil, err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, def.Status, def.EndsAt); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.PurgeExamCache(ctx, examID)
	s.InvalidateReport(ctx, examID)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam closed")
	return def, nil
}

// Cancel aborts a DRAFT or ACTIVE exam. Cancelled exams are excluded from
// analytics, so the report cache is dropped along with the delivery cache.
func (s *ExamService) Cancel(ctx context.Context, examID uuid.UUID, teacherID int) (*exam.Definition, error) {
	def, err := s.GetOwned(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}

	if err := exam.Cancel(def); err != nil {
		return nil, err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, def.Status, def.EndsAt); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.PurgeExamCache(ctx, examID)
	s.InvalidateReport(ctx, examID)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam cancelled")
	return def, nil
}

// CloseDue closes an ACTIVE exam whose end time has passed. Used by the
// closer worker; no author check since the clock is the authority.
func (s *ExamService) CloseDue(ctx context.Context, examID uuid.UUID, now time.Time) error {
	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}

	if !exam.CloseDue(def, now) {
		return ErrExamNotActive
	}
	if err := exam.Close(def); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, def.Status, def.EndsAt); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.PurgeExamCache(ctx, examID)
	s.InvalidateReport(ctx, examID)
	return nil
}

// WarmExamCache loads an exam's definition and answer key from PostgreSQL
// into Redis. This is the core cache-warming logic used by Publish and
// PrewarmAllCaches.
func (s *ExamService) WarmExamCache(ctx context.Context, def *exam.Definition) error {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	// Answer key map for in-RAM grading.
	answerKey := make(map[string]interface{}, len(def.Questions))
	for _, q := range def.Questions {
		answerKey[q.ID.String()] = string(q.CorrectLabel)
	}

	// Cache both atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamDefinitionKey(def.ID.String()), defJSON, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKeyKey(def.ID.String()))
	pipe.HSet(ctx, config.CacheKey.ExamAnswerKeyKey(def.ID.String()), answerKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", def.ID.String()).
		Int("questions", len(def.Questions)).
		Msg("Cache warmed")
	return nil
}

// PurgeExamCache drops the delivery cache entries for an exam.
func (s *ExamService) PurgeExamCache(ctx context.Context, examID uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.ExamDefinitionKey(examID.String()))
	pipe.Del(ctx, config.CacheKey.ExamAnswerKeyKey(examID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to purge exam cache")
	}
}

// InvalidateReport drops a cached analytics report so the next request
// recomputes it.
func (s *ExamService) InvalidateReport(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamReportKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to invalidate report cache")
	}
}

// PrewarmAllCaches loads all ACTIVE exams into Redis on application startup.
// This prevents any lazy-loading race conditions under thundering herd traffic.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	defs, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}

	if len(defs) == 0 {
		s.log.Info().Msg("No active exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(defs)).Msg("Prewarming active exams...")

	warmed := 0
	for _, def := range defs {
		if err := s.WarmExamCache(ctx, def); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", def.ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(defs)).
		Msg("Prewarming complete")
	return nil
}

// GetCachedDefinition retrieves the cached definition from Redis, falling
// back to PostgreSQL on a miss (self-healing the cache).
func (s *ExamService) GetCachedDefinition(ctx context.Context, examID uuid.UUID) (*exam.Definition, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamDefinitionKey(examID.String())).Bytes()
	if err == nil {
		def := &exam.Definition{}
		if err := json.Unmarshal(data, def); err == nil {
			return def, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	def, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if def.Status == exam.StatusActive {
		_ = s.WarmExamCache(ctx, def)
	}
	return def, nil
}
