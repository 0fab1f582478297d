package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/okulpanel/sinav-backend/internal/exam"
	"github.com/okulpanel/sinav-backend/internal/model"
	"github.com/okulpanel/sinav-backend/internal/repository"
)

// Delivery errors.
var (
	ErrExamNotAvailable  = errors.New("exam is not available for joining")
	ErrAlreadySubmitted  = errors.New("exam already submitted")
	ErrAttemptNotStarted = errors.New("no attempt started for this exam")
	ErrTimeExpired       = errors.New("exam time has expired")
	ErrResultsWithheld   = errors.New("results are withheld until the exam closes")
)

// submitGrace absorbs clock skew between client countdowns and the server.
const submitGrace = 30 * time.Second

// DeliveryService runs the student-facing exam flow: joining, autosave,
// submission, and result retrieval. Grading happens synchronously in RAM;
// persistence is deferred to the result worker via a Redis queue.
type DeliveryService struct {
	examSvc     *ExamService
	attemptRepo *repository.AttemptRepository
	resultRepo  *repository.ResultRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(
	examSvc *ExamService,
	attemptRepo *repository.AttemptRepository,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *DeliveryService {
	return &DeliveryService{
		examSvc:     examSvc,
		attemptRepo: attemptRepo,
		resultRepo:  resultRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "delivery_service").Logger(),
	}
}

// JoinExam starts (or resumes) a student's attempt and returns their
// materialized paper. The paper is deterministic per (exam, student), so a
// rejoin after losing connection shows the identical question order.
func (s *DeliveryService) JoinExam(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamPaper, *model.Attempt, error) {
	def, err := s.examSvc.GetCachedDefinition(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}

	now := time.Now()
	if def.Status != exam.StatusActive || now.Before(def.StartsAt) {
		return nil, nil, ErrExamNotAvailable
	}
	if def.EndsAt != nil && now.After(*def.EndsAt) {
		return nil, nil, ErrExamNotAvailable
	}

	// Check if the student already has an attempt.
	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("check existing attempt: %w", err)
	}

	if attempt != nil {
		if attempt.Status == model.AttemptStatusSubmitted {
			return nil, nil, ErrAlreadySubmitted
		}
		// Rejoin: re-sync the cached start time in case Redis lost it.
		startKey := config.CacheKey.StudentAttemptStartKey(examID.String(), studentID)
		_ = s.rdb.Set(ctx, startKey, attempt.StartedAt.Unix(), 0)
	} else {
		attempt = &model.Attempt{
			ExamID:    examID,
			StudentID: studentID,
			StartedAt: now,
			Status:    model.AttemptStatusInProgress,
		}
		if err := s.attemptRepo.Create(ctx, attempt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Concurrent join: another request inserted the row first.
				attempt, err = s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
				if err != nil {
					return nil, nil, fmt.Errorf("concurrent join detected, but fetch failed: %w", err)
				}
			} else {
				return nil, nil, fmt.Errorf("create attempt: %w", err)
			}
		}

		startKey := config.CacheKey.StudentAttemptStartKey(examID.String(), studentID)
		if err := s.rdb.Set(ctx, startKey, attempt.StartedAt.Unix(), 0).Err(); err != nil {
			s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to cache start time")
		}
	}

	paper, err := s.materializePaper(ctx, def, studentID)
	if err != nil {
		return nil, nil, err
	}
	return paper, attempt, nil
}

// materializePaper builds (and caches) the per-student paper and option
// label maps.
func (s *DeliveryService) materializePaper(ctx context.Context, def *exam.Definition, studentID int) (*model.ExamPaper, error) {
	paperKey := config.CacheKey.StudentPaperKey(def.ID.String(), studentID)

	if data, err := s.rdb.Get(ctx, paperKey).Bytes(); err == nil {
		paper := &model.ExamPaper{}
		if err := json.Unmarshal(data, paper); err == nil {
			return paper, nil
		}
	}

	mat := exam.Materialize(def, strconv.Itoa(studentID))

	questions := make([]model.QuestionForStudent, len(mat.Questions))
	for i, q := range mat.Questions {
		questions[i] = model.QuestionForStudent{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Points:  q.Points,
			Options: q.Options,
		}
	}

	paper := &model.ExamPaper{
		ExamID:          def.ID,
		Title:           def.Title,
		Subject:         def.Subject,
		DurationMinutes: def.DurationMinutes,
		AllowBacktrack:  def.AllowBacktrack,
		Questions:       questions,
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	labelMapsJSON, err := json.Marshal(mat.LabelMaps)
	if err != nil {
		return nil, fmt.Errorf("marshal label maps: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, paperKey, paperJSON, 0)
	pipe.Set(ctx, config.CacheKey.StudentLabelMapsKey(def.ID.String(), studentID), labelMapsJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache materialized paper")
	}

	return paper, nil
}

// Autosave merges in-progress answers into the student's Redis answer hash.
// Answers arrive with displayed labels; they are stored as-is and
// canonicalized once at submit.
func (s *DeliveryService) Autosave(ctx context.Context, examID uuid.UUID, studentID int, answers []model.SubmittedAnswer) error {
	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotStarted
		}
		return err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return ErrAlreadySubmitted
	}

	fields := make(map[string]interface{}, len(answers))
	for _, a := range answers {
		fields[a.QuestionID] = a.Selected
	}
	if len(fields) == 0 {
		return nil
	}

	return s.rdb.HSet(ctx, config.CacheKey.StudentAnswersKey(examID.String(), studentID), fields).Err()
}

// GetState returns the autosaved answers and remaining seconds for an
// in-progress attempt, so a reconnecting client can resume cleanly.
func (s *DeliveryService) GetState(ctx context.Context, examID uuid.UUID, studentID int) (*model.AttemptState, error) {
	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotStarted
		}
		return nil, err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	def, err := s.examSvc.GetCachedDefinition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	saved, err := s.rdb.HGetAll(ctx, config.CacheKey.StudentAnswersKey(examID.String(), studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}

	deadline := s.deadline(def, attempt)
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		ExamID:           examID,
		StudentID:        studentID,
		StartedAt:        attempt.StartedAt,
		RemainingSeconds: int(remaining.Seconds()),
		SavedAnswers:     saved,
	}, nil
}

// deadline is the earlier of the per-student window and the exam-wide end.
func (s *DeliveryService) deadline(def *exam.Definition, attempt *model.Attempt) time.Time {
	d := attempt.StartedAt.Add(time.Duration(def.DurationMinutes) * time.Minute)
	if def.EndsAt != nil && def.EndsAt.Before(d) {
		d = *def.EndsAt
	}
	return d
}

// Submit grades the attempt in RAM and enqueues the result for async
// persistence. The displayed labels are first translated back to authored
// labels through the cached label maps. Returns the graded result only when
// the exam shows results immediately.
func (s *DeliveryService) Submit(ctx context.Context, examID uuid.UUID, studentID int, req *model.SubmitExamRequest) (*exam.Result, error) {
	attempt, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotStarted
		}
		return nil, err
	}
	if attempt.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	def, err := s.examSvc.GetCachedDefinition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := time.Now()
	if now.After(s.deadline(def, attempt).Add(submitGrace)) {
		return nil, ErrTimeExpired
	}

	labelMaps, err := s.loadLabelMaps(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	mat := &exam.Materialized{LabelMaps: labelMaps}

	answers := make([]exam.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		qid, err := uuid.Parse(a.QuestionID)
		if err != nil {
			continue
		}
		answers = append(answers, exam.Answer{
			QuestionID: qid,
			Selected:   mat.CanonicalLabel(qid, exam.OptionLabel(a.Selected)),
			RecordedAt: now,
		})
	}

	sub := exam.Submission{
		ExamID:     examID,
		StudentID:  strconv.Itoa(studentID),
		StartedAt:  attempt.StartedAt,
		FinishedAt: now,
		Answers:    answers,
	}

	result, warnings := exam.Grade(def, sub)
	for _, w := range warnings {
		s.log.Warn().
			Str("exam_id", examID.String()).
			Int("student_id", studentID).
			Str("question_id", w.QuestionID.String()).
			Msg(w.Reason)
	}

	affected, err := s.attemptRepo.MarkSubmitted(ctx, examID, studentID, now)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if affected == 0 {
		// A concurrent submit won the race.
		return nil, ErrAlreadySubmitted
	}

	if err := s.enqueueResult(ctx, result); err != nil {
		// Queue unavailable: persist inline rather than losing the grade.
		s.log.Error().Err(err).Msg("Failed to enqueue result, persisting inline")
		if err := s.resultRepo.Upsert(ctx, result); err != nil {
			return nil, fmt.Errorf("persist result: %w", err)
		}
	}

	// Live monitor notification, best effort.
	event, _ := json.Marshal(map[string]interface{}{
		"type":       "student_submitted",
		"student_id": studentID,
		"score":      result.TotalScore,
	})
	_ = s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), event).Err()

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Int("score", result.TotalScore).
		Msg("Submission graded")

	if !def.ShowResultAfterSubmit {
		return nil, nil
	}
	return result, nil
}

// enqueueResult pushes a graded result onto the persistence queue.
func (s *DeliveryService) enqueueResult(ctx context.Context, result *exam.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// loadLabelMaps fetches the student's cached option label maps. A missing
// cache entry degrades to identity maps, which is correct whenever option
// shuffling is disabled.
func (s *DeliveryService) loadLabelMaps(ctx context.Context, examID uuid.UUID, studentID int) (map[uuid.UUID]map[exam.OptionLabel]exam.OptionLabel, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.StudentLabelMapsKey(examID.String(), studentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[uuid.UUID]map[exam.OptionLabel]exam.OptionLabel{}, nil
		}
		return nil, fmt.Errorf("get label maps: %w", err)
	}

	maps := make(map[uuid.UUID]map[exam.OptionLabel]exam.OptionLabel)
	if err := json.Unmarshal(data, &maps); err != nil {
		return nil, fmt.Errorf("unmarshal label maps: %w", err)
	}
	return maps, nil
}

// GetOwnResult returns a student's graded result. Results stay withheld
// until the exam closes unless the exam shows them immediately.
func (s *DeliveryService) GetOwnResult(ctx context.Context, examID uuid.UUID, studentID int) (*exam.Result, error) {
	def, err := s.examSvc.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !def.ShowResultAfterSubmit && def.Status != exam.StatusClosed {
		return nil, ErrResultsWithheld
	}
	return s.resultRepo.GetByExamAndStudent(ctx, examID, studentID)
}

// ListOwnAttempts returns all attempts for a student, newest first.
func (s *DeliveryService) ListOwnAttempts(ctx context.Context, studentID int) ([]model.Attempt, error) {
	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// LobbyExam is the student-facing lobby view of a joinable exam. Prompts and
// answer keys are never exposed here.
type LobbyExam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	DurationMinutes int        `json:"duration_minutes"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	QuestionCount   int        `json:"question_count"`
	Joined          bool       `json:"joined"`
	Submitted       bool       `json:"submitted"`
}

// ListOpenExams returns every ACTIVE exam inside its join window, decorated
// with the student's own attempt state.
func (s *DeliveryService) ListOpenExams(ctx context.Context, studentID int) ([]LobbyExam, error) {
	defs, err := s.examSvc.examRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	byExam := make(map[uuid.UUID]model.AttemptStatus, len(attempts))
	for _, a := range attempts {
		byExam[a.ExamID] = a.Status
	}

	now := time.Now()
	lobby := make([]LobbyExam, 0, len(defs))
	for _, def := range defs {
		if now.Before(def.StartsAt) {
			continue
		}
		if def.EndsAt != nil && now.After(*def.EndsAt) {
			continue
		}
		status, joined := byExam[def.ID]
		lobby = append(lobby, LobbyExam{
			ID:              def.ID,
			Title:           def.Title,
			Subject:         def.Subject,
			DurationMinutes: def.DurationMinutes,
			StartsAt:        def.StartsAt,
			EndsAt:          def.EndsAt,
			QuestionCount:   len(def.Questions),
			Joined:          joined,
			Submitted:       status == model.AttemptStatusSubmitted,
		})
	}
	return lobby, nil
}
