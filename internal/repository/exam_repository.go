package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okulpanel/sinav-backend/internal/exam"
)

// ExamSummary is a listing row without the question pool.
type ExamSummary struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Subject         string      `json:"subject"`
	TeacherID       int         `json:"teacher_id"`
	DurationMinutes int         `json:"duration_minutes"`
	StartsAt        time.Time   `json:"starts_at"`
	EndsAt          *time.Time  `json:"ends_at,omitempty"`
	MaxScore        int         `json:"max_score"`
	Status          exam.Status `json:"status"`
	QuestionCount   int         `json:"question_count"`
	TotalPoints     int         `json:"total_points"`
	CreatedAt       time.Time   `json:"created_at"`
}

// ExamRepository handles exam definition and question pool data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, subject, teacher_id, duration_minutes, starts_at, ends_at,
	        max_score, shuffle_questions, shuffle_options, allow_backtrack,
	        show_result_after_submit, status`

func scanExam(row pgx.Row) (*exam.Definition, error) {
	d := &exam.Definition{}
	err := row.Scan(&d.ID, &d.Title, &d.Subject, &d.TeacherID, &d.DurationMinutes,
		&d.StartsAt, &d.EndsAt, &d.MaxScore, &d.ShuffleQuestions, &d.ShuffleOptions,
		&d.AllowBacktrack, &d.ShowResultAfterSubmit, &d.Status)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID retrieves an exam definition with its full question pool.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*exam.Definition, error) {
	d, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, prompt, points, options, correct_label
		 FROM questions WHERE exam_id = $1
		 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q exam.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Points, &options, &q.CorrectLabel); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, err
		}
		d.Questions = append(d.Questions, q)
	}
	return d, rows.Err()
}

// ListByTeacherPaginated retrieves exam summaries for a teacher with pagination.
func (r *ExamRepository) ListByTeacherPaginated(ctx context.Context, teacherID, limit, offset int) ([]ExamSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE teacher_id = $1`, teacherID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title, e.subject, e.teacher_id, e.duration_minutes, e.starts_at,
		        e.ends_at, e.max_score, e.status,
		        COUNT(q.id), COALESCE(SUM(q.points), 0), e.created_at
		 FROM exams e
		 LEFT JOIN questions q ON q.exam_id = e.id
		 WHERE e.teacher_id = $1
		 GROUP BY e.id
		 ORDER BY e.created_at DESC
		 LIMIT $2 OFFSET $3`,
		teacherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []ExamSummary
	for rows.Next() {
		var s ExamSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Subject, &s.TeacherID, &s.DurationMinutes,
			&s.StartsAt, &s.EndsAt, &s.MaxScore, &s.Status,
			&s.QuestionCount, &s.TotalPoints, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// Create inserts a new draft exam without questions.
func (r *ExamRepository) Create(ctx context.Context, d *exam.Definition) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, subject, teacher_id, duration_minutes, starts_at,
		                    max_score, shuffle_questions, shuffle_options, allow_backtrack,
		                    show_result_after_submit, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		d.Title, d.Subject, d.TeacherID, d.DurationMinutes, d.StartsAt,
		d.MaxScore, d.ShuffleQuestions, d.ShuffleOptions, d.AllowBacktrack,
		d.ShowResultAfterSubmit, d.Status,
	).Scan(&d.ID)
}

// Update rewrites a draft exam's header fields.
func (r *ExamRepository) Update(ctx context.Context, d *exam.Definition) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, subject = $2, duration_minutes = $3, starts_at = $4,
		     max_score = $5, shuffle_questions = $6, shuffle_options = $7,
		     allow_backtrack = $8, show_result_after_submit = $9, updated_at = NOW()
		 WHERE id = $10`,
		d.Title, d.Subject, d.DurationMinutes, d.StartsAt,
		d.MaxScore, d.ShuffleQuestions, d.ShuffleOptions,
		d.AllowBacktrack, d.ShowResultAfterSubmit, d.ID)
	return err
}

// UpdateStatus transitions an exam's lifecycle state. The end time frozen at
// publish rides along so both columns change in one statement.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status exam.Status, endsAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, ends_at = $2, updated_at = NOW() WHERE id = $3`,
		status, endsAt, id)
	return err
}

// AddQuestion appends a question to the end of an exam's pool.
func (r *ExamRepository) AddQuestion(ctx context.Context, examID uuid.UUID, q *exam.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO questions (id, exam_id, prompt, points, options, correct_label, position)
		 VALUES ($1, $2, $3, $4, $5, $6,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM questions WHERE exam_id = $2))`,
		q.ID, examID, q.Prompt, q.Points, options, q.CorrectLabel)
	return err
}

// ReplaceQuestions atomically swaps an exam's question pool using a bulk
// UNNEST insert inside one transaction.
func (r *ExamRepository) ReplaceQuestions(ctx context.Context, examID uuid.UUID, questions []exam.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return err
	}

	if len(questions) > 0 {
		n := len(questions)
		ids := make([]uuid.UUID, 0, n)
		prompts := make([]string, 0, n)
		points := make([]int, 0, n)
		options := make([]string, 0, n)
		correct := make([]string, 0, n)
		positions := make([]int, 0, n)

		for i, q := range questions {
			raw, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			ids = append(ids, q.ID)
			prompts = append(prompts, q.Prompt)
			points = append(points, q.Points)
			options = append(options, string(raw))
			correct = append(correct, string(q.CorrectLabel))
			positions = append(positions, i+1)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO questions (id, exam_id, prompt, points, options, correct_label, position)
			SELECT u.id, $1, u.prompt, u.points, u.options::jsonb, u.correct_label, u.position
			FROM UNNEST(
				$2::uuid[],
				$3::text[],
				$4::int[],
				$5::text[],
				$6::text[],
				$7::int[]
			) AS u (id, prompt, points, options, correct_label, position)`,
			examID, ids, prompts, points, options, correct, positions)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteQuestion removes a single question from a draft exam's pool.
func (r *ExamRepository) DeleteQuestion(ctx context.Context, examID, questionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM questions WHERE exam_id = $1 AND id = $2`, examID, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a draft exam and its questions.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// ListActive returns all exams with ACTIVE status, question pools included.
// Used for cache prewarming on application startup.
func (r *ExamRepository) ListActive(ctx context.Context) ([]*exam.Definition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams WHERE status = $1 ORDER BY created_at DESC`,
		exam.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	defs := make([]*exam.Definition, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// ListActiveDueIDs returns the IDs of ACTIVE exams whose end time has passed.
func (r *ExamRepository) ListActiveDueIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams
		 WHERE status = $1 AND ends_at IS NOT NULL AND ends_at <= $2`,
		exam.StatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
