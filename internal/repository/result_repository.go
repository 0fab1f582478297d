package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okulpanel/sinav-backend/internal/exam"
)

// ResultRepository handles graded result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// GetByExamAndStudent retrieves a single graded result.
func (r *ResultRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*exam.Result, error) {
	res := &exam.Result{}
	var sid int
	var details []byte
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, student_id, total_score, correct_count, incorrect_count,
		        blank_count, time_spent_minutes, details
		 FROM results
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&res.ExamID, &sid, &res.TotalScore, &res.CorrectCount,
		&res.IncorrectCount, &res.BlankCount, &res.TimeSpentMinutes, &details)
	if err != nil {
		return nil, err
	}
	res.StudentID = strconv.Itoa(sid)
	if err := json.Unmarshal(details, &res.Details); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByExam retrieves all graded results for an exam, per-question details
// included, for the analytics engine.
func (r *ResultRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]exam.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, student_id, total_score, correct_count, incorrect_count,
		        blank_count, time_spent_minutes, details
		 FROM results
		 WHERE exam_id = $1
		 ORDER BY student_id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []exam.Result
	for rows.Next() {
		var res exam.Result
		var sid int
		var details []byte
		if err := rows.Scan(&res.ExamID, &sid, &res.TotalScore, &res.CorrectCount,
			&res.IncorrectCount, &res.BlankCount, &res.TimeSpentMinutes, &details); err != nil {
			return nil, err
		}
		res.StudentID = strconv.Itoa(sid)
		if err := json.Unmarshal(details, &res.Details); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// UpsertBatch persists a batch of graded results with a bulk UNNEST upsert
// and mirrors the total score onto the attempts table in the same
// transaction. Grading is idempotent, so a replayed batch just rewrites
// identical rows.
func (r *ResultRepository) UpsertBatch(ctx context.Context, batch []exam.Result) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, 0, n)
	studentIDs := make([]int, 0, n)
	totals := make([]int, 0, n)
	corrects := make([]int, 0, n)
	incorrects := make([]int, 0, n)
	blanks := make([]int, 0, n)
	times := make([]int, 0, n)
	details := make([]string, 0, n)
	gradedAts := make([]time.Time, 0, n)

	now := time.Now()
	for _, res := range batch {
		raw, err := json.Marshal(res.Details)
		if err != nil {
			return err
		}
		sid, err := strconv.Atoi(res.StudentID)
		if err != nil {
			return err
		}
		examIDs = append(examIDs, res.ExamID)
		studentIDs = append(studentIDs, sid)
		totals = append(totals, res.TotalScore)
		corrects = append(corrects, res.CorrectCount)
		incorrects = append(incorrects, res.IncorrectCount)
		blanks = append(blanks, res.BlankCount)
		times = append(times, res.TimeSpentMinutes)
		details = append(details, string(raw))
		gradedAts = append(gradedAts, now)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO results (exam_id, student_id, total_score, correct_count,
		                     incorrect_count, blank_count, time_spent_minutes,
		                     details, graded_at)
		SELECT u.exam_id, u.student_id, u.total_score, u.correct_count,
		       u.incorrect_count, u.blank_count, u.time_spent_minutes,
		       u.details::jsonb, u.graded_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::int[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::text[],
			$9::timestamptz[]
		) AS u (exam_id, student_id, total_score, correct_count,
		        incorrect_count, blank_count, time_spent_minutes,
		        details, graded_at)
		ON CONFLICT (exam_id, student_id) DO UPDATE
		SET total_score = EXCLUDED.total_score,
		    correct_count = EXCLUDED.correct_count,
		    incorrect_count = EXCLUDED.incorrect_count,
		    blank_count = EXCLUDED.blank_count,
		    time_spent_minutes = EXCLUDED.time_spent_minutes,
		    details = EXCLUDED.details,
		    graded_at = EXCLUDED.graded_at`,
		examIDs, studentIDs, totals, corrects, incorrects, blanks, times, details, gradedAts)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE attempts AS a
		SET total_score = t.total_score
		FROM (
			SELECT u.exam_id, u.student_id, u.total_score
			FROM UNNEST($1::uuid[], $2::int[], $3::int[]) AS u (exam_id, student_id, total_score)
		) AS t
		WHERE a.exam_id = t.exam_id
		  AND a.student_id = t.student_id`,
		examIDs, studentIDs, totals)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Upsert persists a single graded result. Fallback path for when a bulk
// upsert fails.
func (r *ResultRepository) Upsert(ctx context.Context, res *exam.Result) error {
	return r.UpsertBatch(ctx, []exam.Result{*res})
}
