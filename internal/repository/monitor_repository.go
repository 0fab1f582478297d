package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// MonitorRepository provides data access for the live exam monitoring feature.
// It combines PostgreSQL (attempt state) and Redis (live answer counts).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// GetInProgressStudentIDs returns all student IDs with an in-progress attempt
// for the given exam.
func (r *MonitorRepository) GetInProgressStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM attempts WHERE exam_id = $1 AND status = 'IN_PROGRESS'`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAnsweredCounts returns the number of autosaved answers per in-progress
// student, read from the Redis answer hashes in one pipeline.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, examID uuid.UUID, studentIDs []int) (map[int]int64, error) {
	counts := make(map[int]int64, len(studentIDs))
	if len(studentIDs) == 0 {
		return counts, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make(map[int]*redis.IntCmd, len(studentIDs))
	for _, sid := range studentIDs {
		cmds[sid] = pipe.HLen(ctx, config.CacheKey.StudentAnswersKey(examID.String(), sid))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for sid, cmd := range cmds {
		counts[sid] = cmd.Val()
	}
	return counts, nil
}

// GetSubmittedScores returns total scores for students who have already
// submitted the given exam.
func (r *MonitorRepository) GetSubmittedScores(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, total_score FROM results WHERE exam_id = $1`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[int]int)
	for rows.Next() {
		var sid, score int
		if err := rows.Scan(&sid, &score); err != nil {
			return nil, err
		}
		scores[sid] = score
	}
	return scores, rows.Err()
}
