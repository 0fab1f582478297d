package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/okulpanel/sinav-backend/internal/repository"
)

// MonitorService orchestrates live exam monitoring business logic.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo}
}

// ProgressSnapshot holds the live progress of every student in one exam:
// autosaved answer counts for in-progress students and final scores for
// students who submitted.
type ProgressSnapshot struct {
	InProgress     []int         // student IDs with a live attempt
	AnsweredCounts map[int]int64 // student_id → autosaved answer count
	Scores         map[int]int   // student_id → total score (submitted only)
}

// GetProgress builds a snapshot of student progress. The answer counts and
// submitted scores are fetched concurrently to minimize latency.
func (s *MonitorService) GetProgress(ctx context.Context, examID uuid.UUID) (*ProgressSnapshot, error) {
	inProgress, err := s.monitorRepo.GetInProgressStudentIDs(ctx, examID)
	if err != nil {
		return nil, err
	}

	var (
		answeredCounts map[int]int64
		scores         map[int]int
		answeredErr    error
		scoresErr      error
		wg             sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		answeredCounts, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, examID, inProgress)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		scores, scoresErr = s.monitorRepo.GetSubmittedScores(ctx, examID)
	}()

	wg.Wait()

	// Answer counts are critical; submitted scores are best-effort.
	if answeredErr != nil {
		return nil, answeredErr
	}

	snapshot := &ProgressSnapshot{
		InProgress:     inProgress,
		AnsweredCounts: answeredCounts,
		Scores:         map[int]int{},
	}
	if scoresErr == nil && scores != nil {
		snapshot.Scores = scores
	}
	return snapshot, nil
}
