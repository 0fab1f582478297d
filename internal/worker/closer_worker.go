package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/okulpanel/sinav-backend/internal/repository"
	"github.com/okulpanel/sinav-backend/internal/service"
)

// CloserPollInterval is how often the worker scans for due exams.
const CloserPollInterval = 15 * time.Second

// CloserWorker closes ACTIVE exams whose frozen end time has passed, so the
// lifecycle advances even when no teacher is watching.
type CloserWorker struct {
	examRepo *repository.ExamRepository
	examSvc  *service.ExamService
	log      zerolog.Logger
}

func NewCloserWorker(examRepo *repository.ExamRepository, examSvc *service.ExamService, log zerolog.Logger) *CloserWorker {
	return &CloserWorker{
		examRepo: examRepo,
		examSvc:  examSvc,
		log:      log.With().Str("component", "closer_worker").Logger(),
	}
}

func (w *CloserWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CloserWorker started")

	ticker := time.NewTicker(CloserPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CloserWorker stopped")
			return
		case now := <-ticker.C:
			w.closeDue(ctx, now)
		}
	}
}

func (w *CloserWorker) closeDue(ctx context.Context, now time.Time) {
	ids, err := w.examRepo.ListActiveDueIDs(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list due exams")
		return
	}

	for _, id := range ids {
		if err := w.examSvc.CloseDue(ctx, id, now); err != nil {
			w.log.Error().Err(err).Str("exam_id", id.String()).Msg("Failed to close due exam")
			continue
		}
		w.log.Info().Str("exam_id", id.String()).Msg("Exam closed by schedule")
	}
}
