package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/okulpanel/sinav-backend/internal/exam"
	"github.com/okulpanel/sinav-backend/internal/middleware"
	"github.com/okulpanel/sinav-backend/internal/repository"
	"github.com/okulpanel/sinav-backend/internal/response"
	"github.com/okulpanel/sinav-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	attemptRepo    *repository.AttemptRepository
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	attemptRepo *repository.AttemptRepository,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		attemptRepo:    attemptRepo,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/teacher/exams/:id/monitor
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Only the exam's author may watch its live progress.
	def, err := h.examService.GetOwned(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	totalQuestions := len(def.Questions)

	h.sendInitialSnapshot(c, reqCtx, examID, def, totalQuestions)

	channelName := config.CacheKey.ExamMonitorChannel(examID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Track whether any student has joined so we can skip empty refreshes
	hasStudents := false

	h.log.Info().Str("exam_id", examID.String()).Msg("Teacher attached to live monitor SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Teacher disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

			// A join or submit event proves at least one student is in
			hasStudents = true

		case <-refreshTicker.C:
			if !hasStudents {
				continue // no point querying if nobody has joined
			}
			h.sendRefresh(c, reqCtx, examID, totalQuestions)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendInitialSnapshot gathers attempt rows and live counters and writes the
// first SSE event.
func (h *MonitorHandler) sendInitialSnapshot(
	c *gin.Context,
	ctx context.Context,
	examID uuid.UUID,
	def *exam.Definition,
	totalQuestions int,
) {
	rows, _, err := h.attemptRepo.ListByExam(ctx, examID, 1, 1000)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to list attempts for initial snapshot")
		rows = nil
	}

	totalJoined := len(rows)
	totalInProgress := 0
	totalSubmitted := 0

	studentsSnapshot := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		switch row.Status {
		case "IN_PROGRESS":
			totalInProgress++
		case "SUBMITTED":
			totalSubmitted++
		}

		score := 0
		if row.TotalScore != nil {
			score = *row.TotalScore
		}

		studentsSnapshot = append(studentsSnapshot, map[string]interface{}{
			"student_id":      row.StudentID,
			"name":            row.Name,
			"number":          row.Number,
			"class_label":     row.ClassLabel,
			"status":          row.Status,
			"score":           score,
			"started_at":      row.StartedAt,
			"answered_count":  int64(0),
			"total_questions": totalQuestions,
		})
	}

	// Fetch live counters with a timeout so a slow query doesn't block the connection
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if progress, err := h.monitorService.GetProgress(fetchCtx, examID); err == nil {
		for i, s := range studentsSnapshot {
			sid, ok := s["student_id"].(int)
			if !ok {
				continue
			}
			if count, found := progress.AnsweredCounts[sid]; found {
				studentsSnapshot[i]["answered_count"] = count
			}
		}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"exam": map[string]interface{}{
				"id":              examID.String(),
				"title":           def.Title,
				"subject":         def.Subject,
				"duration":        def.DurationMinutes,
				"ends_at":         def.EndsAt,
				"total_questions": totalQuestions,
			},
			"stats": map[string]interface{}{
				"total_joined":      totalJoined,
				"total_in_progress": totalInProgress,
				"total_submitted":   totalSubmitted,
			},
			"students": studentsSnapshot,
		},
	})
	c.Writer.Flush()
}

// sendRefresh polls DB+Redis for current progress and sends a compact refresh event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID, totalQuestions int) {
	// Scoped timeout prevents a slow query from stalling the SSE loop
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	progress, err := h.monitorService.GetProgress(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch student progress for refresh")
		return
	}

	progressData := make([]map[string]interface{}, 0, len(progress.AnsweredCounts)+len(progress.Scores))

	for sid, answered := range progress.AnsweredCounts {
		progressData = append(progressData, map[string]interface{}{
			"student_id":     sid,
			"status":         "IN_PROGRESS",
			"answered_count": answered,
		})
	}

	// Submitted students carry a final score instead of an answer count
	for sid, score := range progress.Scores {
		progressData = append(progressData, map[string]interface{}{
			"student_id": sid,
			"status":     "SUBMITTED",
			"score":      score,
		})
	}

	c.SSEvent("message", map[string]interface{}{
		"type":            "refresh",
		"total_questions": totalQuestions,
		"students":        progressData,
	})
	c.Writer.Flush()
}
