package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/okulpanel/sinav-backend/internal/middleware"
	"github.com/okulpanel/sinav-backend/internal/model"
	"github.com/okulpanel/sinav-backend/internal/response"
	"github.com/okulpanel/sinav-backend/internal/service"
	"github.com/okulpanel/sinav-backend/internal/validator"
)

// DeliveryHandler handles the student-facing exam flow: lobby, join,
// autosave, submit, and result retrieval.
type DeliveryHandler struct {
	deliveryService *service.DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveryService *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

// failDeliveryError maps delivery errors onto the response envelope.
func failDeliveryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrAttemptNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotStarted)
	case errors.Is(err, service.ErrTimeExpired):
		response.Fail(c, http.StatusGone, response.ErrTimeExpired)
	case errors.Is(err, service.ErrResultsWithheld):
		response.Fail(c, http.StatusForbidden, response.ErrResultsWithheld)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetLobby godoc
// GET /api/v1/student/exams
// Lists every exam currently open for joining.
func (h *DeliveryHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.deliveryService.ListOpenExams(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// JoinExam godoc
// POST /api/v1/student/exams/:exam_id/join
// Starts or resumes an attempt and returns the student's materialized paper.
// Idempotent: rejoining returns the identical paper.
func (h *DeliveryHandler) JoinExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, attempt, err := h.deliveryService.JoinExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDeliveryError(c, err)
		return
	}

	state, err := h.deliveryService.GetState(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDeliveryError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"paper":             paper,
		"started_at":        attempt.StartedAt,
		"remaining_seconds": state.RemainingSeconds,
		"saved_answers":     state.SavedAnswers,
	})
}

// GetAttemptState godoc
// GET /api/v1/student/exams/:exam_id/state
// Returns the remaining time and autosaved answers of an in-progress attempt.
func (h *DeliveryHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.deliveryService.GetState(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDeliveryError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// AutosaveAnswers godoc
// POST /api/v1/student/exams/:exam_id/autosave
// HTTP fallback for clients without a WebSocket connection.
func (h *DeliveryHandler) AutosaveAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AutosaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.deliveryService.Autosave(c.Request.Context(), examID, claims.UserID, req.Answers); err != nil {
		failDeliveryError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": len(req.Answers)})
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades the attempt. The body may be empty, in which case the autosaved
// answers are submitted.
func (h *DeliveryHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitExamRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	if len(req.Answers) == 0 {
		state, err := h.deliveryService.GetState(c.Request.Context(), examID, claims.UserID)
		if err != nil {
			failDeliveryError(c, err)
			return
		}
		for qid, selected := range state.SavedAnswers {
			req.Answers = append(req.Answers, model.SubmittedAnswer{QuestionID: qid, Selected: selected})
		}
	}

	result, err := h.deliveryService.Submit(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failDeliveryError(c, err)
		return
	}

	if result == nil {
		response.Success(c, http.StatusOK, gin.H{"status": "submitted"})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "graded", "result": result})
}

// GetOwnResult godoc
// GET /api/v1/student/exams/:exam_id/result
func (h *DeliveryHandler) GetOwnResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.deliveryService.GetOwnResult(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failDeliveryError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ListOwnAttempts godoc
// GET /api/v1/student/attempts
func (h *DeliveryHandler) ListOwnAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.deliveryService.ListOwnAttempts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
