package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/okulpanel/sinav-backend/internal/middleware"
	"github.com/okulpanel/sinav-backend/internal/model"
	"github.com/okulpanel/sinav-backend/internal/service"
	ws "github.com/okulpanel/sinav-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles WebSocket exam streaming.
type WSHandler struct {
	deliveryService *service.DeliveryService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(deliveryService *service.DeliveryService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		deliveryService: deliveryService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for real-time autosave and submit.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID

	// Streaming requires a live attempt.
	if _, err := h.deliveryService.GetState(c.Request.Context(), examID, studentID); err != nil {
		ws.WriteError(conn, "no active attempt for this exam")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.AutosaveRequest
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, examID, studentID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, examID, studentID)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave saves a single answer to the Redis answer hash.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, studentID int, msg *ws.AutosaveRequest) {
	ctx := context.Background()

	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	// Validate QID is a well-formed UUID to prevent Redis key injection.
	if _, err := uuid.Parse(msg.QID); err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	err := h.deliveryService.Autosave(ctx, examID, studentID, []model.SubmittedAnswer{
		{QuestionID: msg.QID, Selected: msg.Answer},
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved"})
}

// handleSubmit finalizes the attempt using the autosaved answers.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, studentID int) {
	ctx := context.Background()

	state, err := h.deliveryService.GetState(ctx, examID, studentID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Get state error")
		ws.WriteError(conn, "failed to load saved answers")
		return
	}

	req := &model.SubmitExamRequest{
		Answers: make([]model.SubmittedAnswer, 0, len(state.SavedAnswers)),
	}
	for qid, selected := range state.SavedAnswers {
		req.Answers = append(req.Answers, model.SubmittedAnswer{QuestionID: qid, Selected: selected})
	}

	result, err := h.deliveryService.Submit(ctx, examID, studentID, req)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed: "+err.Error())
		return
	}

	if result == nil {
		ws.WriteTyped(conn, ws.PendingResponse{Event: ws.EventPending, Status: "submitted"})
		return
	}

	wsLog.Info().
		Int("score", result.TotalScore).
		Int("correct", result.CorrectCount).
		Msg("Exam submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:        ws.EventGraded,
		Score:        result.TotalScore,
		CorrectCount: result.CorrectCount,
		BlankCount:   result.BlankCount,
	})
}
