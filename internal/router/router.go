package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/okulpanel/sinav-backend/internal/config"
	"github.com/okulpanel/sinav-backend/internal/handler"
	"github.com/okulpanel/sinav-backend/internal/middleware"
	"github.com/okulpanel/sinav-backend/internal/response"
	"github.com/okulpanel/sinav-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Delivery    *handler.DeliveryHandler
	Exam        *handler.ExamHandler
	StudentMgmt *handler.StudentManagementHandler
	Monitor     *handler.MonitorHandler
	System      *handler.SystemHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/exams", handlers.Delivery.GetLobby)
		studentAPI.GET("/attempts", handlers.Delivery.ListOwnAttempts)
		studentAPI.POST("/exams/:exam_id/join", handlers.Delivery.JoinExam)
		studentAPI.GET("/exams/:exam_id/state", handlers.Delivery.GetAttemptState)
		studentAPI.POST("/exams/:exam_id/autosave", handlers.Delivery.AutosaveAnswers)
		studentAPI.POST("/exams/:exam_id/submit", handlers.Delivery.SubmitExam)
		studentAPI.GET("/exams/:exam_id/result", handlers.Delivery.GetOwnResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		// Exam authoring and lifecycle
		teacherAPI.GET("/exams", handlers.Exam.ListExams)
		teacherAPI.POST("/exams", handlers.Exam.CreateExam)
		teacherAPI.GET("/exams/:id", handlers.Exam.GetExam)
		teacherAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		teacherAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		teacherAPI.POST("/exams/:id/questions", handlers.Exam.AddQuestion)
		teacherAPI.PUT("/exams/:id/questions", handlers.Exam.ReplaceQuestions)
		teacherAPI.DELETE("/exams/:id/questions/:question_id", handlers.Exam.DeleteQuestion)
		teacherAPI.POST("/exams/:id/publish", handlers.Exam.PublishExam)
		teacherAPI.POST("/exams/:id/close", handlers.Exam.CloseExam)
		teacherAPI.POST("/exams/:id/cancel", handlers.Exam.CancelExam)

		// Results and analytics
		teacherAPI.GET("/exams/:id/results", handlers.Exam.ListExamResults)
		teacherAPI.GET("/exams/:id/report", handlers.Exam.GetExamReport)
		teacherAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)

		// Student management
		teacherAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		teacherAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		teacherAPI.PUT("/students/:id", handlers.StudentMgmt.UpdateStudent)
		teacherAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
		teacherAPI.POST("/students/:id/reset-session", handlers.Auth.ResetStudentSession)

		// System monitoring
		teacherAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
