package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/classweek-backend/internal/domain/user"
	httpH "github.com/yungbote/classweek-backend/internal/http/handlers"
	httpMW "github.com/yungbote/classweek-backend/internal/http/middleware"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	MeHandler         *httpH.MeHandler
	WeekHandler       *httpH.WeekHandler
	SubmissionHandler *httpH.SubmissionHandler
	AdminHandler      *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.MeHandler != nil {
			protected.GET("/me", cfg.MeHandler.GetMe)
		}

		// Weeks
		if cfg.WeekHandler != nil {
			protected.GET("/weeks", cfg.WeekHandler.ListWeeks)
			protected.GET("/weeks/:id/materials", cfg.WeekHandler.ListMaterials)
			protected.GET("/weeks/:id/progress", cfg.WeekHandler.GetProgress)
			protected.POST("/weeks/:id/materials/:materialId/viewed", cfg.WeekHandler.MarkViewed)
		}

		// Submissions
		if cfg.SubmissionHandler != nil {
			protected.POST("/weeks/:id/materials/:materialId/submissions", cfg.SubmissionHandler.Submit)
			protected.GET("/submissions/:id/file", cfg.SubmissionHandler.DownloadFile)
		}
	}

	if cfg.AdminHandler != nil && cfg.AuthMiddleware != nil {
		admin := protected.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireRole(user.RoleTeacher, user.RoleAdmin))
		admin.POST("/students", cfg.AdminHandler.RegisterStudent)
		admin.POST("/students/:id/weeks/:weekId/unlock", cfg.AdminHandler.UnlockWeek)
		admin.POST("/students/:id/repair", cfg.AdminHandler.RepairStudent)
		admin.POST("/submissions/:id/grade", cfg.AdminHandler.Grade)
		admin.POST("/submissions/:id/return", cfg.AdminHandler.Return)
		admin.POST("/submissions/:id/notify", cfg.AdminHandler.ResendNotification)
	}

	return r
}
