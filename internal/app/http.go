package app

import (
	"github.com/yungbote/classweek-backend/internal/http"
	httpH "github.com/yungbote/classweek-backend/internal/http/handlers"
	httpMW "github.com/yungbote/classweek-backend/internal/http/middleware"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, store *Store, svc Services) *http.Server {
	log.Info("Wiring handlers...")
	verifier := httpMW.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	return http.NewServer(http.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, verifier),
		HealthHandler:     httpH.NewHealthHandler(httpH.HealthCheck{Name: "store", Check: store.Ping}),
		MeHandler:         httpH.NewMeHandler(svc.Enrollment),
		WeekHandler:       httpH.NewWeekHandler(svc.Progress),
		SubmissionHandler: httpH.NewSubmissionHandler(log, svc.Submissions),
		AdminHandler: httpH.NewAdminHandler(httpH.AdminHandlerDeps{
			Enrollment:  svc.Enrollment,
			Progress:    svc.Progress,
			Repair:      svc.Repair,
			Grading:     svc.Grading,
			Submissions: svc.Submissions,
		}),
	})
}
