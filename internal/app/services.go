package app

import (
	"context"
	"time"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/services"
	"github.com/yungbote/classweek-backend/internal/temporalx/progresssync"
)

type Services struct {
	Ledger        services.ProgressLedger
	Resolver      services.MaterialResolver
	Evaluator     services.CompletionEvaluator
	Propagator    services.UnlockPropagator
	Progress      services.ProgressService
	Submissions   services.SubmissionService
	Notifications services.NotificationService
	Grading       services.GradingService
	Enrollment    services.EnrollmentService
	Repair        services.RepairService

	closeQueue func(context.Context) error
}

func wireServices(log *logger.Logger, cfg Config, rs repos.Set, clients *Clients) Services {
	log.Info("Wiring services...", "async", cfg.Async)

	sender := services.NewFallbackSender(log, clients.Senders()...)
	notifications := services.NewNotificationService(log, rs.Submissions, rs.Users, rs.Weeks, sender)

	var (
		pointer    services.PointerSync
		queue      services.NotificationQueue
		closeQueue func(context.Context) error
	)
	if cfg.Async == AsyncTemporal && clients.Temporal != nil {
		d := progresssync.NewDispatcher(log, clients.Temporal, clients.TemporalConfig.TaskQueue)
		pointer, queue = d, d
	} else {
		q := services.NewInlineQueue(log, notifications, int64(cfg.NotifyMaxInFlight), cfg.NotifyTimeout)
		pointer = services.NewInlinePointerSync(log, rs.Users)
		queue, closeQueue = q, q.Close
	}

	var storage services.FileStorage
	if clients.Bucket != nil {
		storage = services.NewBucketFileStorage(log, clients.Bucket)
	}

	ledger := services.NewProgressLedger(log, rs.Progress, clients.Locker)
	resolver := services.NewMaterialResolver(log, rs.Weeks, rs.WeekContent)
	evaluator := services.NewCompletionEvaluator(log, resolver, rs.Progress, rs.Submissions)
	propagator := services.NewUnlockPropagator(log, rs.Weeks, ledger)
	progress := services.NewProgressService(log, services.ProgressServiceDeps{
		Users:      rs.Users,
		Weeks:      rs.Weeks,
		Progress:   rs.Progress,
		Resolver:   resolver,
		Evaluator:  evaluator,
		Ledger:     ledger,
		Propagator: propagator,
		Pointer:    pointer,
	})

	return Services{
		Ledger:     ledger,
		Resolver:   resolver,
		Evaluator:  evaluator,
		Propagator: propagator,
		Progress:   progress,
		Submissions: services.NewSubmissionService(log, services.SubmissionServiceDeps{
			Submissions: rs.Submissions,
			Progress:    progress,
			Storage:     storage,
			Locker:      clients.Locker,
			Queue:       queue,
		}),
		Notifications: notifications,
		Grading:       services.NewGradingService(log, rs.Submissions, progress),
		Enrollment:    services.NewEnrollmentService(log, rs.Users, rs.Weeks, ledger),
		Repair:        services.NewRepairService(log, rs.Users, rs.Weeks, rs.Progress, ledger, propagator),
		closeQueue:    closeQueue,
	}
}

// drain waits for queued inline deliveries.
func (s Services) drain(timeout time.Duration) error {
	if s.closeQueue == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.closeQueue(ctx)
}
