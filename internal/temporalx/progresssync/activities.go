package progresssync

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	errs "github.com/yungbote/classweek-backend/internal/pkg/errors"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/services"
)

const errTypePermanent = "permanent"

type Activities struct {
	Log           *logger.Logger
	Users         repos.UserRepo
	Notifications services.NotificationService
}

func (a *Activities) AdvancePointer(ctx context.Context, in AdvancePointerInput) error {
	return services.AdvancePointer(ctx, a.Log, a.Users, in.StudentID, types.CompletedWeek{
		WeekNumber:  in.WeekNumber,
		CompletedAt: in.CompletedAt,
		Score:       in.Score,
	}, 1)
}

func (a *Activities) DeliverNotice(ctx context.Context, in NotifyGuardianInput) error {
	err := a.Notifications.Deliver(ctx, in.SubmissionID)
	if err == nil {
		return nil
	}
	if errs.Permanent(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypePermanent, err)
	}
	return err
}

// Registry is the registration surface shared by workers and the test environment.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

func Register(r Registry, acts *Activities) {
	r.RegisterWorkflowWithOptions(AdvancePointerWorkflow, workflow.RegisterOptions{Name: AdvancePointerWorkflowName})
	r.RegisterWorkflowWithOptions(NotifyGuardianWorkflow, workflow.RegisterOptions{Name: NotifyGuardianWorkflowName})
	r.RegisterActivityWithOptions(acts.AdvancePointer, activity.RegisterOptions{Name: ActivityAdvancePointer})
	r.RegisterActivityWithOptions(acts.DeliverNotice, activity.RegisterOptions{Name: ActivityDeliverNotice})
}
