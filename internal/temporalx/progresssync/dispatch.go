package progresssync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/services"
)

// Starter is the subset of the Temporal client used to schedule work.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

type Dispatcher struct {
	log       *logger.Logger
	tc        Starter
	taskQueue string
}

// NewDispatcher returns a PointerSync and NotificationQueue backed by durable workflows.
func NewDispatcher(log *logger.Logger, tc Starter, taskQueue string) *Dispatcher {
	return &Dispatcher{log: log.With("service", "ProgressSyncDispatcher"), tc: tc, taskQueue: taskQueue}
}

var (
	_ services.PointerSync       = (*Dispatcher)(nil)
	_ services.NotificationQueue = (*Dispatcher)(nil)
)

func (d *Dispatcher) Advance(ctx context.Context, studentID uuid.UUID, completed types.CompletedWeek) error {
	in := AdvancePointerInput{
		StudentID:   studentID,
		WeekNumber:  completed.WeekNumber,
		CompletedAt: completed.CompletedAt,
		Score:       completed.Score,
	}
	return d.start(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    advancePointerWorkflowID(in),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, AdvancePointerWorkflowName, in)
}

func (d *Dispatcher) Enqueue(ctx context.Context, submissionID uuid.UUID) error {
	return d.start(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    notifyGuardianWorkflowID(submissionID),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}, NotifyGuardianWorkflowName, NotifyGuardianInput{SubmissionID: submissionID})
}

func (d *Dispatcher) start(ctx context.Context, opts temporalsdkclient.StartWorkflowOptions, workflow string, arg any) error {
	run, err := d.tc.ExecuteWorkflow(ctx, opts, workflow, arg)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			d.log.Debug("Workflow already running", "workflow_id", opts.ID)
			return nil
		}
		return fmt.Errorf("start %s: %w", workflow, err)
	}
	d.log.Debug("Workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
