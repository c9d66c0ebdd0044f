package progresssync

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// AdvancePointerWorkflow retries the week pointer write until the store accepts it.
// The activity is idempotent, so replays after a crash are safe.
func AdvancePointerWorkflow(ctx workflow.Context, in AdvancePointerInput) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    20,
		},
	})
	return workflow.ExecuteActivity(ctx, ActivityAdvancePointer, in).Get(ctx, nil)
}

// NotifyGuardianWorkflow delivers one guardian notice. Missing records and guardians
// without contact details fail without retry.
func NotifyGuardianWorkflow(ctx workflow.Context, in NotifyGuardianInput) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        10 * time.Minute,
			MaximumAttempts:        6,
			NonRetryableErrorTypes: []string{errTypePermanent},
		},
	})
	return workflow.ExecuteActivity(ctx, ActivityDeliverNotice, in).Get(ctx, nil)
}
