package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type UnlockPropagator interface {
	// UnlockNext opens week completedWeekNumber+1 of track for the student. It returns
	// nil without error when no such active week exists.
	UnlockNext(ctx context.Context, studentID uuid.UUID, track types.Track, completedWeekNumber int) (*types.StudentProgress, error)
}

type unlockPropagator struct {
	log    *logger.Logger
	weeks  repos.WeekRepo
	ledger ProgressLedger
}

func NewUnlockPropagator(log *logger.Logger, weeks repos.WeekRepo, ledger ProgressLedger) UnlockPropagator {
	return &unlockPropagator{
		log:    log.With("service", "UnlockPropagator"),
		weeks:  weeks,
		ledger: ledger,
	}
}

func (p *unlockPropagator) UnlockNext(ctx context.Context, studentID uuid.UUID, track types.Track, completedWeekNumber int) (out *types.StudentProgress, err error) {
	ctx, span := observability.StartSpan(ctx, "progress.unlock_next",
		attribute.String("student_id", studentID.String()),
		attribute.Int("completed_week", completedWeekNumber),
	)
	defer func() { observability.EndSpan(span, err) }()

	next, err := p.weeks.GetByTrackNumber(dbctx.With(ctx), track, completedWeekNumber+1, true)
	if err != nil {
		return nil, fmt.Errorf("find next week: %w", err)
	}
	if next == nil {
		p.log.Info("No next week; end of course", "student_id", studentID, "completed_week", completedWeekNumber)
		return nil, nil
	}
	entry, _, err := p.ledger.ApplyUnlock(ctx, studentID, next.ID, UnlockReasonPreviousWeek(completedWeekNumber), progress.UnlockedByAuto)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func UnlockReasonPreviousWeek(n int) string {
	return fmt.Sprintf("Previous week %d completed", n)
}
