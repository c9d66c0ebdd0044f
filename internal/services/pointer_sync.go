package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/data/dberr"
	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/httpx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

// PointerSync advances the cached User.currentWeek after a week completes.
// Implementations must be idempotent: replays for the same week are no-ops.
type PointerSync interface {
	Advance(ctx context.Context, studentID uuid.UUID, completed types.CompletedWeek) error
}

type inlinePointerSync struct {
	log      *logger.Logger
	users    repos.UserRepo
	attempts int
}

// NewInlinePointerSync writes the pointer in the request path, retrying transient store errors.
func NewInlinePointerSync(log *logger.Logger, users repos.UserRepo) PointerSync {
	return &inlinePointerSync{log: log.With("service", "PointerSync"), users: users, attempts: 3}
}

func (s *inlinePointerSync) Advance(ctx context.Context, studentID uuid.UUID, completed types.CompletedWeek) error {
	return AdvancePointer(ctx, s.log, s.users, studentID, completed, s.attempts)
}

// AdvancePointer moves currentWeek from completed.WeekNumber to the next week.
// A pointer that already moved is left untouched.
func AdvancePointer(ctx context.Context, log *logger.Logger, users repos.UserRepo, studentID uuid.UUID, completed types.CompletedWeek, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var advanced bool
		advanced, err = users.AdvanceWeek(dbctx.With(ctx), studentID, completed.WeekNumber, completed)
		if err == nil {
			if advanced {
				log.Info("Advanced current week", "student_id", studentID, "from", completed.WeekNumber, "to", completed.WeekNumber+1)
			} else {
				log.Debug("Current week already moved; skipping", "student_id", studentID, "from", completed.WeekNumber)
			}
			return nil
		}
		if !dberr.IsRetryable(err) || attempt == attempts {
			break
		}
		if serr := httpx.SleepContext(ctx, httpx.Backoff(50*time.Millisecond, time.Second, attempt)); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("advance current week: %w", err)
}
