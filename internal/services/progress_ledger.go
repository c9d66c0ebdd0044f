package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/classweek-backend/internal/data/dberr"
	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

// LedgerMutation edits an entry in place and reports whether anything changed.
type LedgerMutation func(entry *types.StudentProgress) (changed bool, err error)

type ProgressLedger interface {
	Get(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error)
	// GetOrCreate returns the entry for (student, week), creating a locked not_started one if absent.
	GetOrCreate(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error)
	// Update runs fn on the entry under the (student, week) lock and persists it when changed.
	Update(ctx context.Context, studentID, weekID uuid.UUID, fn LedgerMutation) (*types.StudentProgress, error)
	// ApplyUnlock opens the week; the bool is false when it was already unlocked.
	ApplyUnlock(ctx context.Context, studentID, weekID uuid.UUID, reason string, by types.UnlockedBy) (*types.StudentProgress, bool, error)
}

type progressLedger struct {
	log    *logger.Logger
	repo   repos.StudentProgressRepo
	locker KeyLocker
	group  singleflight.Group
	now    func() time.Time
}

func NewProgressLedger(log *logger.Logger, repo repos.StudentProgressRepo, locker KeyLocker) ProgressLedger {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &progressLedger{
		log:    log.With("service", "ProgressLedger"),
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

func (l *progressLedger) Get(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error) {
	return l.repo.Get(dbctx.With(ctx), studentID, weekID)
}

func (l *progressLedger) GetOrCreate(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error) {
	v, err, _ := l.group.Do(progressLockKey(studentID, weekID), func() (any, error) {
		return l.getOrCreate(ctx, studentID, weekID)
	})
	if err != nil {
		return nil, err
	}
	// Callers mutate the entry; never share one pointer across singleflight waiters.
	entry := *v.(*types.StudentProgress)
	entry.CompletedMaterials = append([]string(nil), entry.CompletedMaterials...)
	return &entry, nil
}

func (l *progressLedger) getOrCreate(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error) {
	dbc := dbctx.With(ctx)
	existing, err := l.repo.Get(dbc, studentID, weekID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	entry := progress.New(studentID, weekID)
	if err := l.repo.Create(dbc, entry); err != nil {
		if !dberr.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create progress: %w", err)
		}
		l.log.Debug("Progress entry created concurrently; re-reading", "student_id", studentID, "week_id", weekID)
		existing, err = l.repo.Get(dbc, studentID, weekID)
		if err != nil {
			return nil, fmt.Errorf("re-read progress: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("progress entry vanished after unique violation")
		}
		return existing, nil
	}
	return entry, nil
}

func (l *progressLedger) Update(ctx context.Context, studentID, weekID uuid.UUID, fn LedgerMutation) (*types.StudentProgress, error) {
	unlock, err := l.locker.Lock(ctx, progressLockKey(studentID, weekID))
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}
	defer unlock()

	entry, err := l.GetOrCreate(ctx, studentID, weekID)
	if err != nil {
		return nil, err
	}
	changed, err := fn(entry)
	if err != nil {
		return nil, err
	}
	if !changed {
		return entry, nil
	}
	if err := l.repo.Save(dbctx.With(ctx), entry); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return entry, nil
}

func (l *progressLedger) ApplyUnlock(ctx context.Context, studentID, weekID uuid.UUID, reason string, by types.UnlockedBy) (*types.StudentProgress, bool, error) {
	if !by.Valid() {
		return nil, false, fmt.Errorf("invalid unlocked_by %q", by)
	}
	unlocked := false
	entry, err := l.Update(ctx, studentID, weekID, func(entry *types.StudentProgress) (bool, error) {
		unlocked = entry.Unlock(by, reason, l.now())
		return unlocked, nil
	})
	if err != nil {
		return nil, false, err
	}
	if unlocked {
		l.log.Info("Week unlocked", "student_id", studentID, "week_id", weekID, "by", by, "reason", reason)
	}
	return entry, unlocked, nil
}
