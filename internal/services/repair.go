package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type RepairResult struct {
	StudentID      uuid.UUID `json:"student_id"`
	PreviousWeek   int       `json:"previous_week"`
	CurrentWeek    int       `json:"current_week"`
	CompletedWeeks int       `json:"completed_weeks"`
	Changed        bool      `json:"changed"`
}

// RepairService rebuilds the User week pointer from the progress ledger.
type RepairService interface {
	RecomputeStudent(ctx context.Context, studentID uuid.UUID) (RepairResult, error)
	RecomputeAll(ctx context.Context, concurrency int) ([]RepairResult, error)
}

type repairService struct {
	log        *logger.Logger
	users      repos.UserRepo
	weeks      repos.WeekRepo
	progress   repos.StudentProgressRepo
	ledger     ProgressLedger
	propagator UnlockPropagator
}

func NewRepairService(log *logger.Logger, users repos.UserRepo, weeks repos.WeekRepo, progressRepo repos.StudentProgressRepo, ledger ProgressLedger, propagator UnlockPropagator) RepairService {
	return &repairService{
		log:        log.With("service", "RepairService"),
		users:      users,
		weeks:      weeks,
		progress:   progressRepo,
		ledger:     ledger,
		propagator: propagator,
	}
}

func (s *repairService) RecomputeStudent(ctx context.Context, studentID uuid.UUID) (RepairResult, error) {
	dbc := dbctx.With(ctx)
	student, err := s.users.GetByID(dbc, studentID)
	if err != nil {
		return RepairResult{}, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return RepairResult{}, ErrStudentNotFound
	}
	track := studentTrack(student)
	weeks, err := s.weeks.ListByTrack(dbc, track, true)
	if err != nil {
		return RepairResult{}, fmt.Errorf("list weeks: %w", err)
	}
	entries, err := s.progress.ListByStudent(dbc, studentID)
	if err != nil {
		return RepairResult{}, fmt.Errorf("list progress: %w", err)
	}

	current, history := RebuildPointer(weeks, entries)
	res := RepairResult{
		StudentID:      studentID,
		PreviousWeek:   student.CurrentWeek,
		CurrentWeek:    current,
		CompletedWeeks: len(history),
	}
	if current != student.CurrentWeek || !sameHistory(student.CompletedWeeks, history) {
		if err := s.users.SetWeekState(dbc, studentID, current, history); err != nil {
			return res, fmt.Errorf("write week state: %w", err)
		}
		res.Changed = true
		s.log.Info("Repaired week pointer", "student_id", studentID, "from", student.CurrentWeek, "to", current)
	}

	if current > 1 {
		if _, err := s.propagator.UnlockNext(ctx, studentID, track, current-1); err != nil {
			return res, err
		}
	} else if first, err := s.weeks.GetByTrackNumber(dbc, track, 1, true); err != nil {
		return res, fmt.Errorf("find first week: %w", err)
	} else if first != nil {
		if _, _, err := s.ledger.ApplyUnlock(ctx, studentID, first.ID, EnrollmentUnlockReason, progress.UnlockedByAuto); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *repairService) RecomputeAll(ctx context.Context, concurrency int) ([]RepairResult, error) {
	ids, err := s.users.ListStudentIDs(dbctx.With(ctx))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	var (
		mu      sync.Mutex
		results = make([]RepairResult, 0, len(ids))
		errs    []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := s.RecomputeStudent(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("Repair failed for student", "student_id", id, "error", err)
				errs = append(errs, fmt.Errorf("student %s: %w", id, err))
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// RebuildPointer derives currentWeek as one past the longest run of completed weeks
// starting at week 1, and completedWeeks from every completed ledger entry.
func RebuildPointer(weeks []*types.Week, entries []*types.StudentProgress) (int, []types.CompletedWeek) {
	byWeek := make(map[uuid.UUID]*types.StudentProgress, len(entries))
	for _, e := range entries {
		byWeek[e.WeekID] = e
	}
	sorted := slices.Clone(weeks)
	slices.SortFunc(sorted, func(a, b *types.Week) int { return a.WeekNumber - b.WeekNumber })

	current := 1
	prefixOpen := true
	history := make([]types.CompletedWeek, 0)
	for _, w := range sorted {
		e := byWeek[w.ID]
		done := e != nil && e.IsCompleted()
		if prefixOpen {
			if w.WeekNumber == current && done {
				current++
			} else if w.WeekNumber >= current {
				prefixOpen = false
			}
		}
		if done {
			cw := types.CompletedWeek{WeekNumber: w.WeekNumber, Score: e.Score}
			if e.CompletedAt != nil {
				cw.CompletedAt = *e.CompletedAt
			} else {
				cw.CompletedAt = e.UpdatedAt
			}
			history = append(history, cw)
		}
	}
	return current, history
}

func sameHistory(a, b []types.CompletedWeek) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].WeekNumber != b[i].WeekNumber || a[i].Score != b[i].Score {
			return false
		}
	}
	return true
}
