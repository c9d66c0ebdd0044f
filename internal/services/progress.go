package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

// WeekView is one week of a student's track with its ledger state.
type WeekView struct {
	Week       *types.Week            `json:"week"`
	Progress   *types.StudentProgress `json:"progress,omitempty"`
	IsCurrent  bool                   `json:"is_current"`
	IsUnlocked bool                   `json:"is_unlocked"`
}

type ProgressService interface {
	// RecordMaterialViewed set-adds the material, re-evaluates and runs the completion trigger.
	RecordMaterialViewed(ctx context.Context, studentID, weekID uuid.UUID, materialID string) (*types.StudentProgress, error)
	// Reevaluate writes the current evaluation back to the ledger and runs the completion trigger.
	Reevaluate(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, Evaluation, error)
	WeekProgress(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, Evaluation, error)
	WeekMaterials(ctx context.Context, weekID uuid.UUID) (*types.Week, []types.Material, error)
	ListWeeks(ctx context.Context, studentID uuid.UUID) ([]WeekView, error)
	// UnlockWeek is the manual/admin override.
	UnlockWeek(ctx context.Context, studentID, weekID uuid.UUID, reason string, by types.UnlockedBy) (*types.StudentProgress, error)
}

type progressService struct {
	log        *logger.Logger
	users      repos.UserRepo
	weeks      repos.WeekRepo
	ledgerRepo repos.StudentProgressRepo
	resolver   MaterialResolver
	evaluator  CompletionEvaluator
	ledger     ProgressLedger
	propagator UnlockPropagator
	pointer    PointerSync
	now        func() time.Time
}

type ProgressServiceDeps struct {
	Users      repos.UserRepo
	Weeks      repos.WeekRepo
	Progress   repos.StudentProgressRepo
	Resolver   MaterialResolver
	Evaluator  CompletionEvaluator
	Ledger     ProgressLedger
	Propagator UnlockPropagator
	Pointer    PointerSync
}

func NewProgressService(log *logger.Logger, deps ProgressServiceDeps) ProgressService {
	return &progressService{
		log:        log.With("service", "ProgressService"),
		users:      deps.Users,
		weeks:      deps.Weeks,
		ledgerRepo: deps.Progress,
		resolver:   deps.Resolver,
		evaluator:  deps.Evaluator,
		ledger:     deps.Ledger,
		propagator: deps.Propagator,
		pointer:    deps.Pointer,
		now:        time.Now,
	}
}

func (s *progressService) RecordMaterialViewed(ctx context.Context, studentID, weekID uuid.UUID, materialID string) (out *types.StudentProgress, err error) {
	ctx, span := observability.StartSpan(ctx, "progress.record_viewed",
		attribute.String("student_id", studentID.String()),
		attribute.String("week_id", weekID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(materialID) == "" {
		return nil, validate.NewValidationError(validate.ErrInvalid, validate.FieldError{Field: "material_id", Error: "material_id is required"})
	}
	week, materials, err := s.WeekMaterials(ctx, weekID)
	if err != nil {
		return nil, err
	}
	material, ok := FindMaterial(materials, materialID)
	if !ok {
		return nil, ErrMaterialNotFound
	}
	if material.IsHomework() {
		return nil, validate.NewValidationError(validate.ErrInvalid, validate.FieldError{Field: "material_id", Error: "use submission for homework"})
	}
	id := course.NormalizeMaterialID(material.CanonicalID())

	entry, err := s.ledger.Update(ctx, studentID, weekID, func(entry *types.StudentProgress) (bool, error) {
		added := entry.AddCompleted(id)
		if !added && entry.IsCompleted() {
			return false, nil
		}
		eval, err := s.evaluator.EvaluateCompleted(ctx, studentID, weekID, entry.CompletedMaterials)
		if err != nil {
			return false, err
		}
		prevScore, prevStatus := entry.Score, entry.Status
		entry.ApplyScore(eval.Score, s.now())
		return added || entry.Score != prevScore || entry.Status != prevStatus, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, studentID, week, entry)
	return entry, nil
}

func (s *progressService) Reevaluate(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, Evaluation, error) {
	week, err := s.weeks.GetByID(dbctx.With(ctx), weekID)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, Evaluation{}, ErrWeekNotFound
	}
	var eval Evaluation
	entry, err := s.ledger.Update(ctx, studentID, weekID, func(entry *types.StudentProgress) (bool, error) {
		var err error
		eval, err = s.evaluator.EvaluateCompleted(ctx, studentID, weekID, entry.CompletedMaterials)
		if err != nil {
			return false, err
		}
		prevScore, prevStatus := entry.Score, entry.Status
		entry.ApplyScore(eval.Score, s.now())
		return entry.Score != prevScore || entry.Status != prevStatus, nil
	})
	if err != nil {
		return nil, Evaluation{}, err
	}
	s.afterWrite(ctx, studentID, week, entry)
	return entry, eval, nil
}

// afterWrite is the completion trigger: a completed week that is the student's current
// week unlocks the next one and advances the pointer. Failures are left for repair.
func (s *progressService) afterWrite(ctx context.Context, studentID uuid.UUID, week *types.Week, entry *types.StudentProgress) {
	if entry == nil || !entry.IsCompleted() {
		return
	}
	student, err := s.users.GetByID(dbctx.With(ctx), studentID)
	if err != nil {
		s.log.Warn("Completion trigger: load student failed", "student_id", studentID, "error", err)
		return
	}
	if student == nil || student.CurrentWeek != week.WeekNumber {
		return
	}
	if _, err := s.propagator.UnlockNext(ctx, studentID, week.Track(), week.WeekNumber); err != nil {
		s.log.Warn("Completion trigger: unlock next failed", "student_id", studentID, "week_number", week.WeekNumber, "error", err)
		return
	}
	completedAt := s.now().UTC()
	if entry.CompletedAt != nil {
		completedAt = *entry.CompletedAt
	}
	err = s.pointer.Advance(ctx, studentID, types.CompletedWeek{
		WeekNumber:  week.WeekNumber,
		CompletedAt: completedAt,
		Score:       entry.Score,
	})
	if err != nil {
		s.log.Warn("Completion trigger: pointer advance failed", "student_id", studentID, "week_number", week.WeekNumber, "error", err)
	}
}

func (s *progressService) WeekProgress(ctx context.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, Evaluation, error) {
	week, err := s.weeks.GetByID(dbctx.With(ctx), weekID)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, Evaluation{}, ErrWeekNotFound
	}
	entry, err := s.ledger.GetOrCreate(ctx, studentID, weekID)
	if err != nil {
		return nil, Evaluation{}, err
	}
	eval, err := s.evaluator.EvaluateCompleted(ctx, studentID, weekID, entry.CompletedMaterials)
	if err != nil {
		return nil, Evaluation{}, err
	}
	return entry, eval, nil
}

func (s *progressService) WeekMaterials(ctx context.Context, weekID uuid.UUID) (*types.Week, []types.Material, error) {
	week, err := s.weeks.GetByID(dbctx.With(ctx), weekID)
	if err != nil {
		return nil, nil, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, nil, ErrWeekNotFound
	}
	materials, err := s.resolver.ResolveWeek(ctx, week)
	if err != nil {
		return nil, nil, err
	}
	return week, materials, nil
}

func (s *progressService) ListWeeks(ctx context.Context, studentID uuid.UUID) ([]WeekView, error) {
	dbc := dbctx.With(ctx)
	student, err := s.users.GetByID(dbc, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	weeks, err := s.weeks.ListByTrack(dbc, types.Track{
		Year:        student.Year,
		Curriculum:  student.Curriculum,
		StudentType: student.StudentType,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	entries, err := s.ledgerRepo.ListByStudent(dbc, studentID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	byWeek := make(map[uuid.UUID]*types.StudentProgress, len(entries))
	for _, e := range entries {
		byWeek[e.WeekID] = e
	}
	out := make([]WeekView, 0, len(weeks))
	for _, w := range weeks {
		entry := byWeek[w.ID]
		out = append(out, WeekView{
			Week:       w,
			Progress:   entry,
			IsCurrent:  w.WeekNumber == student.CurrentWeek,
			IsUnlocked: entry != nil && entry.Access.IsUnlocked,
		})
	}
	return out, nil
}

func (s *progressService) UnlockWeek(ctx context.Context, studentID, weekID uuid.UUID, reason string, by types.UnlockedBy) (*types.StudentProgress, error) {
	if by != progress.UnlockedByManual && by != progress.UnlockedByAdmin {
		return nil, validate.NewValidationError(validate.ErrInvalid, validate.FieldError{Field: "unlocked_by", Error: "unlocked_by must be manual or admin"})
	}
	dbc := dbctx.With(ctx)
	student, err := s.users.GetByID(dbc, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}
	week, err := s.weeks.GetByID(dbc, weekID)
	if err != nil {
		return nil, fmt.Errorf("load week: %w", err)
	}
	if week == nil {
		return nil, ErrWeekNotFound
	}
	if strings.TrimSpace(reason) == "" {
		reason = fmt.Sprintf("Unlocked by %s", by)
	}
	entry, _, err := s.ledger.ApplyUnlock(ctx, studentID, weekID, reason, by)
	return entry, err
}
