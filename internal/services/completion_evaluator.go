package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type Evaluation struct {
	Score          int `json:"score"`
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
}

type CompletionEvaluator interface {
	// Evaluate recomputes the week score from persisted state without writing.
	Evaluate(ctx context.Context, studentID, weekID uuid.UUID) (Evaluation, error)
	// EvaluateCompleted is Evaluate with the completed-material set supplied by the caller,
	// for use inside a ledger update that has not been written yet.
	EvaluateCompleted(ctx context.Context, studentID, weekID uuid.UUID, completed []string) (Evaluation, error)
}

type completionEvaluator struct {
	log         *logger.Logger
	resolver    MaterialResolver
	progress    repos.StudentProgressRepo
	submissions repos.HomeworkSubmissionRepo
}

func NewCompletionEvaluator(log *logger.Logger, resolver MaterialResolver, progressRepo repos.StudentProgressRepo, submissions repos.HomeworkSubmissionRepo) CompletionEvaluator {
	return &completionEvaluator{
		log:         log.With("service", "CompletionEvaluator"),
		resolver:    resolver,
		progress:    progressRepo,
		submissions: submissions,
	}
}

func (e *completionEvaluator) Evaluate(ctx context.Context, studentID, weekID uuid.UUID) (Evaluation, error) {
	entry, err := e.progress.Get(dbctx.With(ctx), studentID, weekID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("load progress: %w", err)
	}
	var completed []string
	if entry != nil {
		completed = entry.CompletedMaterials
	}
	return e.EvaluateCompleted(ctx, studentID, weekID, completed)
}

func (e *completionEvaluator) EvaluateCompleted(ctx context.Context, studentID, weekID uuid.UUID, completed []string) (out Evaluation, err error) {
	ctx, span := observability.StartSpan(ctx, "progress.evaluate",
		attribute.String("student_id", studentID.String()),
		attribute.String("week_id", weekID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	var (
		materials []types.Material
		subs      []*types.HomeworkSubmission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := e.resolver.Resolve(gctx, weekID)
		materials = m
		return err
	})
	g.Go(func() error {
		s, err := e.submissions.ListByStudentWeek(dbctx.With(gctx), studentID, weekID)
		if err != nil {
			return fmt.Errorf("load submissions: %w", err)
		}
		subs = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return Evaluation{}, err
	}
	out = EvaluateMaterials(materials, completed, subs)
	span.SetAttributes(attribute.Int("score", out.Score), attribute.Int("total", out.TotalCount))
	return out, nil
}

// EvaluateMaterials counts done materials: homework by a counting submission, everything
// else by presence of its id or original id in completed.
func EvaluateMaterials(materials []types.Material, completed []string, subs []*types.HomeworkSubmission) Evaluation {
	viewed := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		viewed[course.NormalizeMaterialID(id)] = struct{}{}
	}
	submitted := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		if s != nil && s.Status.CountsAsDone() {
			submitted[course.NormalizeMaterialID(s.MaterialID)] = struct{}{}
		}
	}

	done := 0
	for _, m := range materials {
		set := viewed
		if m.IsHomework() {
			set = submitted
		}
		if containsMaterial(set, m) {
			done++
		}
	}
	return Evaluation{
		Score:          progress.ComputeScore(done, len(materials)),
		CompletedCount: done,
		TotalCount:     len(materials),
	}
}

func containsMaterial(set map[string]struct{}, m types.Material) bool {
	if _, ok := set[course.NormalizeMaterialID(m.ID)]; ok {
		return true
	}
	if m.OriginalMaterialID != "" {
		if _, ok := set[m.OriginalMaterialID]; ok {
			return true
		}
	}
	return false
}
