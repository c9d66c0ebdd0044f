package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/pkg/pointers"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

type GradeInput struct {
	SubmissionID uuid.UUID `json:"-" validate:"required"`
	GraderID     uuid.UUID `json:"-"`
	Points       float64   `json:"points" validate:"gte=0,ltefield=MaxPoints"`
	MaxPoints    float64   `json:"max_points" validate:"gt=0"`
	Feedback     string    `json:"feedback" validate:"max=5000"`
}

type GradingService interface {
	Grade(ctx context.Context, in GradeInput) (*types.HomeworkSubmission, error)
	Return(ctx context.Context, submissionID uuid.UUID, feedback string) (*types.HomeworkSubmission, error)
}

type gradingService struct {
	log         *logger.Logger
	submissions repos.HomeworkSubmissionRepo
	progress    ProgressService
	now         func() time.Time
}

func NewGradingService(log *logger.Logger, submissions repos.HomeworkSubmissionRepo, progress ProgressService) GradingService {
	return &gradingService{
		log:         log.With("service", "GradingService"),
		submissions: submissions,
		progress:    progress,
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, in GradeInput) (*types.HomeworkSubmission, error) {
	if err := validate.Default().Struct(in); err != nil {
		return nil, err
	}
	dbc := dbctx.With(ctx)
	sub, err := s.load(dbc, in.SubmissionID)
	if err != nil {
		return nil, err
	}
	pct := submission.Percentage(in.Points, in.MaxPoints, sub.LatePenalty)
	grade := &submission.Grade{
		Points:      in.Points,
		MaxPoints:   in.MaxPoints,
		Percentage:  pct,
		LetterGrade: submission.LetterGrade(pct),
		GradedAt:    pointers.Time(s.now()),
	}
	if in.GraderID != uuid.Nil {
		grade.GradedBy = pointers.Ptr(in.GraderID)
	}
	feedback := strings.TrimSpace(in.Feedback)
	if err := s.submissions.UpdateReview(dbc, sub.ID, submission.StatusGraded, grade, feedback); err != nil {
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	sub.Status = submission.StatusGraded
	sub.Grade = *grade
	sub.Feedback = feedback
	s.reevaluate(ctx, sub)
	s.log.Info("Submission graded", "submission_id", sub.ID, "percentage", pct, "letter", grade.LetterGrade)
	return sub, nil
}

func (s *gradingService) Return(ctx context.Context, submissionID uuid.UUID, feedback string) (*types.HomeworkSubmission, error) {
	dbc := dbctx.With(ctx)
	sub, err := s.load(dbc, submissionID)
	if err != nil {
		return nil, err
	}
	feedback = strings.TrimSpace(feedback)
	if err := s.submissions.UpdateReview(dbc, sub.ID, submission.StatusReturned, nil, feedback); err != nil {
		return nil, fmt.Errorf("return submission: %w", err)
	}
	sub.Status = submission.StatusReturned
	sub.Feedback = feedback
	s.reevaluate(ctx, sub)
	return sub, nil
}

func (s *gradingService) load(dbc dbctx.Context, id uuid.UUID) (*types.HomeworkSubmission, error) {
	sub, err := s.submissions.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

// reevaluate refreshes the week score; a completed week stays completed.
func (s *gradingService) reevaluate(ctx context.Context, sub *types.HomeworkSubmission) {
	if _, _, err := s.progress.Reevaluate(ctx, sub.StudentID, sub.WeekID); err != nil {
		s.log.Warn("Re-evaluation after review failed", "submission_id", sub.ID, "error", err)
	}
}
