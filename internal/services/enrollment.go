package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

const EnrollmentUnlockReason = "Enrolled"

type RegisterStudentInput struct {
	Name          string `json:"name" validate:"notblank,max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	Year          int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Curriculum    string `json:"curriculum" validate:"notblank"`
	StudentType   string `json:"student_type" validate:"notblank"`
	GuardianName  string `json:"guardian_name" validate:"max=200"`
	GuardianPhone string `json:"guardian_phone" validate:"omitempty,e164"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

type EnrollmentService interface {
	// Register creates a student and opens week 1 of the student's track.
	Register(ctx context.Context, in RegisterStudentInput) (*types.User, *types.StudentProgress, error)
	Get(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type enrollmentService struct {
	log    *logger.Logger
	users  repos.UserRepo
	weeks  repos.WeekRepo
	ledger ProgressLedger
}

func NewEnrollmentService(log *logger.Logger, users repos.UserRepo, weeks repos.WeekRepo, ledger ProgressLedger) EnrollmentService {
	return &enrollmentService{
		log:    log.With("service", "EnrollmentService"),
		users:  users,
		weeks:  weeks,
		ledger: ledger,
	}
}

func (s *enrollmentService) Register(ctx context.Context, in RegisterStudentInput) (*types.User, *types.StudentProgress, error) {
	if err := validate.Default().Struct(in); err != nil {
		return nil, nil, err
	}
	dbc := dbctx.With(ctx)
	student := &types.User{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Role:          user.RoleStudent,
		Year:          in.Year,
		Curriculum:    strings.TrimSpace(in.Curriculum),
		StudentType:   strings.TrimSpace(in.StudentType),
		CurrentWeek:   1,
		GuardianName:  strings.TrimSpace(in.GuardianName),
		GuardianPhone: strings.TrimSpace(in.GuardianPhone),
		GuardianEmail: strings.ToLower(strings.TrimSpace(in.GuardianEmail)),
	}
	if _, err := s.users.Create(dbc, []*types.User{student}); err != nil {
		return nil, nil, fmt.Errorf("create student: %w", err)
	}

	first, err := s.weeks.GetByTrackNumber(dbc, studentTrack(student), 1, true)
	if err != nil {
		return student, nil, fmt.Errorf("find first week: %w", err)
	}
	if first == nil {
		s.log.Warn("Student enrolled on a track without week 1", "student_id", student.ID, "curriculum", student.Curriculum)
		return student, nil, nil
	}
	entry, _, err := s.ledger.ApplyUnlock(ctx, student.ID, first.ID, EnrollmentUnlockReason, progress.UnlockedByAuto)
	if err != nil {
		return student, nil, err
	}
	s.log.Info("Student enrolled", "student_id", student.ID, "week_id", first.ID)
	return student, entry, nil
}

func (s *enrollmentService) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	u, err := s.users.GetByID(dbctx.With(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrStudentNotFound
	}
	return u, nil
}

func studentTrack(u *types.User) types.Track {
	return types.Track{Year: u.Year, Curriculum: u.Curriculum, StudentType: u.StudentType}
}
