package submission

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type HomeworkSubmissionRepo interface {
	// Create inserts s; a second submission for the same (student, week, material) is a unique violation.
	Create(dbc dbctx.Context, s *types.HomeworkSubmission) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.HomeworkSubmission, error)
	GetByKey(dbc dbctx.Context, studentID, weekID uuid.UUID, materialID string) (*types.HomeworkSubmission, error)
	ListByStudentWeek(dbc dbctx.Context, studentID, weekID uuid.UUID) ([]*types.HomeworkSubmission, error)
	UpdateReview(dbc dbctx.Context, id uuid.UUID, status types.SubmissionStatus, grade *submission.Grade, feedback string) error
	UpdateNotification(dbc dbctx.Context, id uuid.UUID, n submission.Notification) error
}

type homeworkSubmissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHomeworkSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) HomeworkSubmissionRepo {
	return &homeworkSubmissionRepo{db: db, log: baseLog.With("repo", "HomeworkSubmissionRepo")}
}

func (r *homeworkSubmissionRepo) Create(dbc dbctx.Context, s *types.HomeworkSubmission) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Context()).Create(s).Error
}

func (r *homeworkSubmissionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.HomeworkSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HomeworkSubmission
	if err := transaction.WithContext(dbc.Context()).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *homeworkSubmissionRepo) GetByKey(dbc dbctx.Context, studentID, weekID uuid.UUID, materialID string) (*types.HomeworkSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HomeworkSubmission
	if err := transaction.WithContext(dbc.Context()).
		Where("student_id = ? AND week_id = ? AND material_id = ?", studentID, weekID, materialID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *homeworkSubmissionRepo) ListByStudentWeek(dbc dbctx.Context, studentID, weekID uuid.UUID) ([]*types.HomeworkSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.HomeworkSubmission
	if err := transaction.WithContext(dbc.Context()).
		Where("student_id = ? AND week_id = ?", studentID, weekID).
		Order("submitted_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *homeworkSubmissionRepo) UpdateReview(dbc dbctx.Context, id uuid.UUID, status types.SubmissionStatus, grade *submission.Grade, feedback string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]any{
		"status":     status,
		"feedback":   feedback,
		"updated_at": time.Now().UTC(),
	}
	if grade != nil {
		updates["grade_points"] = grade.Points
		updates["grade_max_points"] = grade.MaxPoints
		updates["grade_percentage"] = grade.Percentage
		updates["grade_letter_grade"] = grade.LetterGrade
		updates["grade_graded_by"] = grade.GradedBy
		updates["grade_graded_at"] = grade.GradedAt
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.HomeworkSubmission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *homeworkSubmissionRepo) UpdateNotification(dbc dbctx.Context, id uuid.UUID, n submission.Notification) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.HomeworkSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notification_status":              n.State,
			"notification_channel":             n.Channel,
			"notification_provider_message_id": n.ProviderMessageID,
			"notification_last_error":          n.LastError,
			"notification_attempts":            n.Attempts,
			"notification_last_attempt_at":     n.LastAttemptAt,
			"updated_at":                       time.Now().UTC(),
		}).Error
}
