package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/classweek-backend/internal/data/dberr"
	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

// MaxUploadBytes caps a single homework file.
const MaxUploadBytes int64 = 10 << 20

type SubmitInput struct {
	StudentID   uuid.UUID `json:"student_id" validate:"required"`
	WeekID      uuid.UUID `json:"week_id" validate:"required"`
	MaterialID  string    `json:"material_id" validate:"notblank"`
	FileName    string    `json:"file_name" validate:"notblank,max=255"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size" validate:"gt=0"`
	Reader      io.Reader `json:"-"`
	Comment     string    `json:"comment" validate:"max=2000"`
}

type SubmissionService interface {
	Submit(ctx context.Context, in SubmitInput) (*types.HomeworkSubmission, error)
	Get(ctx context.Context, submissionID uuid.UUID) (*types.HomeworkSubmission, error)
	ListForWeek(ctx context.Context, studentID, weekID uuid.UUID) ([]*types.HomeworkSubmission, error)
	// OpenFile streams the stored upload; the caller closes the reader.
	OpenFile(ctx context.Context, submissionID uuid.UUID) (*types.HomeworkSubmission, io.ReadCloser, error)
	// ResendNotification re-queues a pending or failed guardian notice.
	ResendNotification(ctx context.Context, submissionID uuid.UUID) error
}

type submissionService struct {
	log         *logger.Logger
	submissions repos.HomeworkSubmissionRepo
	progress    ProgressService
	storage     FileStorage
	locker      KeyLocker
	queue       NotificationQueue
	now         func() time.Time
}

type SubmissionServiceDeps struct {
	Submissions repos.HomeworkSubmissionRepo
	Progress    ProgressService
	Storage     FileStorage
	Locker      KeyLocker
	Queue       NotificationQueue
}

func NewSubmissionService(log *logger.Logger, deps SubmissionServiceDeps) SubmissionService {
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &submissionService{
		log:         log.With("service", "SubmissionService"),
		submissions: deps.Submissions,
		progress:    deps.Progress,
		storage:     deps.Storage,
		locker:      locker,
		queue:       deps.Queue,
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, in SubmitInput) (out *types.HomeworkSubmission, err error) {
	ctx, span := observability.StartSpan(ctx, "submission.submit",
		attribute.String("student_id", in.StudentID.String()),
		attribute.String("week_id", in.WeekID.String()),
		attribute.String("material_id", in.MaterialID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := validateSubmitInput(in); err != nil {
		return nil, err
	}

	_, materials, err := s.progress.WeekMaterials(ctx, in.WeekID)
	if err != nil {
		return nil, err
	}
	material, ok := FindMaterial(materials, in.MaterialID)
	if !ok {
		return nil, ErrMaterialNotFound
	}
	if !material.IsHomework() {
		return nil, validate.NewValidationError(validate.ErrInvalid,
			validate.FieldError{Field: "material_id", Error: "material is not homework"})
	}
	materialID := course.NormalizeMaterialID(material.CanonicalID())

	dbc := dbctx.With(ctx)
	if existing, err := s.submissions.GetByKey(dbc, in.StudentID, in.WeekID, materialID); err != nil {
		return nil, fmt.Errorf("check existing submission: %w", err)
	} else if existing != nil {
		return nil, ErrDuplicateSubmission
	}

	now := s.now().UTC()
	isLate, penalty, err := ApplyLatePolicy(material, now)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, submissionLockKey(in.StudentID, in.WeekID, materialID))
	if err != nil {
		return nil, fmt.Errorf("lock submission: %w", err)
	}
	sub, err := s.store(ctx, in, material, materialID, now, isLate, penalty)
	unlock()
	if err != nil {
		return nil, err
	}

	if _, _, err := s.progress.Reevaluate(ctx, in.StudentID, in.WeekID); err != nil {
		s.log.Warn("Re-evaluation after submission failed", "submission_id", sub.ID, "student_id", in.StudentID, "error", err)
	}
	s.enqueueNotification(ctx, sub.ID)

	s.log.Info("Homework submitted", "submission_id", sub.ID, "student_id", in.StudentID, "late", isLate)
	return sub, nil
}

// store uploads the file and inserts the row; it runs under the submission key lock.
func (s *submissionService) store(ctx context.Context, in SubmitInput, material types.Material, materialID string, now time.Time, isLate bool, penalty int) (*types.HomeworkSubmission, error) {
	dbc := dbctx.With(ctx)
	if existing, err := s.submissions.GetByKey(dbc, in.StudentID, in.WeekID, materialID); err != nil {
		return nil, fmt.Errorf("check existing submission: %w", err)
	} else if existing != nil {
		return nil, ErrDuplicateSubmission
	}

	key := submissionObjectKey(in.StudentID, in.WeekID, materialID, in.FileName)
	body := &countingReader{r: io.LimitReader(in.Reader, MaxUploadBytes+1)}
	stored, err := s.storage.Upload(ctx, key, body, in.ContentType)
	if err != nil {
		return nil, &StorageError{Op: "upload", Err: err}
	}
	if body.n > MaxUploadBytes {
		s.discardUpload(ctx, stored.ID)
		return nil, fileTooLarge()
	}

	status := submission.StatusSubmitted
	if isLate {
		status = submission.StatusLate
	}
	sub := &types.HomeworkSubmission{
		ID:            uuid.New(),
		StudentID:     in.StudentID,
		WeekID:        in.WeekID,
		MaterialID:    materialID,
		MaterialTitle: material.Title,
		FileName:      strings.TrimSpace(in.FileName),
		FileURL:       stored.URL,
		FileKey:       stored.ID,
		ContentType:   in.ContentType,
		FileSize:      body.n,
		Comment:       strings.TrimSpace(in.Comment),
		SubmittedAt:   now,
		IsLate:        isLate,
		LatePenalty:   penalty,
		Status:        status,
		Notification:  submission.Notification{State: submission.NotificationPending},
	}
	if err := s.submissions.Create(dbc, sub); err != nil {
		s.discardUpload(ctx, stored.ID)
		if dberr.IsUniqueViolation(err) {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

func (s *submissionService) discardUpload(ctx context.Context, id string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("Failed to remove orphaned upload", "file_id", id, "error", err)
	}
}

func (s *submissionService) enqueueNotification(ctx context.Context, submissionID uuid.UUID) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(context.WithoutCancel(ctx), submissionID); err != nil {
		s.log.Warn("Failed to enqueue guardian notification", "submission_id", submissionID, "error", err)
	}
}

// ApplyLatePolicy decides lateness against the material deadline at now.
// Late submissions carry the material's flat penalty regardless of how late they are.
func ApplyLatePolicy(m types.Material, now time.Time) (isLate bool, penalty int, err error) {
	if m.DueDateTime == nil || !now.After(*m.DueDateTime) {
		return false, 0, nil
	}
	if !m.AllowLateSubmission {
		return false, 0, ErrDeadlinePassed
	}
	penalty = m.LatePenaltyPercent
	if penalty < 0 {
		penalty = 0
	}
	if penalty > 100 {
		penalty = 100
	}
	return true, penalty, nil
}

func validateSubmitInput(in SubmitInput) error {
	var fields []validate.FieldError
	if in.Reader == nil {
		fields = append(fields, validate.FieldError{Field: "file", Error: "file is required"})
	}
	if in.Size > MaxUploadBytes {
		fields = append(fields, fileSizeField())
	}
	if len(fields) > 0 {
		return validate.NewValidationError(validate.ErrInvalid, fields...)
	}
	return validate.Default().Struct(in)
}

func fileSizeField() validate.FieldError {
	return validate.FieldError{Field: "file", Error: fmt.Sprintf("file exceeds %d MB", MaxUploadBytes>>20)}
}

func fileTooLarge() error {
	return validate.NewValidationError(validate.ErrInvalid, fileSizeField())
}

// countingReader records how many bytes the storage backend actually consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *submissionService) Get(ctx context.Context, submissionID uuid.UUID) (*types.HomeworkSubmission, error) {
	sub, err := s.submissions.GetByID(dbctx.With(ctx), submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *submissionService) ListForWeek(ctx context.Context, studentID, weekID uuid.UUID) ([]*types.HomeworkSubmission, error) {
	subs, err := s.submissions.ListByStudentWeek(dbctx.With(ctx), studentID, weekID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (s *submissionService) OpenFile(ctx context.Context, submissionID uuid.UUID) (*types.HomeworkSubmission, io.ReadCloser, error) {
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, sub.FileURL)
	if err != nil {
		return nil, nil, &StorageError{Op: "download", Err: err}
	}
	return sub, rc, nil
}

func (s *submissionService) ResendNotification(ctx context.Context, submissionID uuid.UUID) error {
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Notification.State == submission.NotificationSent {
		return ErrNotificationAlreadySent
	}
	if s.queue == nil {
		return fmt.Errorf("notification queue not configured")
	}
	return s.queue.Enqueue(ctx, submissionID)
}
