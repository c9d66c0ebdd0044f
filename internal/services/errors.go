package services

import (
	"errors"
	"fmt"

	errs "github.com/yungbote/classweek-backend/internal/pkg/errors"
)

var (
	ErrStudentNotFound    = fmt.Errorf("student %w", errs.ErrNotFound)
	ErrWeekNotFound       = fmt.Errorf("week %w", errs.ErrNotFound)
	ErrMaterialNotFound   = fmt.Errorf("material %w", errs.ErrNotFound)
	ErrSubmissionNotFound = fmt.Errorf("submission %w", errs.ErrNotFound)

	// ErrDuplicateSubmission is returned for a second submission of the same homework.
	ErrDuplicateSubmission = fmt.Errorf("homework already submitted: %w", errs.ErrConflict)
	ErrDeadlinePassed      = fmt.Errorf("submission deadline has passed: %w", errs.ErrPrecondition)

	ErrNotificationAlreadySent = fmt.Errorf("notification already sent: %w", errs.ErrConflict)
	ErrNoGuardianContact       = fmt.Errorf("student has no guardian contact: %w", errs.ErrPrecondition)
)

// StorageError wraps a file storage collaborator failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("file storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
