package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/classweek-backend/internal/platform/apierr"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
	errs "github.com/yungbote/classweek-backend/internal/pkg/errors"
	"github.com/yungbote/classweek-backend/internal/services"
)

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Fields  []apierr.FieldError `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope with a status derived from err.
func RespondError(c *gin.Context, err error) {
	ae := Classify(err)
	msg := "unknown error"
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	if ae.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if ae.Status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{Message: msg, Code: ae.Code, Fields: ae.Fields},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// Classify maps a service error onto an HTTP status and code.
func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		fields := make([]apierr.FieldError, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, apierr.FieldError{Field: f.Field, Message: f.Error})
		}
		return apierr.BadRequest("validation_failed", err, fields...)
	}
	var se *services.StorageError
	switch {
	case errors.As(err, &se):
		return apierr.New(http.StatusBadGateway, "storage_unavailable", err)
	case errors.Is(err, services.ErrDuplicateSubmission):
		return apierr.Conflict("duplicate_submission", err)
	case errors.Is(err, services.ErrNotificationAlreadySent):
		return apierr.Conflict("notification_already_sent", err)
	case errors.Is(err, errs.ErrConflict):
		return apierr.Conflict("conflict", err)
	case errors.Is(err, services.ErrDeadlinePassed):
		return apierr.New(http.StatusUnprocessableEntity, "deadline_passed", err)
	case errors.Is(err, services.ErrNoGuardianContact):
		return apierr.New(http.StatusUnprocessableEntity, "no_guardian_contact", err)
	case errors.Is(err, errs.ErrPrecondition):
		return apierr.New(http.StatusUnprocessableEntity, "precondition_failed", err)
	case errors.Is(err, errs.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, errs.ErrInvalidArgument):
		return apierr.BadRequest("invalid_argument", err)
	case errors.Is(err, errs.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, errs.ErrForbidden):
		return apierr.New(http.StatusForbidden, "forbidden", err)
	default:
		return apierr.Internal(err)
	}
}
