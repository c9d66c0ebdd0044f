package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/http/response"
	"github.com/yungbote/classweek-backend/internal/platform/apierr"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
	"github.com/yungbote/classweek-backend/internal/services"
)

// multipart framing allowance on top of the file cap
const formOverheadBytes = 1 << 20

type SubmissionHandler struct {
	log         *logger.Logger
	submissions services.SubmissionService
}

func NewSubmissionHandler(log *logger.Logger, submissions services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{log: log.With("handler", "SubmissionHandler"), submissions: submissions}
}

// POST /api/weeks/:id/materials/:materialId/submissions
// multipart: file, comment
func (sh *SubmissionHandler) Submit(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	weekID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadBytes+formOverheadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "file is required"
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("file exceeds %d bytes", services.MaxUploadBytes)
		}
		response.RespondError(c, validate.NewValidationError(validate.ErrInvalid, validate.FieldError{Field: "file", Error: msg}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, apierr.BadRequest("invalid_file", err))
		return
	}
	defer f.Close()

	sub, err := sh.submissions.Submit(c.Request.Context(), services.SubmitInput{
		StudentID:   rd.UserID,
		WeekID:      weekID,
		MaterialID:  c.Param("materialId"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Reader:      f,
		Comment:     c.PostForm("comment"),
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"submission": sub})
}

// GET /api/submissions/:id/file
func (sh *SubmissionHandler) DownloadFile(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	sub, err := sh.submissions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	// students only see their own uploads; answer 404 rather than leak existence
	if sub.StudentID != rd.UserID && !user.Role(rd.Role).IsStaff() {
		response.RespondError(c, services.ErrSubmissionNotFound)
		return
	}
	sub, rc, err := sh.submissions.OpenFile(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	defer rc.Close()

	contentType := sub.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sub.FileName}))
	if sub.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(sub.FileSize, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		sh.log.Warn("Submission download interrupted", "submission_id", id, "error", err)
	}
}
