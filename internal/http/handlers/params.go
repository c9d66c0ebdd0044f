package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/http/middleware"
	"github.com/yungbote/classweek-backend/internal/platform/apierr"
	"github.com/yungbote/classweek-backend/internal/platform/ctxutil"
)

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.BadRequest("invalid_"+name, fmt.Errorf("invalid %s %q", name, raw),
			apierr.FieldError{Field: name, Message: name + " must be a uuid"})
	}
	return id, nil
}

func caller(c *gin.Context) (*ctxutil.RequestData, error) {
	rd, ok := middleware.Caller(c.Request.Context())
	if !ok {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing caller"))
	}
	return rd, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.BadRequest("invalid_request", err)
	}
	return nil
}
