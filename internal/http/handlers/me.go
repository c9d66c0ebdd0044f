package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/classweek-backend/internal/http/response"
	"github.com/yungbote/classweek-backend/internal/services"
)

type MeHandler struct {
	enrollment services.EnrollmentService
}

func NewMeHandler(enrollment services.EnrollmentService) *MeHandler {
	return &MeHandler{enrollment: enrollment}
}

// GET /api/me
func (mh *MeHandler) GetMe(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	me, err := mh.enrollment.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}
