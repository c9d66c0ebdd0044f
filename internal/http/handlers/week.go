package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/classweek-backend/internal/http/response"
	"github.com/yungbote/classweek-backend/internal/services"
)

type WeekHandler struct {
	progress services.ProgressService
}

func NewWeekHandler(progress services.ProgressService) *WeekHandler {
	return &WeekHandler{progress: progress}
}

// GET /api/weeks
func (wh *WeekHandler) ListWeeks(c *gin.Context) {
	rd, err := caller(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	weeks, err := wh.progress.ListWeeks(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"weeks": weeks})
}

// GET /api/weeks/:id/materials
func (wh *WeekHandler) ListMaterials(c *gin.Context) {
	weekID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	week, materials, err := wh.progress.WeekMaterials(c.Request.Context(), weekID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"week": week, "materials": materials})
}

// GET /api/weeks/:id/progress
func (wh *WeekHandler) GetProgress(c *gin.Context) {
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
	entry, eval, err := wh.progress.WeekProgress(c.Request.Context(), rd.UserID, weekID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": entry, "evaluation": eval})
}

// POST /api/weeks/:id/materials/:materialId/viewed
func (wh *WeekHandler) MarkViewed(c *gin.Context) {
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
	entry, err := wh.progress.RecordMaterialViewed(c.Request.Context(), rd.UserID, weekID, c.Param("materialId"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": entry})
}
