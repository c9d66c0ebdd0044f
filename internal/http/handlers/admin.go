package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/http/response"
	"github.com/yungbote/classweek-backend/internal/services"
)

type AdminHandler struct {
	enrollment  services.EnrollmentService
	progress    services.ProgressService
	repair      services.RepairService
	grading     services.GradingService
	submissions services.SubmissionService
}

type AdminHandlerDeps struct {
	Enrollment  services.EnrollmentService
	Progress    services.ProgressService
	Repair      services.RepairService
	Grading     services.GradingService
	Submissions services.SubmissionService
}

func NewAdminHandler(deps AdminHandlerDeps) *AdminHandler {
	return &AdminHandler{
		enrollment:  deps.Enrollment,
		progress:    deps.Progress,
		repair:      deps.Repair,
		grading:     deps.Grading,
		submissions: deps.Submissions,
	}
}

// POST /api/admin/students
func (ah *AdminHandler) RegisterStudent(c *gin.Context) {
	var req services.RegisterStudentInput
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	student, entry, err := ah.enrollment.Register(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"student": student, "first_week": entry})
}

// POST /api/admin/students/:id/weeks/:weekId/unlock
// body: { "reason": "...", "unlocked_by": "manual"|"admin" }
func (ah *AdminHandler) UnlockWeek(c *gin.Context) {
	studentID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	weekID, err := uuidParam(c, "weekId")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		Reason     string              `json:"reason"`
		UnlockedBy progress.UnlockedBy `json:"unlocked_by"`
	}
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			response.RespondError(c, err)
			return
		}
	}
	if req.UnlockedBy == "" {
		req.UnlockedBy = progress.UnlockedByAdmin
	}
	entry, err := ah.progress.UnlockWeek(c.Request.Context(), studentID, weekID, req.Reason, req.UnlockedBy)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": entry})
}

// POST /api/admin/students/:id/repair
func (ah *AdminHandler) RepairStudent(c *gin.Context) {
	studentID, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	res, err := ah.repair.RecomputeStudent(c.Request.Context(), studentID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"repair": res})
}

// POST /api/admin/submissions/:id/grade
// body: { "points": 18, "max_points": 20, "feedback": "..." }
func (ah *AdminHandler) Grade(c *gin.Context) {
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
	var req services.GradeInput
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	req.SubmissionID = id
	req.GraderID = rd.UserID
	sub, err := ah.grading.Grade(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submission": sub})
}

// POST /api/admin/submissions/:id/return
// body: { "feedback": "..." }
func (ah *AdminHandler) Return(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req struct {
		Feedback string `json:"feedback"`
	}
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			response.RespondError(c, err)
			return
		}
	}
	sub, err := ah.grading.Return(c.Request.Context(), id, req.Feedback)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submission": sub})
}

// POST /api/admin/submissions/:id/notify
func (ah *AdminHandler) ResendNotification(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := ah.submissions.ResendNotification(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"queued": true})
}
