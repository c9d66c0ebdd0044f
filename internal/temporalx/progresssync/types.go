package progresssync

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	AdvancePointerWorkflowName = "advance_week_pointer"
	NotifyGuardianWorkflowName = "notify_guardian"

	ActivityAdvancePointer = "advance_week_pointer"
	ActivityDeliverNotice  = "deliver_guardian_notice"
)

type AdvancePointerInput struct {
	StudentID   uuid.UUID `json:"student_id"`
	WeekNumber  int       `json:"week_number"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
}

type NotifyGuardianInput struct {
	SubmissionID uuid.UUID `json:"submission_id"`
}

func advancePointerWorkflowID(in AdvancePointerInput) string {
	return "week-pointer-" + in.StudentID.String() + "-" + strconv.Itoa(in.WeekNumber)
}

func notifyGuardianWorkflowID(submissionID uuid.UUID) string {
	return "guardian-notice-" + submissionID.String()
}
