package domain

import (
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/domain/user"
)

type (
	Week             = course.Week
	WeekContent      = course.WeekContent
	LegacyMaterial   = course.LegacyMaterial
	Material         = course.Material
	MaterialType     = course.MaterialType
	UnlockConditions = course.UnlockConditions
	Track            = course.Track

	StudentProgress = progress.StudentProgress
	ProgressStatus  = progress.Status
	AccessControl   = progress.AccessControl
	UnlockedBy      = progress.UnlockedBy

	HomeworkSubmission = submission.HomeworkSubmission
	SubmissionStatus   = submission.Status
	NotificationStatus = submission.NotificationStatus

	User          = user.User
	Role          = user.Role
	CompletedWeek = user.CompletedWeek
)

// Models lists every relational table, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Week{},
		&WeekContent{},
		&StudentProgress{},
		&HomeworkSubmission{},
	}
}
