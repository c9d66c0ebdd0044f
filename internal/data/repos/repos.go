package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/classweek-backend/internal/data/repos/course"
	"github.com/yungbote/classweek-backend/internal/data/repos/progress"
	"github.com/yungbote/classweek-backend/internal/data/repos/submission"
	"github.com/yungbote/classweek-backend/internal/data/repos/user"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type WeekRepo = course.WeekRepo
type WeekContentRepo = course.WeekContentRepo

type StudentProgressRepo = progress.StudentProgressRepo

type HomeworkSubmissionRepo = submission.HomeworkSubmissionRepo

// Set groups every repository the services depend on so that the relational
// and document backends can be swapped as a unit.
type Set struct {
	Users       UserRepo
	Weeks       WeekRepo
	WeekContent WeekContentRepo
	Progress    StudentProgressRepo
	Submissions HomeworkSubmissionRepo
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return user.NewUserRepo(db, log)
}

func NewWeekRepo(db *gorm.DB, log *logger.Logger) WeekRepo {
	return course.NewWeekRepo(db, log)
}

func NewWeekContentRepo(db *gorm.DB, log *logger.Logger) WeekContentRepo {
	return course.NewWeekContentRepo(db, log)
}

func NewStudentProgressRepo(db *gorm.DB, log *logger.Logger) StudentProgressRepo {
	return progress.NewStudentProgressRepo(db, log)
}

func NewHomeworkSubmissionRepo(db *gorm.DB, log *logger.Logger) HomeworkSubmissionRepo {
	return submission.NewHomeworkSubmissionRepo(db, log)
}

// NewSet builds the relational repository set over db.
func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:       NewUserRepo(db, log),
		Weeks:       NewWeekRepo(db, log),
		WeekContent: NewWeekContentRepo(db, log),
		Progress:    NewStudentProgressRepo(db, log),
		Submissions: NewHomeworkSubmissionRepo(db, log),
	}
}
