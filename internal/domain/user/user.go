package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) IsStaff() bool { return r == RoleTeacher || r == RoleAdmin }

type CompletedWeek struct {
	WeekNumber  int       `json:"week_number"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
}

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"not null;default:'';index" json:"email"`
	Role  Role      `gorm:"not null;index" json:"role"`

	Year        int    `gorm:"not null;default:0;index:idx_user_track,priority:1" json:"year"`
	Curriculum  string `gorm:"not null;default:'';index:idx_user_track,priority:2" json:"curriculum"`
	StudentType string `gorm:"not null;default:'';index:idx_user_track,priority:3" json:"student_type"`

	// CurrentWeek and CompletedWeeks cache what the progress ledger already knows.
	CurrentWeek    int                                `gorm:"not null;default:1" json:"current_week"`
	CompletedWeeks datatypes.JSONSlice[CompletedWeek] `gorm:"column:completed_weeks" json:"completed_weeks"`

	GuardianName  string `gorm:"not null;default:''" json:"guardian_name,omitempty"`
	GuardianPhone string `gorm:"not null;default:''" json:"guardian_phone,omitempty"`
	GuardianEmail string `gorm:"not null;default:''" json:"guardian_email,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) HasCompletedWeek(weekNumber int) bool {
	for _, cw := range u.CompletedWeeks {
		if cw.WeekNumber == weekNumber {
			return true
		}
	}
	return false
}

func (u *User) HasGuardianContact() bool {
	return u.GuardianPhone != "" || u.GuardianEmail != ""
}
