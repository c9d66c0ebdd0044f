package submission

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusLate      Status = "late"
	StatusGraded    Status = "graded"
	StatusReturned  Status = "returned"
)

// CountsAsDone reports whether a submission in this status completes its homework.
func (s Status) CountsAsDone() bool {
	switch s {
	case StatusSubmitted, StatusLate, StatusGraded:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

type Grade struct {
	Points      float64    `gorm:"column:points;not null;default:0" json:"points"`
	MaxPoints   float64    `gorm:"column:max_points;not null;default:0" json:"max_points"`
	Percentage  float64    `gorm:"column:percentage;not null;default:0" json:"percentage"`
	LetterGrade string     `gorm:"column:letter_grade;not null;default:''" json:"letter_grade,omitempty"`
	GradedBy    *uuid.UUID `gorm:"column:graded_by;type:uuid" json:"graded_by,omitempty"`
	GradedAt    *time.Time `gorm:"column:graded_at" json:"graded_at,omitempty"`
}

type Notification struct {
	State             NotificationStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Channel           string             `gorm:"column:channel;not null;default:''" json:"channel,omitempty"`
	ProviderMessageID string             `gorm:"column:provider_message_id;not null;default:''" json:"provider_message_id,omitempty"`
	LastError         string             `gorm:"column:last_error;not null;default:''" json:"last_error,omitempty"`
	Attempts          int                `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastAttemptAt     *time.Time         `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
}

// HomeworkSubmission is the single allowed submission of a student for one homework material.
type HomeworkSubmission struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null;index:idx_submission_student_week_material,unique,priority:1" json:"student_id"`
	WeekID     uuid.UUID `gorm:"type:uuid;not null;index:idx_submission_student_week_material,unique,priority:2;index" json:"week_id"`
	MaterialID string    `gorm:"not null;index:idx_submission_student_week_material,unique,priority:3" json:"material_id"`

	MaterialTitle string `gorm:"not null;default:''" json:"material_title"`
	FileName      string `gorm:"not null" json:"file_name"`
	FileURL       string `gorm:"not null" json:"file_url"`
	FileKey       string `gorm:"not null" json:"-"`
	ContentType   string `gorm:"not null;default:''" json:"content_type"`
	FileSize      int64  `gorm:"not null;default:0" json:"file_size"`
	Comment       string `gorm:"not null;default:''" json:"comment,omitempty"`

	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	IsLate      bool      `gorm:"not null" json:"is_late"`
	LatePenalty int       `gorm:"not null;default:0" json:"late_penalty"`
	Status      Status    `gorm:"not null;index" json:"status"`

	Grade        Grade        `gorm:"embedded;embeddedPrefix:grade_" json:"grade"`
	Feedback     string       `gorm:"not null;default:''" json:"feedback,omitempty"`
	Notification Notification `gorm:"embedded;embeddedPrefix:notification_" json:"notification"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (HomeworkSubmission) TableName() string { return "homework_submissions" }
