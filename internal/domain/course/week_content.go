package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WeekContent is the normalized, authoritative form of a week's material.
type WeekContent struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WeekID uuid.UUID `gorm:"type:uuid;not null;index:idx_week_content_week_order,priority:1" json:"week_id"`

	Type          MaterialType `gorm:"not null" json:"type"`
	Title         string       `gorm:"not null" json:"title"`
	Description   string       `gorm:"not null;default:''" json:"description"`
	FileName      string       `gorm:"not null;default:''" json:"file_name"`
	FileURL       string       `gorm:"not null;default:''" json:"file_url"`
	IsRequired    bool         `gorm:"not null" json:"is_required"`
	EstimatedTime int          `gorm:"not null;default:0" json:"estimated_time"`
	Order         int          `gorm:"column:sort_order;not null;default:0;index:idx_week_content_week_order,priority:2" json:"order"`
	IsActive      bool         `gorm:"not null;index" json:"is_active"`

	DueDateTime         *time.Time `json:"due_date_time,omitempty"`
	AllowLateSubmission bool       `gorm:"not null" json:"allow_late_submission"`
	LatePenaltyPercent  int        `gorm:"not null;default:0" json:"late_penalty_percent"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (WeekContent) TableName() string { return "week_contents" }
