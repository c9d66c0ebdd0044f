package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UnlockConditions struct {
	DependsOnPreviousWeek bool `gorm:"column:depends_on_previous_week;not null" json:"depends_on_previous_week" yaml:"depends_on_previous_week"`
	ManualUnlockOnly      bool `gorm:"column:manual_unlock_only;not null" json:"manual_unlock_only" yaml:"manual_unlock_only"`
}

// Week is one scheduled unit of a (year, curriculum, student type) track.
type Week struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Year        int    `gorm:"not null;index:idx_week_track_number,unique,priority:1" json:"year"`
	Curriculum  string `gorm:"not null;index:idx_week_track_number,unique,priority:2" json:"curriculum"`
	StudentType string `gorm:"not null;index:idx_week_track_number,unique,priority:3" json:"student_type"`
	WeekNumber  int    `gorm:"not null;index:idx_week_track_number,unique,priority:4" json:"week_number"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"not null;default:''" json:"description"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`

	// Materials is the pre-normalization embedded list; still read by the resolver.
	Materials        datatypes.JSONSlice[LegacyMaterial] `gorm:"column:materials" json:"materials"`
	UnlockConditions UnlockConditions                    `gorm:"embedded;embeddedPrefix:unlock_" json:"unlock_conditions"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Week) TableName() string { return "weeks" }

// Track identifies the cohort a week (or a student) belongs to.
type Track struct {
	Year        int
	Curriculum  string
	StudentType string
}

func (w Week) Track() Track {
	return Track{Year: w.Year, Curriculum: w.Curriculum, StudentType: w.StudentType}
}

// LegacyMaterial is an entry of the embedded Week.Materials list.
type LegacyMaterial struct {
	ID                  string       `json:"id" yaml:"id"`
	Type                MaterialType `json:"type" yaml:"type"`
	Title               string       `json:"title" yaml:"title"`
	Description         string       `json:"description,omitempty" yaml:"description"`
	FileName            string       `json:"file_name,omitempty" yaml:"file_name"`
	FileURL             string       `json:"file_url,omitempty" yaml:"file_url"`
	IsRequired          bool         `json:"is_required" yaml:"is_required"`
	EstimatedTime       int          `json:"estimated_time,omitempty" yaml:"estimated_time"`
	Order               int          `json:"order" yaml:"order"`
	DueDateTime         *time.Time   `json:"due_date_time,omitempty" yaml:"due_date_time"`
	AllowLateSubmission bool         `json:"allow_late_submission,omitempty" yaml:"allow_late_submission"`
	LatePenaltyPercent  int          `json:"late_penalty_percent,omitempty" yaml:"late_penalty_percent"`
	CreatedAt           time.Time    `json:"created_at" yaml:"created_at"`
}
