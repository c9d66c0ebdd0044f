package progress

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusUnlocked   Status = "unlocked"
	StatusLocked     Status = "locked"
)

type UnlockedBy string

const (
	UnlockedByAuto   UnlockedBy = "auto"
	UnlockedByManual UnlockedBy = "manual"
	UnlockedByAdmin  UnlockedBy = "admin"
)

func (u UnlockedBy) Valid() bool {
	switch u {
	case UnlockedByAuto, UnlockedByManual, UnlockedByAdmin:
		return true
	}
	return false
}

type AccessControl struct {
	IsUnlocked   bool       `gorm:"column:is_unlocked;not null" json:"is_unlocked"`
	UnlockedBy   UnlockedBy `gorm:"column:unlocked_by;not null;default:''" json:"unlocked_by,omitempty"`
	UnlockReason string     `gorm:"column:unlock_reason;not null;default:''" json:"unlock_reason,omitempty"`
	UnlockedAt   *time.Time `gorm:"column:unlocked_at" json:"unlocked_at,omitempty"`
}

// StudentProgress is the ledger entry for one (student, week).
type StudentProgress struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_student_week,unique,priority:1" json:"student_id"`
	WeekID    uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_student_week,unique,priority:2;index" json:"week_id"`

	CompletedMaterials datatypes.JSONSlice[string] `gorm:"column:completed_materials" json:"completed_materials"`
	Score              int                         `gorm:"not null;default:0" json:"score"`
	Status             Status                      `gorm:"not null;index" json:"status"`
	Access             AccessControl               `gorm:"embedded;embeddedPrefix:access_" json:"access_control"`
	CompletedAt        *time.Time                  `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StudentProgress) TableName() string { return "student_progress" }

// New returns the default ledger entry: nothing done, locked.
func New(studentID, weekID uuid.UUID) *StudentProgress {
	return &StudentProgress{
		ID:                 uuid.New(),
		StudentID:          studentID,
		WeekID:             weekID,
		CompletedMaterials: datatypes.JSONSlice[string]{},
		Status:             StatusNotStarted,
	}
}

func (p *StudentProgress) HasCompleted(materialID string) bool {
	return slices.Contains(p.CompletedMaterials, materialID)
}

// AddCompleted set-adds materialID and reports whether it was new.
func (p *StudentProgress) AddCompleted(materialID string) bool {
	if materialID == "" || p.HasCompleted(materialID) {
		return false
	}
	p.CompletedMaterials = append(p.CompletedMaterials, materialID)
	return true
}

func (p *StudentProgress) IsCompleted() bool { return p.Status == StatusCompleted }

// Unlock opens the week. It returns false when already unlocked.
func (p *StudentProgress) Unlock(by UnlockedBy, reason string, now time.Time) bool {
	if p.Access.IsUnlocked {
		return false
	}
	at := now.UTC()
	p.Access = AccessControl{IsUnlocked: true, UnlockedBy: by, UnlockReason: reason, UnlockedAt: &at}
	p.Status = DeriveStatus(p.Status, p.Score, true)
	return true
}

// ApplyScore writes an evaluation result through the status machine.
// It returns true when this call moved the entry into completed.
func (p *StudentProgress) ApplyScore(score int, now time.Time) bool {
	if p.Status == StatusCompleted {
		p.Score = 100
		return false
	}
	p.Score = ClampScore(score)
	p.Status = DeriveStatus(p.Status, p.Score, p.Access.IsUnlocked)
	if p.Status != StatusCompleted {
		return false
	}
	if p.CompletedAt == nil {
		at := now.UTC()
		p.CompletedAt = &at
	}
	return true
}
