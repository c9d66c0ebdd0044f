package course

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MaterialType string

const (
	MaterialHomework MaterialType = "homework"
	MaterialNotes    MaterialType = "notes"
	MaterialPDF      MaterialType = "pdf"
	MaterialSummary  MaterialType = "summary"
)

func (t MaterialType) Valid() bool {
	switch t {
	case MaterialHomework, MaterialNotes, MaterialPDF, MaterialSummary:
		return true
	}
	return false
}

type MaterialSource string

const (
	SourceNormalized MaterialSource = "normalized"
	SourceLegacy     MaterialSource = "legacy"
)

// LegacyIDPrefix marks resolved ids that point into Week.Materials.
const LegacyIDPrefix = "legacy-"

// Material is the resolved view over WeekContent rows and legacy entries.
type Material struct {
	ID                 string         `json:"id"`
	OriginalMaterialID string         `json:"original_material_id,omitempty"`
	WeekID             uuid.UUID      `json:"week_id"`
	Source             MaterialSource `json:"source"`

	Type          MaterialType `json:"type"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	FileName      string       `json:"file_name,omitempty"`
	FileURL       string       `json:"file_url,omitempty"`
	IsRequired    bool         `json:"is_required"`
	EstimatedTime int          `json:"estimated_time,omitempty"`
	Order         int          `json:"order"`

	DueDateTime         *time.Time `json:"due_date_time,omitempty"`
	AllowLateSubmission bool       `json:"allow_late_submission,omitempty"`
	LatePenaltyPercent  int        `json:"late_penalty_percent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (m Material) IsHomework() bool { return m.Type == MaterialHomework }

// Matches reports whether id refers to this material by either its resolved or original id.
func (m Material) Matches(id string) bool {
	if id == "" {
		return false
	}
	return id == m.ID || (m.OriginalMaterialID != "" && id == m.OriginalMaterialID)
}

// CanonicalID is the id persisted in ledgers and submissions.
func (m Material) CanonicalID() string {
	if m.OriginalMaterialID != "" {
		return m.OriginalMaterialID
	}
	return m.ID
}

// DedupKey is the heuristic identity shared by both material sources.
func (m Material) DedupKey() string {
	return DedupKey(m.Title, m.Type, m.FileName)
}

func DedupKey(title string, typ MaterialType, fileName string) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	return norm(title) + "\x00" + norm(string(typ)) + "\x00" + norm(fileName)
}

// NormalizeMaterialID strips the legacy prefix so both id forms compare equal.
func NormalizeMaterialID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, LegacyIDPrefix)
}

func FromWeekContent(c WeekContent) Material {
	return Material{
		ID:                  c.ID.String(),
		WeekID:              c.WeekID,
		Source:              SourceNormalized,
		Type:                c.Type,
		Title:               c.Title,
		Description:         c.Description,
		FileName:            c.FileName,
		FileURL:             c.FileURL,
		IsRequired:          c.IsRequired,
		EstimatedTime:       c.EstimatedTime,
		Order:               c.Order,
		DueDateTime:         c.DueDateTime,
		AllowLateSubmission: c.AllowLateSubmission,
		LatePenaltyPercent:  c.LatePenaltyPercent,
		CreatedAt:           c.CreatedAt,
	}
}

func FromLegacy(weekID uuid.UUID, l LegacyMaterial) Material {
	return Material{
		ID:                  LegacyIDPrefix + l.ID,
		OriginalMaterialID:  l.ID,
		WeekID:              weekID,
		Source:              SourceLegacy,
		Type:                l.Type,
		Title:               l.Title,
		Description:         l.Description,
		FileName:            l.FileName,
		FileURL:             l.FileURL,
		IsRequired:          l.IsRequired,
		EstimatedTime:       l.EstimatedTime,
		Order:               l.Order,
		DueDateTime:         l.DueDateTime,
		AllowLateSubmission: l.AllowLateSubmission,
		LatePenaltyPercent:  l.LatePenaltyPercent,
		CreatedAt:           l.CreatedAt,
	}
}
