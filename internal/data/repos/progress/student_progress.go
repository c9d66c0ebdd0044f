package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type StudentProgressRepo interface {
	Get(dbc dbctx.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error)
	// Create inserts p; a duplicate (student, week) surfaces as a unique violation.
	Create(dbc dbctx.Context, p *types.StudentProgress) error
	// Save persists the mutable ledger fields of an existing entry.
	Save(dbc dbctx.Context, p *types.StudentProgress) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.StudentProgress, error)
}

type studentProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentProgressRepo(db *gorm.DB, baseLog *logger.Logger) StudentProgressRepo {
	return &studentProgressRepo{db: db, log: baseLog.With("repo", "StudentProgressRepo")}
}

func (r *studentProgressRepo) Get(dbc dbctx.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudentProgress
	if err := transaction.WithContext(dbc.Context()).
		Where("student_id = ? AND week_id = ?", studentID, weekID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *studentProgressRepo) Create(dbc dbctx.Context, p *types.StudentProgress) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Context()).Create(p).Error
}

func (r *studentProgressRepo) Save(dbc dbctx.Context, p *types.StudentProgress) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	p.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(dbc.Context()).
		Model(&types.StudentProgress{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"completed_materials":  p.CompletedMaterials,
			"score":                p.Score,
			"status":               p.Status,
			"access_is_unlocked":   p.Access.IsUnlocked,
			"access_unlocked_by":   p.Access.UnlockedBy,
			"access_unlock_reason": p.Access.UnlockReason,
			"access_unlocked_at":   p.Access.UnlockedAt,
			"completed_at":         p.CompletedAt,
			"updated_at":           p.UpdatedAt,
		}).Error
}

func (r *studentProgressRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.StudentProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudentProgress
	if err := transaction.WithContext(dbc.Context()).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
