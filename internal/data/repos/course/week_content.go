package course

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type WeekContentRepo interface {
	Create(dbc dbctx.Context, rows []*types.WeekContent) ([]*types.WeekContent, error)
	// ListActiveByWeek returns active rows ordered by (order, created_at).
	ListActiveByWeek(dbc dbctx.Context, weekID uuid.UUID) ([]*types.WeekContent, error)
	// ReplaceForWeek soft-deletes the week's rows and inserts rows in their place.
	ReplaceForWeek(dbc dbctx.Context, weekID uuid.UUID, rows []*types.WeekContent) error
}

type weekContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeekContentRepo(db *gorm.DB, baseLog *logger.Logger) WeekContentRepo {
	return &weekContentRepo{db: db, log: baseLog.With("repo", "WeekContentRepo")}
}

func (r *weekContentRepo) Create(dbc dbctx.Context, rows []*types.WeekContent) ([]*types.WeekContent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.WeekContent{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Context()).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *weekContentRepo) ListActiveByWeek(dbc dbctx.Context, weekID uuid.UUID) ([]*types.WeekContent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WeekContent
	if weekID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("week_id = ? AND is_active = ?", weekID, true).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weekContentRepo) ReplaceForWeek(dbc dbctx.Context, weekID uuid.UUID, rows []*types.WeekContent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context()).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("week_id = ?", weekID).Delete(&types.WeekContent{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.WeekID = weekID
			if row.ID == uuid.Nil {
				row.ID = uuid.New()
			}
		}
		return txx.Create(&rows).Error
	})
}
