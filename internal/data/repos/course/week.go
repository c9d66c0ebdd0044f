package course

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type WeekRepo interface {
	Create(dbc dbctx.Context, weeks []*types.Week) ([]*types.Week, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Week, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Week, error)
	GetByTrackNumber(dbc dbctx.Context, track types.Track, weekNumber int, activeOnly bool) (*types.Week, error)
	ListByTrack(dbc dbctx.Context, track types.Track, activeOnly bool) ([]*types.Week, error)
	// Upsert inserts or updates by (year, curriculum, student_type, week_number) and returns the stored row.
	Upsert(dbc dbctx.Context, week *types.Week) (*types.Week, error)
}

type weekRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeekRepo(db *gorm.DB, baseLog *logger.Logger) WeekRepo {
	return &weekRepo{db: db, log: baseLog.With("repo", "WeekRepo")}
}

func (r *weekRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *weekRepo) Create(dbc dbctx.Context, weeks []*types.Week) ([]*types.Week, error) {
	if len(weeks) == 0 {
		return []*types.Week{}, nil
	}
	for _, w := range weeks {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Create(&weeks).Error; err != nil {
		return nil, err
	}
	return weeks, nil
}

func (r *weekRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Week, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Week
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *weekRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Week, error) {
	var out []*types.Week
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).Where("id IN ?", ids).Order("week_number ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weekRepo) GetByTrackNumber(dbc dbctx.Context, track types.Track, weekNumber int, activeOnly bool) (*types.Week, error) {
	q := r.tx(dbc).Where(
		"year = ? AND curriculum = ? AND student_type = ? AND week_number = ?",
		track.Year, track.Curriculum, track.StudentType, weekNumber,
	)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []*types.Week
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *weekRepo) ListByTrack(dbc dbctx.Context, track types.Track, activeOnly bool) ([]*types.Week, error) {
	q := r.tx(dbc).Where(
		"year = ? AND curriculum = ? AND student_type = ?",
		track.Year, track.Curriculum, track.StudentType,
	)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []*types.Week
	if err := q.Order("week_number ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weekRepo) Upsert(dbc dbctx.Context, week *types.Week) (*types.Week, error) {
	if week == nil {
		return nil, nil
	}
	if week.ID == uuid.Nil {
		week.ID = uuid.New()
	}
	err := r.tx(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "year"},
			{Name: "curriculum"},
			{Name: "student_type"},
			{Name: "week_number"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"description",
			"is_active",
			"materials",
			"unlock_depends_on_previous_week",
			"unlock_manual_unlock_only",
			"updated_at",
			"deleted_at",
		}),
	}).Create(week).Error
	if err != nil {
		return nil, err
	}
	return r.GetByTrackNumber(dbc, week.Track(), week.WeekNumber, false)
}
