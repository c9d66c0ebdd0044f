package user

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error)
	ListStudentIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	// AdvanceWeek moves current_week from fromWeek to fromWeek+1 and records the completion.
	// It returns false without writing when current_week no longer equals fromWeek.
	AdvanceWeek(dbc dbctx.Context, id uuid.UUID, fromWeek int, completed types.CompletedWeek) (bool, error)
	// SetWeekState overwrites the cached pointer and history.
	SetWeekState(dbc dbctx.Context, id uuid.UUID, currentWeek int, completed []types.CompletedWeek) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Context()).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	users, err := ur.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var results []*types.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Context()).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) ListStudentIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Context()).
		Model(&types.User{}).
		Where("role = ?", user.RoleStudent).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (ur *userRepo) AdvanceWeek(dbc dbctx.Context, id uuid.UUID, fromWeek int, completed types.CompletedWeek) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	advanced := false
	err := transaction.WithContext(dbc.Context()).Transaction(func(txx *gorm.DB) error {
		var rows []*types.User
		if err := txx.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 || rows[0].CurrentWeek != fromWeek {
			return nil
		}
		u := rows[0]
		history := u.CompletedWeeks
		if !u.HasCompletedWeek(completed.WeekNumber) {
			history = append(history, completed)
		}
		res := txx.Model(&types.User{}).
			Where("id = ? AND current_week = ?", id, fromWeek).
			Updates(map[string]any{
				"current_week":    fromWeek + 1,
				"completed_weeks": history,
			})
		if res.Error != nil {
			return res.Error
		}
		advanced = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

func (ur *userRepo) SetWeekState(dbc dbctx.Context, id uuid.UUID, currentWeek int, completed []types.CompletedWeek) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = ur.db
	}
	if completed == nil {
		completed = []types.CompletedWeek{}
	}
	return transaction.WithContext(dbc.Context()).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_week":    currentWeek,
			"completed_weeks": datatypes.JSONSlice[types.CompletedWeek](completed),
		}).Error
}
