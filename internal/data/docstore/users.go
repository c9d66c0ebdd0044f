package docstore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type completedWeekDoc struct {
	WeekNumber  int       `bson:"week_number"`
	CompletedAt time.Time `bson:"completed_at"`
	Score       int       `bson:"score"`
}

type userDoc struct {
	ID             string             `bson:"_id"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	Role           string             `bson:"role"`
	Year           int                `bson:"year"`
	Curriculum     string             `bson:"curriculum"`
	StudentType    string             `bson:"student_type"`
	CurrentWeek    int                `bson:"current_week"`
	CompletedWeeks []completedWeekDoc `bson:"completed_weeks"`
	GuardianName   string             `bson:"guardian_name"`
	GuardianPhone  string             `bson:"guardian_phone"`
	GuardianEmail  string             `bson:"guardian_email"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func completedWeekDocs(in []types.CompletedWeek) []completedWeekDoc {
	out := make([]completedWeekDoc, 0, len(in))
	for _, cw := range in {
		out = append(out, completedWeekDoc{WeekNumber: cw.WeekNumber, CompletedAt: cw.CompletedAt.UTC(), Score: cw.Score})
	}
	return out
}

func userToDoc(u *types.User) userDoc {
	return userDoc{
		ID:             idString(u.ID),
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Year:           u.Year,
		Curriculum:     u.Curriculum,
		StudentType:    u.StudentType,
		CurrentWeek:    u.CurrentWeek,
		CompletedWeeks: completedWeekDocs(u.CompletedWeeks),
		GuardianName:   u.GuardianName,
		GuardianPhone:  u.GuardianPhone,
		GuardianEmail:  u.GuardianEmail,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *types.User {
	u := &types.User{
		ID:            parseID(d.ID),
		Name:          d.Name,
		Email:         d.Email,
		Role:          user.Role(d.Role),
		Year:          d.Year,
		Curriculum:    d.Curriculum,
		StudentType:   d.StudentType,
		CurrentWeek:   d.CurrentWeek,
		GuardianName:  d.GuardianName,
		GuardianPhone: d.GuardianPhone,
		GuardianEmail: d.GuardianEmail,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, cw := range d.CompletedWeeks {
		u.CompletedWeeks = append(u.CompletedWeeks, types.CompletedWeek{
			WeekNumber: cw.WeekNumber, CompletedAt: cw.CompletedAt, Score: cw.Score,
		})
	}
	return u
}

type userRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewUserRepo(db *mongo.Database, baseLog *logger.Logger) repos.UserRepo {
	return &userRepo{col: db.Collection(colUsers), log: baseLog.With("repo", "MongoUserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(users))
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.CurrentWeek == 0 {
			u.CurrentWeek = 1
		}
		u.CreatedAt, u.UpdatedAt = now, now
		docs = append(docs, userToDoc(u))
	}
	if _, err := r.col.InsertMany(dbc.Context(), docs); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var d userDoc
	ok, err := findOne(dbc.Context(), r.col, bson.M{"_id": idString(id)}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[userDoc](dbc.Context(), r.col, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *userRepo) ListStudentIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	docs, err := findAll[userDoc](dbc.Context(), r.col, bson.M{"role": string(user.RoleStudent)}, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, parseID(d.ID))
	}
	return ids, nil
}

func (r *userRepo) AdvanceWeek(dbc dbctx.Context, id uuid.UUID, fromWeek int, completed types.CompletedWeek) (bool, error) {
	u, err := r.GetByID(dbc, id)
	if err != nil || u == nil || u.CurrentWeek != fromWeek {
		return false, err
	}
	history := []types.CompletedWeek(u.CompletedWeeks)
	if !u.HasCompletedWeek(completed.WeekNumber) {
		history = append(history, completed)
	}
	res, err := r.col.UpdateOne(dbc.Context(),
		bson.M{"_id": idString(id), "current_week": fromWeek},
		bson.M{"$set": bson.M{
			"current_week":    fromWeek + 1,
			"completed_weeks": completedWeekDocs(history),
			"updated_at":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *userRepo) SetWeekState(dbc dbctx.Context, id uuid.UUID, currentWeek int, completed []types.CompletedWeek) error {
	_, err := r.col.UpdateOne(dbc.Context(),
		bson.M{"_id": idString(id)},
		bson.M{"$set": bson.M{
			"current_week":    currentWeek,
			"completed_weeks": completedWeekDocs(completed),
			"updated_at":      time.Now().UTC(),
		}},
	)
	return err
}
