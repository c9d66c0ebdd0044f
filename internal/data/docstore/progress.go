package docstore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type accessControlDoc struct {
	IsUnlocked   bool       `bson:"is_unlocked"`
	UnlockedBy   string     `bson:"unlocked_by"`
	UnlockReason string     `bson:"unlock_reason"`
	UnlockedAt   *time.Time `bson:"unlocked_at,omitempty"`
}

type progressDoc struct {
	ID                 string           `bson:"_id"`
	StudentID          string           `bson:"student_id"`
	WeekID             string           `bson:"week_id"`
	CompletedMaterials []string         `bson:"completed_materials"`
	Score              int              `bson:"score"`
	Status             string           `bson:"status"`
	AccessControl      accessControlDoc `bson:"access_control"`
	CompletedAt        *time.Time       `bson:"completed_at,omitempty"`
	CreatedAt          time.Time        `bson:"created_at"`
	UpdatedAt          time.Time        `bson:"updated_at"`
}

func accessDoc(a types.AccessControl) accessControlDoc {
	return accessControlDoc{
		IsUnlocked:   a.IsUnlocked,
		UnlockedBy:   string(a.UnlockedBy),
		UnlockReason: a.UnlockReason,
		UnlockedAt:   a.UnlockedAt,
	}
}

func (d progressDoc) toDomain() *types.StudentProgress {
	completed := d.CompletedMaterials
	if completed == nil {
		completed = []string{}
	}
	return &types.StudentProgress{
		ID:                 parseID(d.ID),
		StudentID:          parseID(d.StudentID),
		WeekID:             parseID(d.WeekID),
		CompletedMaterials: completed,
		Score:              d.Score,
		Status:             progress.Status(d.Status),
		Access: types.AccessControl{
			IsUnlocked:   d.AccessControl.IsUnlocked,
			UnlockedBy:   progress.UnlockedBy(d.AccessControl.UnlockedBy),
			UnlockReason: d.AccessControl.UnlockReason,
			UnlockedAt:   d.AccessControl.UnlockedAt,
		},
		CompletedAt: d.CompletedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type studentProgressRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewStudentProgressRepo(db *mongo.Database, baseLog *logger.Logger) repos.StudentProgressRepo {
	return &studentProgressRepo{col: db.Collection(colProgress), log: baseLog.With("repo", "MongoStudentProgressRepo")}
}

func (r *studentProgressRepo) Get(dbc dbctx.Context, studentID, weekID uuid.UUID) (*types.StudentProgress, error) {
	var d progressDoc
	ok, err := findOne(dbc.Context(), r.col, bson.M{"student_id": idString(studentID), "week_id": idString(weekID)}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *studentProgressRepo) Create(dbc dbctx.Context, p *types.StudentProgress) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	completed := []string(p.CompletedMaterials)
	if completed == nil {
		completed = []string{}
	}
	_, err := r.col.InsertOne(dbc.Context(), progressDoc{
		ID:                 p.ID.String(),
		StudentID:          idString(p.StudentID),
		WeekID:             idString(p.WeekID),
		CompletedMaterials: completed,
		Score:              p.Score,
		Status:             string(p.Status),
		AccessControl:      accessDoc(p.Access),
		CompletedAt:        p.CompletedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	})
	return err
}

func (r *studentProgressRepo) Save(dbc dbctx.Context, p *types.StudentProgress) error {
	p.UpdatedAt = time.Now().UTC()
	completed := []string(p.CompletedMaterials)
	if completed == nil {
		completed = []string{}
	}
	_, err := r.col.UpdateOne(dbc.Context(),
		bson.M{"_id": p.ID.String()},
		bson.M{"$set": bson.M{
			"completed_materials": completed,
			"score":               p.Score,
			"status":              string(p.Status),
			"access_control":      accessDoc(p.Access),
			"completed_at":        p.CompletedAt,
			"updated_at":          p.UpdatedAt,
		}},
	)
	return err
}

func (r *studentProgressRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.StudentProgress, error) {
	docs, err := findAll[progressDoc](dbc.Context(), r.col,
		bson.M{"student_id": idString(studentID)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]*types.StudentProgress, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
