package docstore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type legacyMaterialDoc struct {
	ID                  string     `bson:"id"`
	Type                string     `bson:"type"`
	Title               string     `bson:"title"`
	Description         string     `bson:"description,omitempty"`
	FileName            string     `bson:"file_name,omitempty"`
	FileURL             string     `bson:"file_url,omitempty"`
	IsRequired          bool       `bson:"is_required"`
	EstimatedTime       int        `bson:"estimated_time,omitempty"`
	Order               int        `bson:"order"`
	DueDateTime         *time.Time `bson:"due_date_time,omitempty"`
	AllowLateSubmission bool       `bson:"allow_late_submission,omitempty"`
	LatePenaltyPercent  int        `bson:"late_penalty_percent,omitempty"`
	CreatedAt           time.Time  `bson:"created_at"`
}

type unlockConditionsDoc struct {
	DependsOnPreviousWeek bool `bson:"depends_on_previous_week"`
	ManualUnlockOnly      bool `bson:"manual_unlock_only"`
}

type weekDoc struct {
	ID               string              `bson:"_id"`
	Year             int                 `bson:"year"`
	Curriculum       string              `bson:"curriculum"`
	StudentType      string              `bson:"student_type"`
	WeekNumber       int                 `bson:"week_number"`
	Title            string              `bson:"title"`
	Description      string              `bson:"description"`
	IsActive         bool                `bson:"is_active"`
	Materials        []legacyMaterialDoc `bson:"materials"`
	UnlockConditions unlockConditionsDoc `bson:"unlock_conditions"`
	CreatedAt        time.Time           `bson:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at"`
}

func legacyDocs(in []types.LegacyMaterial) []legacyMaterialDoc {
	out := make([]legacyMaterialDoc, 0, len(in))
	for _, m := range in {
		out = append(out, legacyMaterialDoc{
			ID:                  m.ID,
			Type:                string(m.Type),
			Title:               m.Title,
			Description:         m.Description,
			FileName:            m.FileName,
			FileURL:             m.FileURL,
			IsRequired:          m.IsRequired,
			EstimatedTime:       m.EstimatedTime,
			Order:               m.Order,
			DueDateTime:         m.DueDateTime,
			AllowLateSubmission: m.AllowLateSubmission,
			LatePenaltyPercent:  m.LatePenaltyPercent,
			CreatedAt:           m.CreatedAt,
		})
	}
	return out
}

func (d weekDoc) toDomain() *types.Week {
	w := &types.Week{
		ID:          parseID(d.ID),
		Year:        d.Year,
		Curriculum:  d.Curriculum,
		StudentType: d.StudentType,
		WeekNumber:  d.WeekNumber,
		Title:       d.Title,
		Description: d.Description,
		IsActive:    d.IsActive,
		UnlockConditions: types.UnlockConditions{
			DependsOnPreviousWeek: d.UnlockConditions.DependsOnPreviousWeek,
			ManualUnlockOnly:      d.UnlockConditions.ManualUnlockOnly,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, m := range d.Materials {
		w.Materials = append(w.Materials, types.LegacyMaterial{
			ID:                  m.ID,
			Type:                course.MaterialType(m.Type),
			Title:               m.Title,
			Description:         m.Description,
			FileName:            m.FileName,
			FileURL:             m.FileURL,
			IsRequired:          m.IsRequired,
			EstimatedTime:       m.EstimatedTime,
			Order:               m.Order,
			DueDateTime:         m.DueDateTime,
			AllowLateSubmission: m.AllowLateSubmission,
			LatePenaltyPercent:  m.LatePenaltyPercent,
			CreatedAt:           m.CreatedAt,
		})
	}
	return w
}

func weekToDoc(w *types.Week) weekDoc {
	return weekDoc{
		ID:          idString(w.ID),
		Year:        w.Year,
		Curriculum:  w.Curriculum,
		StudentType: w.StudentType,
		WeekNumber:  w.WeekNumber,
		Title:       w.Title,
		Description: w.Description,
		IsActive:    w.IsActive,
		Materials:   legacyDocs(w.Materials),
		UnlockConditions: unlockConditionsDoc{
			DependsOnPreviousWeek: w.UnlockConditions.DependsOnPreviousWeek,
			ManualUnlockOnly:      w.UnlockConditions.ManualUnlockOnly,
		},
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func trackFilter(track types.Track) bson.M {
	return bson.M{"year": track.Year, "curriculum": track.Curriculum, "student_type": track.StudentType}
}

type weekRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewWeekRepo(db *mongo.Database, baseLog *logger.Logger) repos.WeekRepo {
	return &weekRepo{col: db.Collection(colWeeks), log: baseLog.With("repo", "MongoWeekRepo")}
}

func (r *weekRepo) Create(dbc dbctx.Context, weeks []*types.Week) ([]*types.Week, error) {
	if len(weeks) == 0 {
		return []*types.Week{}, nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(weeks))
	for _, w := range weeks {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		w.CreatedAt, w.UpdatedAt = now, now
		docs = append(docs, weekToDoc(w))
	}
	if _, err := r.col.InsertMany(dbc.Context(), docs); err != nil {
		return nil, err
	}
	return weeks, nil
}

func (r *weekRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Week, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var d weekDoc
	ok, err := findOne(dbc.Context(), r.col, bson.M{"_id": id.String()}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *weekRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Week, error) {
	var out []*types.Week
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[weekDoc](dbc.Context(), r.col,
		bson.M{"_id": bson.M{"$in": idStrings(ids)}},
		options.Find().SetSort(bson.D{{Key: "week_number", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *weekRepo) GetByTrackNumber(dbc dbctx.Context, track types.Track, weekNumber int, activeOnly bool) (*types.Week, error) {
	filter := trackFilter(track)
	filter["week_number"] = weekNumber
	if activeOnly {
		filter["is_active"] = true
	}
	var d weekDoc
	ok, err := findOne(dbc.Context(), r.col, filter, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *weekRepo) ListByTrack(dbc dbctx.Context, track types.Track, activeOnly bool) ([]*types.Week, error) {
	filter := trackFilter(track)
	if activeOnly {
		filter["is_active"] = true
	}
	docs, err := findAll[weekDoc](dbc.Context(), r.col, filter,
		options.Find().SetSort(bson.D{{Key: "week_number", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Week, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
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
	now := time.Now().UTC()
	filter := trackFilter(week.Track())
	filter["week_number"] = week.WeekNumber
	update := bson.M{
		"$set": bson.M{
			"title":             week.Title,
			"description":       week.Description,
			"is_active":         week.IsActive,
			"materials":         legacyDocs(week.Materials),
			"unlock_conditions": unlockConditionsDoc{DependsOnPreviousWeek: week.UnlockConditions.DependsOnPreviousWeek, ManualUnlockOnly: week.UnlockConditions.ManualUnlockOnly},
			"updated_at":        now,
		},
		"$setOnInsert": bson.M{
			"_id":        week.ID.String(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var d weekDoc
	if err := r.col.FindOneAndUpdate(dbc.Context(), filter, update, opts).Decode(&d); err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

type weekContentDoc struct {
	ID                  string     `bson:"_id"`
	WeekID              string     `bson:"week_id"`
	Type                string     `bson:"type"`
	Title               string     `bson:"title"`
	Description         string     `bson:"description"`
	FileName            string     `bson:"file_name"`
	FileURL             string     `bson:"file_url"`
	IsRequired          bool       `bson:"is_required"`
	EstimatedTime       int        `bson:"estimated_time"`
	Order               int        `bson:"order"`
	IsActive            bool       `bson:"is_active"`
	DueDateTime         *time.Time `bson:"due_date_time,omitempty"`
	AllowLateSubmission bool       `bson:"allow_late_submission"`
	LatePenaltyPercent  int        `bson:"late_penalty_percent"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
}

func weekContentToDoc(c *types.WeekContent) weekContentDoc {
	return weekContentDoc{
		ID:                  idString(c.ID),
		WeekID:              idString(c.WeekID),
		Type:                string(c.Type),
		Title:               c.Title,
		Description:         c.Description,
		FileName:            c.FileName,
		FileURL:             c.FileURL,
		IsRequired:          c.IsRequired,
		EstimatedTime:       c.EstimatedTime,
		Order:               c.Order,
		IsActive:            c.IsActive,
		DueDateTime:         c.DueDateTime,
		AllowLateSubmission: c.AllowLateSubmission,
		LatePenaltyPercent:  c.LatePenaltyPercent,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func (d weekContentDoc) toDomain() *types.WeekContent {
	return &types.WeekContent{
		ID:                  parseID(d.ID),
		WeekID:              parseID(d.WeekID),
		Type:                course.MaterialType(d.Type),
		Title:               d.Title,
		Description:         d.Description,
		FileName:            d.FileName,
		FileURL:             d.FileURL,
		IsRequired:          d.IsRequired,
		EstimatedTime:       d.EstimatedTime,
		Order:               d.Order,
		IsActive:            d.IsActive,
		DueDateTime:         d.DueDateTime,
		AllowLateSubmission: d.AllowLateSubmission,
		LatePenaltyPercent:  d.LatePenaltyPercent,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type weekContentRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewWeekContentRepo(db *mongo.Database, baseLog *logger.Logger) repos.WeekContentRepo {
	return &weekContentRepo{col: db.Collection(colWeekContent), log: baseLog.With("repo", "MongoWeekContentRepo")}
}

func (r *weekContentRepo) Create(dbc dbctx.Context, rows []*types.WeekContent) ([]*types.WeekContent, error) {
	if len(rows) == 0 {
		return []*types.WeekContent{}, nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(rows))
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		docs = append(docs, weekContentToDoc(row))
	}
	if _, err := r.col.InsertMany(dbc.Context(), docs); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *weekContentRepo) ListActiveByWeek(dbc dbctx.Context, weekID uuid.UUID) ([]*types.WeekContent, error) {
	var out []*types.WeekContent
	if weekID == uuid.Nil {
		return out, nil
	}
	docs, err := findAll[weekContentDoc](dbc.Context(), r.col,
		bson.M{"week_id": weekID.String(), "is_active": true},
		options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// ReplaceForWeek is two writes without a transaction; standalone servers do not support them.
func (r *weekContentRepo) ReplaceForWeek(dbc dbctx.Context, weekID uuid.UUID, rows []*types.WeekContent) error {
	if _, err := r.col.DeleteMany(dbc.Context(), bson.M{"week_id": weekID.String()}); err != nil {
		return err
	}
	for _, row := range rows {
		row.WeekID = weekID
	}
	_, err := r.Create(dbc, rows)
	return err
}
