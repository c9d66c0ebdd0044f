// Package docstore implements the repository set on MongoDB for deployments that
// run with DB_DRIVER=mongo. Documents use string ids and snake_case fields.
package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

const (
	colUsers       = "users"
	colWeeks       = "weeks"
	colWeekContent = "week_contents"
	colProgress    = "student_progress"
	colSubmissions = "homework_submissions"
)

// NewSet builds the document-backed repository set over db.
func NewSet(db *mongo.Database, log *logger.Logger) repos.Set {
	return repos.Set{
		Users:       NewUserRepo(db, log),
		Weeks:       NewWeekRepo(db, log),
		WeekContent: NewWeekContentRepo(db, log),
		Progress:    NewStudentProgressRepo(db, log),
		Submissions: NewHomeworkSubmissionRepo(db, log),
	}
}

// EnsureIndexes creates the unique keys the services rely on for race handling.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "role", Value: 1}}},
			{Keys: bson.D{{Key: "year", Value: 1}, {Key: "curriculum", Value: 1}, {Key: "student_type", Value: 1}}},
		},
		colWeeks: {
			{
				Keys: bson.D{
					{Key: "year", Value: 1},
					{Key: "curriculum", Value: 1},
					{Key: "student_type", Value: 1},
					{Key: "week_number", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("uniq_week_track_number"),
			},
		},
		colWeekContent: {
			{Keys: bson.D{{Key: "week_id", Value: 1}, {Key: "order", Value: 1}}},
		},
		colProgress: {
			{
				Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "week_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_progress_student_week"),
			},
		},
		colSubmissions: {
			{
				Keys: bson.D{
					{Key: "student_id", Value: 1},
					{Key: "week_id", Value: 1},
					{Key: "material_id", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("uniq_submission_student_week_material"),
			},
		},
	}
	for col, models := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id.String())
		}
	}
	return out
}

// findOne decodes the first match into out and reports whether one existed.
func findOne(ctx context.Context, col *mongo.Collection, filter any, out any) (bool, error) {
	err := col.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
