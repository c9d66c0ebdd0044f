package docstore

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type gradeDoc struct {
	Points      float64    `bson:"points"`
	MaxPoints   float64    `bson:"max_points"`
	Percentage  float64    `bson:"percentage"`
	LetterGrade string     `bson:"letter_grade"`
	GradedBy    string     `bson:"graded_by,omitempty"`
	GradedAt    *time.Time `bson:"graded_at,omitempty"`
}

type notificationDoc struct {
	Status            string     `bson:"status"`
	Channel           string     `bson:"channel"`
	ProviderMessageID string     `bson:"provider_message_id"`
	LastError         string     `bson:"last_error"`
	Attempts          int        `bson:"attempts"`
	LastAttemptAt     *time.Time `bson:"last_attempt_at,omitempty"`
}

type submissionDoc struct {
	ID            string          `bson:"_id"`
	StudentID     string          `bson:"student_id"`
	WeekID        string          `bson:"week_id"`
	MaterialID    string          `bson:"material_id"`
	MaterialTitle string          `bson:"material_title"`
	FileName      string          `bson:"file_name"`
	FileURL       string          `bson:"file_url"`
	FileKey       string          `bson:"file_key"`
	ContentType   string          `bson:"content_type"`
	FileSize      int64           `bson:"file_size"`
	Comment       string          `bson:"comment"`
	SubmittedAt   time.Time       `bson:"submitted_at"`
	IsLate        bool            `bson:"is_late"`
	LatePenalty   int             `bson:"late_penalty"`
	Status        string          `bson:"status"`
	Grade         gradeDoc        `bson:"grade"`
	Feedback      string          `bson:"feedback"`
	Notification  notificationDoc `bson:"notification"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
}

func toGradeDoc(g submission.Grade) gradeDoc {
	d := gradeDoc{
		Points:      g.Points,
		MaxPoints:   g.MaxPoints,
		Percentage:  g.Percentage,
		LetterGrade: g.LetterGrade,
		GradedAt:    g.GradedAt,
	}
	if g.GradedBy != nil {
		d.GradedBy = g.GradedBy.String()
	}
	return d
}

func toNotificationDoc(n submission.Notification) notificationDoc {
	return notificationDoc{
		Status:            string(n.State),
		Channel:           n.Channel,
		ProviderMessageID: n.ProviderMessageID,
		LastError:         n.LastError,
		Attempts:          n.Attempts,
		LastAttemptAt:     n.LastAttemptAt,
	}
}

func (d submissionDoc) toDomain() *types.HomeworkSubmission {
	s := &types.HomeworkSubmission{
		ID:            parseID(d.ID),
		StudentID:     parseID(d.StudentID),
		WeekID:        parseID(d.WeekID),
		MaterialID:    d.MaterialID,
		MaterialTitle: d.MaterialTitle,
		FileName:      d.FileName,
		FileURL:       d.FileURL,
		FileKey:       d.FileKey,
		ContentType:   d.ContentType,
		FileSize:      d.FileSize,
		Comment:       d.Comment,
		SubmittedAt:   d.SubmittedAt,
		IsLate:        d.IsLate,
		LatePenalty:   d.LatePenalty,
		Status:        submission.Status(d.Status),
		Grade: submission.Grade{
			Points:      d.Grade.Points,
			MaxPoints:   d.Grade.MaxPoints,
			Percentage:  d.Grade.Percentage,
			LetterGrade: d.Grade.LetterGrade,
			GradedAt:    d.Grade.GradedAt,
		},
		Feedback: d.Feedback,
		Notification: submission.Notification{
			State:             submission.NotificationStatus(d.Notification.Status),
			Channel:           d.Notification.Channel,
			ProviderMessageID: d.Notification.ProviderMessageID,
			LastError:         d.Notification.LastError,
			Attempts:          d.Notification.Attempts,
			LastAttemptAt:     d.Notification.LastAttemptAt,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Grade.GradedBy != "" {
		id := parseID(d.Grade.GradedBy)
		s.Grade.GradedBy = &id
	}
	return s
}

type homeworkSubmissionRepo struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewHomeworkSubmissionRepo(db *mongo.Database, baseLog *logger.Logger) repos.HomeworkSubmissionRepo {
	return &homeworkSubmissionRepo{col: db.Collection(colSubmissions), log: baseLog.With("repo", "MongoHomeworkSubmissionRepo")}
}

func (r *homeworkSubmissionRepo) Create(dbc dbctx.Context, s *types.HomeworkSubmission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.col.InsertOne(dbc.Context(), submissionDoc{
		ID:            s.ID.String(),
		StudentID:     idString(s.StudentID),
		WeekID:        idString(s.WeekID),
		MaterialID:    s.MaterialID,
		MaterialTitle: s.MaterialTitle,
		FileName:      s.FileName,
		FileURL:       s.FileURL,
		FileKey:       s.FileKey,
		ContentType:   s.ContentType,
		FileSize:      s.FileSize,
		Comment:       s.Comment,
		SubmittedAt:   s.SubmittedAt,
		IsLate:        s.IsLate,
		LatePenalty:   s.LatePenalty,
		Status:        string(s.Status),
		Grade:         toGradeDoc(s.Grade),
		Feedback:      s.Feedback,
		Notification:  toNotificationDoc(s.Notification),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	})
	return err
}

func (r *homeworkSubmissionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.HomeworkSubmission, error) {
	var d submissionDoc
	ok, err := findOne(dbc.Context(), r.col, bson.M{"_id": idString(id)}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *homeworkSubmissionRepo) GetByKey(dbc dbctx.Context, studentID, weekID uuid.UUID, materialID string) (*types.HomeworkSubmission, error) {
	var d submissionDoc
	ok, err := findOne(dbc.Context(), r.col, bson.M{
		"student_id":  idString(studentID),
		"week_id":     idString(weekID),
		"material_id": materialID,
	}, &d)
	if err != nil || !ok {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *homeworkSubmissionRepo) ListByStudentWeek(dbc dbctx.Context, studentID, weekID uuid.UUID) ([]*types.HomeworkSubmission, error) {
	docs, err := findAll[submissionDoc](dbc.Context(), r.col,
		bson.M{"student_id": idString(studentID), "week_id": idString(weekID)},
		options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	out := make([]*types.HomeworkSubmission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *homeworkSubmissionRepo) UpdateReview(dbc dbctx.Context, id uuid.UUID, status types.SubmissionStatus, grade *submission.Grade, feedback string) error {
	set := bson.M{
		"status":     string(status),
		"feedback":   feedback,
		"updated_at": time.Now().UTC(),
	}
	if grade != nil {
		set["grade"] = toGradeDoc(*grade)
	}
	_, err := r.col.UpdateOne(dbc.Context(), bson.M{"_id": idString(id)}, bson.M{"$set": set})
	return err
}

func (r *homeworkSubmissionRepo) UpdateNotification(dbc dbctx.Context, id uuid.UUID, n submission.Notification) error {
	_, err := r.col.UpdateOne(dbc.Context(),
		bson.M{"_id": idString(id)},
		bson.M{"$set": bson.M{
			"notification": toNotificationDoc(n),
			"updated_at":   time.Now().UTC(),
		}},
	)
	return err
}
