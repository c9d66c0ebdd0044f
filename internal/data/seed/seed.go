// Package seed loads week definitions from YAML and upserts them by track and week number.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

type File struct {
	Weeks []WeekSpec `yaml:"weeks" validate:"required,min=1,dive"`
}

type WeekSpec struct {
	Year             int                    `yaml:"year" validate:"required,min=2000"`
	Curriculum       string                 `yaml:"curriculum" validate:"notblank"`
	StudentType      string                 `yaml:"student_type" validate:"notblank"`
	WeekNumber       int                    `yaml:"week_number" validate:"required,min=1"`
	Title            string                 `yaml:"title" validate:"notblank"`
	Description      string                 `yaml:"description"`
	Inactive         bool                   `yaml:"inactive"`
	UnlockConditions types.UnlockConditions `yaml:"unlock_conditions"`
	// Legacy entries are stored on the week as the embedded materials list.
	Legacy []types.LegacyMaterial `yaml:"legacy_materials" validate:"dive"`
	// Contents, when present, replaces the week's normalized rows.
	Contents []ContentSpec `yaml:"contents" validate:"omitempty,dive"`
}

type ContentSpec struct {
	Type                string     `yaml:"type" validate:"required,oneof=homework notes pdf summary"`
	Title               string     `yaml:"title" validate:"notblank"`
	Description         string     `yaml:"description"`
	FileName            string     `yaml:"file_name"`
	FileURL             string     `yaml:"file_url" validate:"omitempty,url"`
	Optional            bool       `yaml:"optional"`
	EstimatedTime       int        `yaml:"estimated_time" validate:"min=0"`
	Order               int        `yaml:"order"`
	DueDateTime         *time.Time `yaml:"due_date_time"`
	AllowLateSubmission bool       `yaml:"allow_late_submission"`
	LatePenaltyPercent  int        `yaml:"late_penalty_percent" validate:"min=0,max=100"`
}

// Load parses and validates a seed document.
func Load(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, validate.NewValidationError(validate.ErrInvalid, validate.FieldError{Field: "weeks", Error: "weeks is required"})
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := validate.Default().Struct(f); err != nil {
		return nil, err
	}
	seen := map[types.Track]map[int]bool{}
	for _, w := range f.Weeks {
		track := types.Track{Year: w.Year, Curriculum: w.Curriculum, StudentType: w.StudentType}
		if seen[track] == nil {
			seen[track] = map[int]bool{}
		}
		if seen[track][w.WeekNumber] {
			return nil, fmt.Errorf("duplicate week %d for %d/%s/%s", w.WeekNumber, w.Year, w.Curriculum, w.StudentType)
		}
		seen[track][w.WeekNumber] = true
		for _, l := range w.Legacy {
			if l.ID == "" || !l.Type.Valid() {
				return nil, fmt.Errorf("week %d: legacy material %q needs an id and a valid type", w.WeekNumber, l.Title)
			}
		}
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Load(fh)
}

type Result struct {
	Weeks    int
	Contents int
}

type Seeder struct {
	log      *logger.Logger
	weeks    repos.WeekRepo
	contents repos.WeekContentRepo
}

func NewSeeder(log *logger.Logger, weeks repos.WeekRepo, contents repos.WeekContentRepo) *Seeder {
	return &Seeder{log: log.With("service", "Seeder"), weeks: weeks, contents: contents}
}

// Apply upserts every week in f. Weeks without a contents key keep their normalized rows.
func (s *Seeder) Apply(dbc dbctx.Context, f *File) (Result, error) {
	var res Result
	if f == nil {
		return res, nil
	}
	for _, spec := range f.Weeks {
		week, err := s.weeks.Upsert(dbc, &types.Week{
			Year:             spec.Year,
			Curriculum:       spec.Curriculum,
			StudentType:      spec.StudentType,
			WeekNumber:       spec.WeekNumber,
			Title:            spec.Title,
			Description:      spec.Description,
			IsActive:         !spec.Inactive,
			Materials:        spec.Legacy,
			UnlockConditions: spec.UnlockConditions,
		})
		if err != nil {
			return res, fmt.Errorf("upsert week %d: %w", spec.WeekNumber, err)
		}
		res.Weeks++
		if spec.Contents == nil {
			continue
		}
		rows := make([]*types.WeekContent, 0, len(spec.Contents))
		for _, c := range spec.Contents {
			rows = append(rows, &types.WeekContent{
				Type:                types.MaterialType(c.Type),
				Title:               c.Title,
				Description:         c.Description,
				FileName:            c.FileName,
				FileURL:             c.FileURL,
				IsRequired:          !c.Optional,
				EstimatedTime:       c.EstimatedTime,
				Order:               c.Order,
				IsActive:            true,
				DueDateTime:         c.DueDateTime,
				AllowLateSubmission: c.AllowLateSubmission,
				LatePenaltyPercent:  c.LatePenaltyPercent,
			})
		}
		if err := s.contents.ReplaceForWeek(dbc, week.ID, rows); err != nil {
			return res, fmt.Errorf("replace contents for week %d: %w", spec.WeekNumber, err)
		}
		res.Contents += len(rows)
		s.log.Debug("Seeded week", "week_number", spec.WeekNumber, "contents", len(rows))
	}
	s.log.Info("Seed applied", "weeks", res.Weeks, "contents", res.Contents)
	return res, nil
}
