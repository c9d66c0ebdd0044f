package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/observability"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type MaterialResolver interface {
	// Resolve returns the week's canonical material list. A missing week yields an empty list.
	Resolve(ctx context.Context, weekID uuid.UUID) ([]types.Material, error)
	// ResolveWeek is Resolve for a week the caller already loaded.
	ResolveWeek(ctx context.Context, week *types.Week) ([]types.Material, error)
}

type materialResolver struct {
	log      *logger.Logger
	weeks    repos.WeekRepo
	contents repos.WeekContentRepo
}

func NewMaterialResolver(log *logger.Logger, weeks repos.WeekRepo, contents repos.WeekContentRepo) MaterialResolver {
	return &materialResolver{
		log:      log.With("service", "MaterialResolver"),
		weeks:    weeks,
		contents: contents,
	}
}

func (r *materialResolver) Resolve(ctx context.Context, weekID uuid.UUID) (out []types.Material, err error) {
	ctx, span := observability.StartSpan(ctx, "materials.resolve", attribute.String("week_id", weekID.String()))
	defer func() { observability.EndSpan(span, err) }()

	var (
		week *types.Week
		rows []*types.WeekContent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := r.weeks.GetByID(dbctx.With(gctx), weekID)
		if err != nil {
			return fmt.Errorf("load week: %w", err)
		}
		week = w
		return nil
	})
	g.Go(func() error {
		c, err := r.contents.ListActiveByWeek(dbctx.With(gctx), weekID)
		if err != nil {
			return fmt.Errorf("load week contents: %w", err)
		}
		rows = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if week == nil {
		return []types.Material{}, nil
	}
	return MergeMaterials(week, rows), nil
}

func (r *materialResolver) ResolveWeek(ctx context.Context, week *types.Week) ([]types.Material, error) {
	if week == nil {
		return []types.Material{}, nil
	}
	rows, err := r.contents.ListActiveByWeek(dbctx.With(ctx), week.ID)
	if err != nil {
		return nil, fmt.Errorf("load week contents: %w", err)
	}
	return MergeMaterials(week, rows), nil
}

// MergeMaterials combines normalized rows with the week's legacy entries. Legacy entries
// whose (title, type, fileName) matches a normalized row are dropped; the result is
// ordered by (order, createdAt) with normalized rows first on ties.
func MergeMaterials(week *types.Week, rows []*types.WeekContent) []types.Material {
	out := make([]types.Material, 0, len(rows)+len(week.Materials))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row == nil || !row.IsActive {
			continue
		}
		m := course.FromWeekContent(*row)
		seen[m.DedupKey()] = struct{}{}
		out = append(out, m)
	}
	for _, l := range week.Materials {
		if l.ID == "" {
			continue
		}
		m := course.FromLegacy(week.ID, l)
		if _, dup := seen[m.DedupKey()]; dup {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// FindMaterial looks a material up by resolved id, legacy-prefixed id or original id.
func FindMaterial(materials []types.Material, id string) (types.Material, bool) {
	if id == "" {
		return types.Material{}, false
	}
	norm := course.NormalizeMaterialID(id)
	for _, m := range materials {
		if m.Matches(id) || m.Matches(norm) {
			return m, true
		}
	}
	return types.Material{}, false
}
