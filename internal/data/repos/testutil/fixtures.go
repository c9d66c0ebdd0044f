package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/user"
)

var DefaultTrack = types.Track{Year: 2024, Curriculum: "cambridge", StudentType: "igcse"}

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB, currentWeek int) *types.User {
	tb.Helper()
	id := uuid.New()
	u := &types.User{
		ID:            id,
		Name:          "Student " + id.String()[:8],
		Email:         fmt.Sprintf("%s@students.test", id.String()[:8]),
		Role:          user.RoleStudent,
		Year:          DefaultTrack.Year,
		Curriculum:    DefaultTrack.Curriculum,
		StudentType:   DefaultTrack.StudentType,
		CurrentWeek:   currentWeek,
		GuardianName:  "Guardian",
		GuardianPhone: "+15550001111",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return u
}

func SeedWeek(tb testing.TB, ctx context.Context, tx *gorm.DB, track types.Track, number int, legacy ...types.LegacyMaterial) *types.Week {
	tb.Helper()
	w := &types.Week{
		ID:          uuid.New(),
		Year:        track.Year,
		Curriculum:  track.Curriculum,
		StudentType: track.StudentType,
		WeekNumber:  number,
		Title:       fmt.Sprintf("Week %d", number),
		IsActive:    true,
		Materials:   legacy,
		UnlockConditions: types.UnlockConditions{
			DependsOnPreviousWeek: number > 1,
		},
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed week: %v", err)
	}
	return w
}

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, weekID uuid.UUID, typ types.MaterialType, title string, order int) *types.WeekContent {
	tb.Helper()
	c := &types.WeekContent{
		ID:         uuid.New(),
		WeekID:     weekID,
		Type:       typ,
		Title:      title,
		FileName:   title + ".pdf",
		IsRequired: true,
		Order:      order,
		IsActive:   true,
	}
	if typ == course.MaterialHomework {
		due := time.Now().Add(7 * 24 * time.Hour).UTC()
		c.DueDateTime = &due
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed week content: %v", err)
	}
	return c
}
