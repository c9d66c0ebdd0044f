package course

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/data/repos/testutil"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
)

func TestWeekContentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewWeekContentRepo(db, testutil.Logger(t))
	week := testutil.SeedWeek(t, ctx, tx, types.Track{Year: 2033, Curriculum: "content", StudentType: "regular"}, 1)

	hw := testutil.SeedContent(t, ctx, tx, week.ID, course.MaterialHomework, "Worksheet", 2)
	notes := testutil.SeedContent(t, ctx, tx, week.ID, course.MaterialNotes, "Notes", 1)
	hidden := testutil.SeedContent(t, ctx, tx, week.ID, course.MaterialPDF, "Hidden", 0)
	if err := tx.Model(&types.WeekContent{}).Where("id = ?", hidden.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rows, err := repo.ListActiveByWeek(dbc, week.ID)
	if err != nil {
		t.Fatalf("ListActiveByWeek: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListActiveByWeek: want 2 got %d", len(rows))
	}
	if rows[0].ID != notes.ID || rows[1].ID != hw.ID {
		t.Fatalf("ListActiveByWeek: want order [notes, homework] got [%s, %s]", rows[0].Title, rows[1].Title)
	}
	if rows[1].DueDateTime == nil {
		t.Fatalf("ListActiveByWeek: homework due date not round-tripped")
	}

	empty, err := repo.ListActiveByWeek(dbc, uuid.New())
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListActiveByWeek(unknown): want empty got %d,%v", len(empty), err)
	}

	err = repo.ReplaceForWeek(dbc, week.ID, []*types.WeekContent{
		{Type: course.MaterialSummary, Title: "Recap", IsActive: true, IsRequired: true},
	})
	if err != nil {
		t.Fatalf("ReplaceForWeek: %v", err)
	}
	rows, err = repo.ListActiveByWeek(dbc, week.ID)
	if err != nil {
		t.Fatalf("ListActiveByWeek(after replace): %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Recap" || rows[0].WeekID != week.ID {
		t.Fatalf("ReplaceForWeek: unexpected rows %+v", rows)
	}
}
