package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/data/dberr"
	"github.com/yungbote/classweek-backend/internal/data/repos/testutil"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
)

func TestStudentProgressRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewStudentProgressRepo(db, testutil.Logger(t))
	student := testutil.SeedStudent(t, ctx, tx, 1)
	week := testutil.SeedWeek(t, ctx, tx, testutil.DefaultTrack, 901)

	got, err := repo.Get(dbc, student.ID, week.ID)
	if err != nil || got != nil {
		t.Fatalf("Get(missing): want nil,nil got %+v,%v", got, err)
	}

	entry := progress.New(student.ID, week.ID)
	if err := repo.Create(dbc, entry); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := progress.New(student.ID, week.ID)
	err = repo.Create(dbc, dup)
	if err == nil {
		t.Fatalf("Create(duplicate): expected unique violation")
	}
	if !dberr.IsUniqueViolation(err) {
		t.Fatalf("Create(duplicate): want unique violation got %v", err)
	}
}

func TestStudentProgressRepoSave(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewStudentProgressRepo(db, testutil.Logger(t))
	student := testutil.SeedStudent(t, ctx, tx, 1)
	w1 := testutil.SeedWeek(t, ctx, tx, testutil.DefaultTrack, 911)
	w2 := testutil.SeedWeek(t, ctx, tx, testutil.DefaultTrack, 912)

	entry := progress.New(student.ID, w1.ID)
	if err := repo.Create(dbc, entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Now()
	entry.Unlock(progress.UnlockedByAdmin, "override", now)
	entry.AddCompleted("notes-1")
	entry.ApplyScore(50, now)
	if err := repo.Save(dbc, entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(dbc, student.ID, w1.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("Get: expected entry")
	}
	if got.Score != 50 || got.Status != progress.StatusInProgress {
		t.Fatalf("Get: want score=50 status=in_progress got score=%d status=%s", got.Score, got.Status)
	}
	if !got.Access.IsUnlocked || got.Access.UnlockedBy != progress.UnlockedByAdmin || got.Access.UnlockReason != "override" {
		t.Fatalf("Get: access not persisted: %+v", got.Access)
	}
	if !got.HasCompleted("notes-1") {
		t.Fatalf("Get: completed materials not persisted: %v", got.CompletedMaterials)
	}

	second := progress.New(student.ID, w2.ID)
	if err := repo.Create(dbc, second); err != nil {
		t.Fatalf("Create(second): %v", err)
	}
	all, err := repo.ListByStudent(dbc, student.ID)
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListByStudent: want 2 got %d", len(all))
	}

	other, err := repo.ListByStudent(dbc, uuid.New())
	if err != nil || len(other) != 0 {
		t.Fatalf("ListByStudent(other): want empty got %d,%v", len(other), err)
	}
}
