package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
)

func TestRebuildPointer(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	w := func(n int) *types.Week { return &types.Week{ID: uuid.New(), WeekNumber: n} }
	done := func(week *types.Week) *types.StudentProgress {
		return &types.StudentProgress{WeekID: week.ID, Status: progress.StatusCompleted, Score: 100, CompletedAt: &at}
	}
	w1, w2, w3, w4 := w(1), w(2), w(3), w(4)
	weeks := []*types.Week{w3, w1, w4, w2}

	cases := []struct {
		name    string
		entries []*types.StudentProgress
		current int
		history int
	}{
		{"none", nil, 1, 0},
		{"prefix of two", []*types.StudentProgress{done(w1), done(w2)}, 3, 2},
		{"gap stops prefix", []*types.StudentProgress{done(w1), done(w3)}, 2, 2},
		{"all done", []*types.StudentProgress{done(w1), done(w2), done(w3), done(w4)}, 5, 4},
		{"in progress ignored", []*types.StudentProgress{{WeekID: w1.ID, Status: progress.StatusInProgress, Score: 50}}, 1, 0},
	}
	for _, tc := range cases {
		current, history := RebuildPointer(weeks, tc.entries)
		if current != tc.current || len(history) != tc.history {
			t.Fatalf("%s: got current=%d history=%d", tc.name, current, len(history))
		}
	}
}

func TestRecomputeStudentRepairsMissedAdvance(t *testing.T) {
	h := newHarness(t)
	w1 := h.week(1)
	w2 := h.week(2)
	n := h.content(w1.ID, course.MaterialNotes, "Notes", 1)
	s := h.student(7)

	if _, err := h.progress.RecordMaterialViewed(h.ctx, s.ID, w1.ID, n.ID.String()); err != nil {
		t.Fatalf("view: %v", err)
	}
	if e := h.entry(s.ID, w2.ID); e != nil {
		t.Fatal("week 2 must not be unlocked while the pointer is off")
	}

	res, err := h.repair.RecomputeStudent(h.ctx, s.ID)
	if err != nil {
		t.Fatalf("RecomputeStudent: %v", err)
	}
	if !res.Changed || res.PreviousWeek != 7 || res.CurrentWeek != 2 || res.CompletedWeeks != 1 {
		t.Fatalf("result: %+v", res)
	}
	u := h.reloadUser(s.ID)
	if u.CurrentWeek != 2 || !u.HasCompletedWeek(1) {
		t.Fatalf("user: current=%d completed=%+v", u.CurrentWeek, u.CompletedWeeks)
	}
	if e := h.entry(s.ID, w2.ID); e == nil || !e.Access.IsUnlocked {
		t.Fatalf("week 2 not unlocked by repair: %+v", e)
	}

	again, err := h.repair.RecomputeStudent(h.ctx, s.ID)
	if err != nil || again.Changed {
		t.Fatalf("second repair should be a no-op: %+v %v", again, err)
	}
}

func TestRecomputeAllUnlocksFirstWeekForFreshStudents(t *testing.T) {
	h := newHarness(t)
	w1 := h.week(1)
	a := h.student(1)
	b := h.student(1)

	results, err := h.repair.RecomputeAll(h.ctx, 2)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("want at least 2 results got %d", len(results))
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		e, err := h.set.Progress.Get(dbctx.With(h.ctx), id, w1.ID)
		if err != nil || e == nil || !e.Access.IsUnlocked || e.Access.UnlockReason != EnrollmentUnlockReason {
			t.Fatalf("student %s week 1: %+v %v", id, e, err)
		}
	}
}
