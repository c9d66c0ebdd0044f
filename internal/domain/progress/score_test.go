package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComputeScore(t *testing.T) {
	cases := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 200, 1},
		{4, 4, 100},
		{5, 4, 100},
	}
	for _, tc := range cases {
		if got := ComputeScore(tc.done, tc.total); got != tc.want {
			t.Fatalf("ComputeScore(%d,%d): want=%d got=%d", tc.done, tc.total, tc.want, got)
		}
	}
}

func TestComputeScoreNeverRoundsUpToHundred(t *testing.T) {
	for total := 1; total <= 500; total++ {
		if got := ComputeScore(total-1, total); got >= 100 {
			t.Fatalf("ComputeScore(%d,%d) = %d; partial completion must stay below 100", total-1, total, got)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		prev     Status
		score    int
		unlocked bool
		want     Status
	}{
		{StatusNotStarted, 0, false, StatusNotStarted},
		{StatusNotStarted, 0, true, StatusUnlocked},
		{StatusUnlocked, 40, true, StatusInProgress},
		{StatusInProgress, 100, true, StatusCompleted},
		{StatusCompleted, 50, true, StatusCompleted},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.prev, tc.score, tc.unlocked); got != tc.want {
			t.Fatalf("DeriveStatus(%s,%d,%v): want=%s got=%s", tc.prev, tc.score, tc.unlocked, tc.want, got)
		}
	}
}

func TestApplyScoreCompletedIsTerminal(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := New(uuid.New(), uuid.New())

	if p.ApplyScore(50, now) {
		t.Fatalf("50 must not complete")
	}
	if p.Status != StatusInProgress {
		t.Fatalf("status: want in_progress got=%s", p.Status)
	}
	if !p.ApplyScore(100, now) {
		t.Fatalf("100 must complete")
	}
	first := *p.CompletedAt

	if p.ApplyScore(75, now.Add(time.Hour)) {
		t.Fatalf("re-applying must not report a new completion")
	}
	if p.Score != 100 || p.Status != StatusCompleted {
		t.Fatalf("completed must be frozen: score=%d status=%s", p.Score, p.Status)
	}
	if !p.CompletedAt.Equal(first) {
		t.Fatalf("completedAt changed")
	}
}

func TestUnlockIsMonotonic(t *testing.T) {
	now := time.Now()
	p := New(uuid.New(), uuid.New())
	if !p.Unlock(UnlockedByAuto, "first", now) {
		t.Fatalf("first unlock must apply")
	}
	if p.Status != StatusUnlocked {
		t.Fatalf("status: want unlocked got=%s", p.Status)
	}
	if p.Unlock(UnlockedByAdmin, "second", now) {
		t.Fatalf("second unlock must be a no-op")
	}
	if p.Access.UnlockReason != "first" || p.Access.UnlockedBy != UnlockedByAuto {
		t.Fatalf("access overwritten: %+v", p.Access)
	}
}

func TestAddCompletedIsSetAdd(t *testing.T) {
	p := New(uuid.New(), uuid.New())
	if !p.AddCompleted("m1") || p.AddCompleted("m1") || p.AddCompleted("") {
		t.Fatalf("AddCompleted must be idempotent")
	}
	if len(p.CompletedMaterials) != 1 {
		t.Fatalf("len: want=1 got=%d", len(p.CompletedMaterials))
	}
}
