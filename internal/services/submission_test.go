package services

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/classweek-backend/internal/data/repos/testutil"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/submission"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

func TestSubmitRejectsSecondSubmission(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)

	first, err := h.submit(s.ID, w.ID, hw.ID.String())
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Status != submission.StatusSubmitted || first.IsLate {
		t.Fatalf("unexpected first submission: %+v", first)
	}
	if _, err := h.submit(s.ID, w.ID, hw.ID.String()); !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("second submit: want ErrDuplicateSubmission got %v", err)
	}
	subs, err := h.submissions.ListForWeek(h.ctx, s.ID, w.ID)
	if err != nil {
		t.Fatalf("ListForWeek: %v", err)
	}
	if len(subs) != 1 || h.storage.count() != 1 {
		t.Fatalf("want one submission and one object, got %d/%d", len(subs), h.storage.count())
	}
}

func TestConcurrentSubmitsProduceOneSubmission(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
		other    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.submit(s.ID, w.ID, hw.ID.String())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicateSubmission):
				dups++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if ok != 1 || dups != n-1 {
		t.Fatalf("want 1 success and %d duplicates, got %d/%d", n-1, ok, dups)
	}
	subs, err := h.submissions.ListForWeek(h.ctx, s.ID, w.ID)
	if err != nil {
		t.Fatalf("ListForWeek: %v", err)
	}
	if len(subs) != 1 || h.storage.count() != 1 {
		t.Fatalf("want one submission and one object, got %d/%d", len(subs), h.storage.count())
	}
}

func TestLateSubmissionCarriesFlatPenalty(t *testing.T) {
	due := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	for _, at := range []time.Time{
		time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
	} {
		h := newHarness(t)
		w := h.week(1)
		hw := h.homework(w.ID, "Essay", due, true, 10)
		s := h.student(1)
		h.withSubmissionClock(at)

		sub, err := h.submit(s.ID, w.ID, hw.ID.String())
		if err != nil {
			t.Fatalf("submit at %s: %v", at, err)
		}
		if !sub.IsLate || sub.Status != submission.StatusLate || sub.LatePenalty != 10 {
			t.Fatalf("submit at %s: want late/10 got late=%v status=%s penalty=%d", at, sub.IsLate, sub.Status, sub.LatePenalty)
		}
		if e := h.entry(s.ID, w.ID); e.Score != 100 {
			t.Fatalf("late submission should still complete the week, score=%d", e.Score)
		}
	}
}

func TestSubmitAfterDeadlineWithoutLatePolicy(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.homework(w.ID, "Essay", time.Now().Add(-time.Hour), false, 0)
	s := h.student(1)

	if _, err := h.submit(s.ID, w.ID, hw.ID.String()); !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("want ErrDeadlinePassed got %v", err)
	}
	if h.storage.count() != 0 {
		t.Fatal("file stored for rejected submission")
	}
}

func TestSubmitStorageFailurePersistsNothing(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)
	h.storage.failUpload = errors.New("bucket unavailable")

	_, err := h.submit(s.ID, w.ID, hw.ID.String())
	if !IsStorageError(err) {
		t.Fatalf("want StorageError got %v", err)
	}
	subs, err := h.submissions.ListForWeek(h.ctx, s.ID, w.ID)
	if err != nil {
		t.Fatalf("ListForWeek: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("want no submissions, got %d", len(subs))
	}
	if len(h.queue.queued()) != 0 {
		t.Fatal("notification queued for failed submission")
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	notes := h.content(w.ID, course.MaterialNotes, "Notes", 2)
	s := h.student(1)

	cases := []struct {
		name string
		in   SubmitInput
	}{
		{"missing file", SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: hw.ID.String(), FileName: "a.pdf", Size: 1}},
		{"oversized", SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: hw.ID.String(), FileName: "a.pdf", Size: MaxUploadBytes + 1, Reader: strings.NewReader("x")}},
		{"empty name", SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: hw.ID.String(), FileName: " ", Size: 1, Reader: strings.NewReader("x")}},
		{"empty file", SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: hw.ID.String(), FileName: "a.pdf", Size: 0, Reader: strings.NewReader("")}},
		{"not homework", SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: notes.ID.String(), FileName: "a.pdf", Size: 1, Reader: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		var verr *validate.ValidationError
		if _, err := h.submissions.Submit(h.ctx, tc.in); !errors.As(err, &verr) {
			t.Fatalf("%s: want ValidationError got %v", tc.name, err)
		}
	}
	in := SubmitInput{StudentID: s.ID, WeekID: w.ID, MaterialID: "missing", FileName: "a.pdf", Size: 1, Reader: strings.NewReader("x")}
	if _, err := h.submissions.Submit(h.ctx, in); !errors.Is(err, ErrMaterialNotFound) {
		t.Fatalf("unknown material: want ErrMaterialNotFound got %v", err)
	}
}

func TestSubmitRejectsBodyLargerThanDeclared(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)

	_, err := h.submissions.Submit(h.ctx, SubmitInput{
		StudentID:   s.ID,
		WeekID:      w.ID,
		MaterialID:  hw.ID.String(),
		FileName:    "big.pdf",
		ContentType: "application/pdf",
		Size:        10,
		Reader:      strings.NewReader(strings.Repeat("x", int(MaxUploadBytes)+500)),
	})
	var verr *validate.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "file" {
		t.Fatalf("fields: %+v", verr.Fields)
	}
	if h.storage.count() != 0 || len(h.storage.deleted) != 1 {
		t.Fatalf("upload not discarded: objects=%d deleted=%d", h.storage.count(), len(h.storage.deleted))
	}
	subs, err := h.submissions.ListForWeek(h.ctx, s.ID, w.ID)
	if err != nil {
		t.Fatalf("ListForWeek: %v", err)
	}
	if len(subs) != 0 || len(h.queue.queued()) != 0 {
		t.Fatalf("want nothing persisted, got %d submissions", len(subs))
	}
}

func TestSubmitRecordsBytesActuallyStored(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)

	body := "twenty-four bytes of pdf"
	sub, err := h.submissions.Submit(h.ctx, SubmitInput{
		StudentID:   s.ID,
		WeekID:      w.ID,
		MaterialID:  hw.ID.String(),
		FileName:    "a.pdf",
		ContentType: "application/pdf",
		Size:        3,
		Reader:      strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.FileSize != int64(len(body)) {
		t.Fatalf("FileSize: want=%d got=%d", len(body), sub.FileSize)
	}
}

func TestSubmitQueuesNotificationAndServesFile(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)

	sub, err := h.submit(s.ID, w.ID, hw.ID.String())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if q := h.queue.queued(); len(q) != 1 || q[0] != sub.ID {
		t.Fatalf("queued: %v", q)
	}
	if sub.Notification.State != submission.NotificationPending {
		t.Fatalf("notification state: %s", sub.Notification.State)
	}

	_, rc, err := h.submissions.OpenFile(h.ctx, sub.ID)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "answers for "+hw.ID.String() {
		t.Fatalf("file body: %q", body)
	}
}

func TestQueueFailureDoesNotFailSubmission(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)
	h.queue.err = errors.New("queue down")

	if _, err := h.submit(s.ID, w.ID, hw.ID.String()); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestResendNotification(t *testing.T) {
	h := newHarness(t)
	w := h.week(1)
	hw := h.content(w.ID, course.MaterialHomework, "Worksheet", 1)
	s := h.student(1)
	sub, err := h.submit(s.ID, w.ID, hw.ID.String())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := h.submissions.ResendNotification(h.ctx, sub.ID); err != nil {
		t.Fatalf("resend pending: %v", err)
	}
	if got := len(h.queue.queued()); got != 2 {
		t.Fatalf("queued: want 2 got %d", got)
	}

	sender := &fakeSender{res: DispatchResult{Channel: ChannelWhatsApp, ProviderMessageID: "SM1"}}
	notifier := NewNotificationService(testutil.Logger(t), h.set.Submissions, h.set.Users, h.set.Weeks, sender)
	if err := notifier.Deliver(h.ctx, sub.ID); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := h.submissions.ResendNotification(h.ctx, sub.ID); !errors.Is(err, ErrNotificationAlreadySent) {
		t.Fatalf("resend sent: want ErrNotificationAlreadySent got %v", err)
	}
}

func TestApplyLatePolicy(t *testing.T) {
	due := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	cases := []struct {
		name    string
		m       course.Material
		now     time.Time
		late    bool
		penalty int
		err     error
	}{
		{"no deadline", course.Material{}, due, false, 0, nil},
		{"on time", course.Material{DueDateTime: &due}, due, false, 0, nil},
		{"late refused", course.Material{DueDateTime: &due}, due.Add(time.Minute), false, 0, ErrDeadlinePassed},
		{"late allowed", course.Material{DueDateTime: &due, AllowLateSubmission: true, LatePenaltyPercent: 15}, due.Add(72 * time.Hour), true, 15, nil},
		{"penalty clamped", course.Material{DueDateTime: &due, AllowLateSubmission: true, LatePenaltyPercent: 150}, due.Add(time.Second), true, 100, nil},
	}
	for _, tc := range cases {
		late, penalty, err := ApplyLatePolicy(tc.m, tc.now)
		if !errors.Is(err, tc.err) || late != tc.late || penalty != tc.penalty {
			t.Fatalf("%s: got late=%v penalty=%d err=%v", tc.name, late, penalty, err)
		}
	}
}
