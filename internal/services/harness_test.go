package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	"github.com/yungbote/classweek-backend/internal/data/repos/testutil"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	set   repos.Set
	track types.Track

	storage *fakeStorage
	queue   *fakeQueue

	ledger      ProgressLedger
	propagator  UnlockPropagator
	evaluator   CompletionEvaluator
	progress    ProgressService
	submissions SubmissionService
	grading     GradingService
	enrollment  EnrollmentService
	repair      RepairService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testutil.Logger(t)
	gdb := testutil.FreshDB(t)
	set := repos.NewSet(gdb, log)

	locker := NewLocalLocker()
	ledger := NewProgressLedger(log, set.Progress, locker)
	resolver := NewMaterialResolver(log, set.Weeks, set.WeekContent)
	evaluator := NewCompletionEvaluator(log, resolver, set.Progress, set.Submissions)
	propagator := NewUnlockPropagator(log, set.Weeks, ledger)
	progressSvc := NewProgressService(log, ProgressServiceDeps{
		Users:      set.Users,
		Weeks:      set.Weeks,
		Progress:   set.Progress,
		Resolver:   resolver,
		Evaluator:  evaluator,
		Ledger:     ledger,
		Propagator: propagator,
		Pointer:    NewInlinePointerSync(log, set.Users),
	})
	storage := newFakeStorage()
	queue := &fakeQueue{}

	return &harness{
		t:     t,
		ctx:   context.Background(),
		db:    gdb,
		set:   set,
		track: types.Track{Year: 2024, Curriculum: "cambridge-" + uuid.NewString()[:8], StudentType: "igcse"},

		storage: storage,
		queue:   queue,

		ledger:     ledger,
		propagator: propagator,
		evaluator:  evaluator,
		progress:   progressSvc,
		submissions: NewSubmissionService(log, SubmissionServiceDeps{
			Submissions: set.Submissions,
			Progress:    progressSvc,
			Storage:     storage,
			Locker:      locker,
			Queue:       queue,
		}),
		grading:    NewGradingService(log, set.Submissions, progressSvc),
		enrollment: NewEnrollmentService(log, set.Users, set.Weeks, ledger),
		repair:     NewRepairService(log, set.Users, set.Weeks, set.Progress, ledger, propagator),
	}
}

func (h *harness) student(currentWeek int) *types.User {
	h.t.Helper()
	id := uuid.New()
	u := &types.User{
		ID:            id,
		Name:          "Student " + id.String()[:8],
		Role:          user.RoleStudent,
		Year:          h.track.Year,
		Curriculum:    h.track.Curriculum,
		StudentType:   h.track.StudentType,
		CurrentWeek:   currentWeek,
		GuardianName:  "Guardian",
		GuardianPhone: "+15550001111",
	}
	if err := h.db.WithContext(h.ctx).Create(u).Error; err != nil {
		h.t.Fatalf("seed student: %v", err)
	}
	return u
}

func (h *harness) week(number int, legacy ...types.LegacyMaterial) *types.Week {
	h.t.Helper()
	return testutil.SeedWeek(h.t, h.ctx, h.db, h.track, number, legacy...)
}

func (h *harness) weekOn(track types.Track, number int) *types.Week {
	h.t.Helper()
	return testutil.SeedWeek(h.t, h.ctx, h.db, track, number)
}

func (h *harness) content(weekID uuid.UUID, typ types.MaterialType, title string, order int) *types.WeekContent {
	h.t.Helper()
	return testutil.SeedContent(h.t, h.ctx, h.db, weekID, typ, title, order)
}

// homework seeds a homework row with an explicit deadline policy.
func (h *harness) homework(weekID uuid.UUID, title string, due time.Time, allowLate bool, penalty int) *types.WeekContent {
	h.t.Helper()
	due = due.UTC()
	c := &types.WeekContent{
		ID:                  uuid.New(),
		WeekID:              weekID,
		Type:                course.MaterialHomework,
		Title:               title,
		FileName:            title + ".pdf",
		IsRequired:          true,
		IsActive:            true,
		DueDateTime:         &due,
		AllowLateSubmission: allowLate,
		LatePenaltyPercent:  penalty,
	}
	if err := h.db.WithContext(h.ctx).Create(c).Error; err != nil {
		h.t.Fatalf("seed homework: %v", err)
	}
	return c
}

func (h *harness) submit(studentID, weekID uuid.UUID, materialID string) (*types.HomeworkSubmission, error) {
	body := "answers for " + materialID
	return h.submissions.Submit(h.ctx, SubmitInput{
		StudentID:   studentID,
		WeekID:      weekID,
		MaterialID:  materialID,
		FileName:    "answers.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Reader:      strings.NewReader(body),
	})
}

func (h *harness) entry(studentID, weekID uuid.UUID) *types.StudentProgress {
	h.t.Helper()
	e, err := h.ledger.Get(h.ctx, studentID, weekID)
	if err != nil {
		h.t.Fatalf("ledger get: %v", err)
	}
	return e
}

func (h *harness) reloadUser(id uuid.UUID) *types.User {
	h.t.Helper()
	u, err := h.set.Users.GetByID(dbctx.With(h.ctx), id)
	if err != nil || u == nil {
		h.t.Fatalf("reload user: %v", err)
	}
	return u
}

func (h *harness) withSubmissionClock(now time.Time) {
	h.submissions.(*submissionService).now = func() time.Time { return now }
}

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failUpload error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, key string, r io.Reader, _ string) (StoredFile, error) {
	if s.failUpload != nil {
		return StoredFile{}, s.failUpload
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return StoredFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return StoredFile{URL: "mem://" + key, ID: key}, nil
}

func (s *fakeStorage) Open(_ context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[strings.TrimPrefix(url, "mem://")]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, id uuid.UUID) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

func (q *fakeQueue) queued() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uuid.UUID(nil), q.ids...)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []GuardianMessage
	res  DispatchResult
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg GuardianMessage) (DispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return DispatchResult{}, s.err
	}
	s.sent = append(s.sent, msg)
	return s.res, nil
}

func legacyMaterial(id string, typ types.MaterialType, title string, order int) types.LegacyMaterial {
	return types.LegacyMaterial{
		ID:         id,
		Type:       typ,
		Title:      title,
		FileName:   fmt.Sprintf("%s.pdf", strings.ToLower(strings.ReplaceAll(title, " ", "-"))),
		IsRequired: true,
		Order:      order,
	}
}
