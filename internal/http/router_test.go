package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/classweek-backend/internal/data/repos"
	"github.com/yungbote/classweek-backend/internal/data/repos/testutil"
	types "github.com/yungbote/classweek-backend/internal/domain"
	"github.com/yungbote/classweek-backend/internal/domain/course"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	httpH "github.com/yungbote/classweek-backend/internal/http/handlers"
	httpMW "github.com/yungbote/classweek-backend/internal/http/middleware"
	"github.com/yungbote/classweek-backend/internal/services"
)

const testSecret = "test-secret"

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) Upload(_ context.Context, key string, r io.Reader, _ string) (services.StoredFile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return services.StoredFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return services.StoredFile{URL: "mem://" + key, ID: key}, nil
}

func (s *memStorage) Open(_ context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[strings.TrimPrefix(url, "mem://")]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
	return nil
}

type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, uuid.UUID) error { return nil }

type apiFixture struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	verifier *httpMW.TokenVerifier
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	gdb := testutil.FreshDB(t)
	set := repos.NewSet(gdb, log)

	locker := services.NewLocalLocker()
	ledger := services.NewProgressLedger(log, set.Progress, locker)
	resolver := services.NewMaterialResolver(log, set.Weeks, set.WeekContent)
	evaluator := services.NewCompletionEvaluator(log, resolver, set.Progress, set.Submissions)
	propagator := services.NewUnlockPropagator(log, set.Weeks, ledger)
	progressSvc := services.NewProgressService(log, services.ProgressServiceDeps{
		Users:      set.Users,
		Weeks:      set.Weeks,
		Progress:   set.Progress,
		Resolver:   resolver,
		Evaluator:  evaluator,
		Ledger:     ledger,
		Propagator: propagator,
		Pointer:    services.NewInlinePointerSync(log, set.Users),
	})
	submissionSvc := services.NewSubmissionService(log, services.SubmissionServiceDeps{
		Submissions: set.Submissions,
		Progress:    progressSvc,
		Storage:     &memStorage{objects: map[string][]byte{}},
		Locker:      locker,
		Queue:       nopQueue{},
	})
	enrollment := services.NewEnrollmentService(log, set.Users, set.Weeks, ledger)
	verifier := httpMW.NewTokenVerifier(testSecret, "")

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, verifier),
		HealthHandler:     httpH.NewHealthHandler(),
		MeHandler:         httpH.NewMeHandler(enrollment),
		WeekHandler:       httpH.NewWeekHandler(progressSvc),
		SubmissionHandler: httpH.NewSubmissionHandler(log, submissionSvc),
		AdminHandler: httpH.NewAdminHandler(httpH.AdminHandlerDeps{
			Enrollment:  enrollment,
			Progress:    progressSvc,
			Repair:      services.NewRepairService(log, set.Users, set.Weeks, set.Progress, ledger, propagator),
			Grading:     services.NewGradingService(log, set.Submissions, progressSvc),
			Submissions: submissionSvc,
		}),
	})
	return &apiFixture{t: t, db: gdb, engine: engine, verifier: verifier}
}

func (f *apiFixture) token(id uuid.UUID, role user.Role) string {
	f.t.Helper()
	tok, err := f.verifier.Sign(id, role, time.Hour)
	if err != nil {
		f.t.Fatalf("sign: %v", err)
	}
	return tok
}

func (f *apiFixture) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	f.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func multipartFile(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if content != "" {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	_ = w.WriteField("comment", "done")
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthcheckIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(nethttp.MethodGet, "/healthcheck", "", nil, "")
	if rec.Code != nethttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)
	for _, tok := range []string{"", "not-a-jwt"} {
		rec := f.do(nethttp.MethodGet, "/api/me", tok, nil, "")
		if rec.Code != nethttp.StatusUnauthorized {
			t.Fatalf("token %q: want 401 got %d", tok, rec.Code)
		}
	}
	other := httpMW.NewTokenVerifier("other-secret", "")
	forged, _ := other.Sign(uuid.New(), user.RoleAdmin, time.Hour)
	if rec := f.do(nethttp.MethodGet, "/api/me", forged, nil, ""); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("forged token: want 401 got %d", rec.Code)
	}
}

func TestAdminRoutesRequireStaffRole(t *testing.T) {
	f := newAPIFixture(t)
	student := testutil.SeedStudent(t, context.Background(), f.db, 1)
	rec := f.do(nethttp.MethodPost, "/api/admin/students/"+student.ID.String()+"/repair", f.token(student.ID, user.RoleStudent), nil, "")
	if rec.Code != nethttp.StatusForbidden {
		t.Fatalf("student on admin route: want 403 got %d", rec.Code)
	}
	rec = f.do(nethttp.MethodPost, "/api/admin/students/"+student.ID.String()+"/repair", f.token(uuid.New(), user.RoleTeacher), nil, "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("teacher repair: want 200 got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStudentWeekFlow(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	w1 := testutil.SeedWeek(t, ctx, f.db, testutil.DefaultTrack, 1)
	w2 := testutil.SeedWeek(t, ctx, f.db, testutil.DefaultTrack, 2)
	reading := testutil.SeedContent(t, ctx, f.db, w1.ID, course.MaterialNotes, "Reading", 1)
	hw := testutil.SeedContent(t, ctx, f.db, w1.ID, course.MaterialHomework, "Worksheet", 2)
	student := testutil.SeedStudent(t, ctx, f.db, 1)
	tok := f.token(student.ID, user.RoleStudent)

	rec := f.do(nethttp.MethodGet, "/api/weeks/"+w1.ID.String()+"/materials", tok, nil, "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("materials: %d %s", rec.Code, rec.Body.String())
	}
	var mats struct {
		Materials []types.Material `json:"materials"`
	}
	decode(t, rec, &mats)
	if len(mats.Materials) != 2 {
		t.Fatalf("materials: want 2 got %d", len(mats.Materials))
	}

	rec = f.do(nethttp.MethodPost, "/api/weeks/"+w1.ID.String()+"/materials/"+reading.ID.String()+"/viewed", tok, nil, "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("viewed: %d %s", rec.Code, rec.Body.String())
	}
	var viewed struct {
		Progress types.StudentProgress `json:"progress"`
	}
	decode(t, rec, &viewed)
	if viewed.Progress.Score != 50 {
		t.Fatalf("score after view: want 50 got %d", viewed.Progress.Score)
	}

	body, ct := multipartFile(t, "answers.pdf", "%PDF-1.4 answers")
	rec = f.do(nethttp.MethodPost, "/api/weeks/"+w1.ID.String()+"/materials/"+hw.ID.String()+"/submissions", tok, body, ct)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Submission types.HomeworkSubmission `json:"submission"`
	}
	decode(t, rec, &created)

	body, ct = multipartFile(t, "again.pdf", "second try")
	rec = f.do(nethttp.MethodPost, "/api/weeks/"+w1.ID.String()+"/materials/"+hw.ID.String()+"/submissions", tok, body, ct)
	if rec.Code != nethttp.StatusConflict {
		t.Fatalf("duplicate submit: want 409 got %d", rec.Code)
	}

	rec = f.do(nethttp.MethodGet, "/api/weeks/"+w1.ID.String()+"/progress", tok, nil, "")
	var prog struct {
		Progress types.StudentProgress `json:"progress"`
	}
	decode(t, rec, &prog)
	if prog.Progress.Score != 100 || prog.Progress.CompletedAt == nil {
		t.Fatalf("week 1 progress: %+v", prog.Progress)
	}

	rec = f.do(nethttp.MethodGet, "/api/weeks", tok, nil, "")
	var weeks struct {
		Weeks []services.WeekView `json:"weeks"`
	}
	decode(t, rec, &weeks)
	if len(weeks.Weeks) != 2 || weeks.Weeks[1].Week.ID != w2.ID || !weeks.Weeks[1].IsUnlocked || !weeks.Weeks[1].IsCurrent {
		t.Fatalf("weeks overview: %+v", weeks.Weeks)
	}

	rec = f.do(nethttp.MethodGet, "/api/submissions/"+created.Submission.ID.String()+"/file", tok, nil, "")
	if rec.Code != nethttp.StatusOK || rec.Body.String() != "%PDF-1.4 answers" {
		t.Fatalf("download: %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "answers.pdf") {
		t.Fatalf("content-disposition: %q", cd)
	}

	stranger := f.token(uuid.New(), user.RoleStudent)
	if rec := f.do(nethttp.MethodGet, "/api/submissions/"+created.Submission.ID.String()+"/file", stranger, nil, ""); rec.Code != nethttp.StatusNotFound {
		t.Fatalf("stranger download: want 404 got %d", rec.Code)
	}
	teacher := f.token(uuid.New(), user.RoleTeacher)
	if rec := f.do(nethttp.MethodGet, "/api/submissions/"+created.Submission.ID.String()+"/file", teacher, nil, ""); rec.Code != nethttp.StatusOK {
		t.Fatalf("teacher download: want 200 got %d", rec.Code)
	}
}

func TestSubmitWithoutFileIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	w1 := testutil.SeedWeek(t, ctx, f.db, testutil.DefaultTrack, 1)
	hw := testutil.SeedContent(t, ctx, f.db, w1.ID, course.MaterialHomework, "Worksheet", 1)
	student := testutil.SeedStudent(t, ctx, f.db, 1)

	body, ct := multipartFile(t, "", "")
	rec := f.do(nethttp.MethodPost, "/api/weeks/"+w1.ID.String()+"/materials/"+hw.ID.String()+"/submissions", f.token(student.ID, user.RoleStudent), body, ct)
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("want 400 got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"field":"file"`) {
		t.Fatalf("expected file field error: %s", rec.Body.String())
	}
}

func TestInvalidWeekID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(nethttp.MethodGet, "/api/weeks/not-a-uuid/progress", f.token(uuid.New(), user.RoleStudent), nil, "")
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("want 400 got %d", rec.Code)
	}
}

func TestAdminRegisterAndGrade(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	w1 := testutil.SeedWeek(t, ctx, f.db, testutil.DefaultTrack, 1)
	hw := testutil.SeedContent(t, ctx, f.db, w1.ID, course.MaterialHomework, "Worksheet", 1)
	admin := f.token(uuid.New(), user.RoleAdmin)

	payload := `{"name":"Lena Ortiz","year":2024,"curriculum":"cambridge","student_type":"igcse","guardian_phone":"+15550003333"}`
	rec := f.do(nethttp.MethodPost, "/api/admin/students", admin, strings.NewReader(payload), "application/json")
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	var reg struct {
		Student   types.User            `json:"student"`
		FirstWeek types.StudentProgress `json:"first_week"`
	}
	decode(t, rec, &reg)
	if reg.FirstWeek.WeekID != w1.ID || !reg.FirstWeek.Access.IsUnlocked {
		t.Fatalf("first week: %+v", reg.FirstWeek)
	}

	body, ct := multipartFile(t, "answers.pdf", "answers")
	rec = f.do(nethttp.MethodPost, "/api/weeks/"+w1.ID.String()+"/materials/"+hw.ID.String()+"/submissions", f.token(reg.Student.ID, user.RoleStudent), body, ct)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Submission types.HomeworkSubmission `json:"submission"`
	}
	decode(t, rec, &created)

	rec = f.do(nethttp.MethodPost, "/api/admin/submissions/"+created.Submission.ID.String()+"/grade", admin,
		strings.NewReader(`{"points":17,"max_points":20,"feedback":"good"}`), "application/json")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("grade: %d %s", rec.Code, rec.Body.String())
	}
	var graded struct {
		Submission types.HomeworkSubmission `json:"submission"`
	}
	decode(t, rec, &graded)
	if graded.Submission.Grade.LetterGrade != "B" {
		t.Fatalf("letter grade: %+v", graded.Submission.Grade)
	}

	rec = f.do(nethttp.MethodPost, "/api/admin/submissions/"+created.Submission.ID.String()+"/grade", admin,
		strings.NewReader(`{"points":30,"max_points":20}`), "application/json")
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("over-max grade: want 400 got %d", rec.Code)
	}
}
