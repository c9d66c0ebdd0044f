package services

import (
	"errors"
	"testing"

	"github.com/yungbote/classweek-backend/internal/domain/progress"
	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/platform/validate"
)

func TestRegisterUnlocksFirstWeek(t *testing.T) {
	h := newHarness(t)
	w1 := h.week(1)
	h.week(2)

	student, entry, err := h.enrollment.Register(h.ctx, RegisterStudentInput{
		Name:          " Amina Yusuf ",
		Email:         "Amina@Example.com",
		Year:          h.track.Year,
		Curriculum:    h.track.Curriculum,
		StudentType:   h.track.StudentType,
		GuardianName:  "Mrs. Yusuf",
		GuardianPhone: "+15550002222",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if student.Name != "Amina Yusuf" || student.Email != "amina@example.com" || student.Role != user.RoleStudent || student.CurrentWeek != 1 {
		t.Fatalf("student: %+v", student)
	}
	if entry == nil || entry.WeekID != w1.ID || !entry.Access.IsUnlocked {
		t.Fatalf("week 1 entry: %+v", entry)
	}
	if entry.Access.UnlockedBy != progress.UnlockedByAuto || entry.Access.UnlockReason != EnrollmentUnlockReason || entry.Status != progress.StatusUnlocked {
		t.Fatalf("access: %+v status=%s", entry.Access, entry.Status)
	}
}

func TestRegisterWithoutWeeks(t *testing.T) {
	h := newHarness(t)
	student, entry, err := h.enrollment.Register(h.ctx, RegisterStudentInput{
		Name: "No Weeks", Year: 2030, Curriculum: "none", StudentType: "none",
	})
	if err != nil || student == nil || entry != nil {
		t.Fatalf("got student=%v entry=%v err=%v", student, entry, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	cases := []RegisterStudentInput{
		{Name: " ", Year: 2024, Curriculum: "c", StudentType: "s"},
		{Name: "A", Year: 0, Curriculum: "c", StudentType: "s"},
		{Name: "A", Year: 2024, Curriculum: "c", StudentType: "s", GuardianPhone: "555-1234"},
		{Name: "A", Year: 2024, Curriculum: "c", StudentType: "s", GuardianEmail: "not-an-email"},
	}
	for i, in := range cases {
		var verr *validate.ValidationError
		if _, _, err := h.enrollment.Register(h.ctx, in); !errors.As(err, &verr) {
			t.Fatalf("case %d: want ValidationError got %v", i, err)
		}
	}
}
