package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/domain/user"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewTokenVerifier("s3cret", "classweek")
	id := uuid.New()
	tok, err := v.Sign(id, user.RoleTeacher, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	rd, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rd.UserID != id || rd.Role != string(user.RoleTeacher) || rd.TokenString != tok {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewTokenVerifier("s3cret", "classweek")
	id := uuid.New()

	expired, _ := v.Sign(id, user.RoleStudent, -time.Hour)
	otherIssuer, _ := NewTokenVerifier("s3cret", "elsewhere").Sign(id, user.RoleStudent, time.Minute)
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    "classweek",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-7",
			Issuer:    "classweek",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("s3cret"))

	for name, tok := range map[string]string{
		"expired":     expired,
		"issuer":      otherIssuer,
		"alg none":    unsigned,
		"bad subject": badSubject,
		"garbage":     "a.b.c",
	} {
		if _, err := v.Verify(tok); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestVerifyDefaultsRoleToStudent(t *testing.T) {
	v := NewTokenVerifier("s3cret", "")
	id := uuid.New()
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("s3cret"))
	rd, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rd.Role != string(user.RoleStudent) {
		t.Fatalf("role: want student got %q", rd.Role)
	}
}
