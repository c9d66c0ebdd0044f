package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	httpMW "github.com/yungbote/classweek-backend/internal/http/middleware"
)

func TestCommandTree(t *testing.T) {
	want := []string{"serve", "worker", "migrate", "repair", "seed-weeks", "token"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Fatalf("missing command %q: %v", name, err)
		}
	}
}

func TestRepairRequiresTarget(t *testing.T) {
	rootCmd.SetArgs([]string{"repair"})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Fatalf("want target error, got %v", err)
	}
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET_KEY", "cli-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("LOG_MODE", "test")
	id := uuid.New()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", id.String(), "--role", "teacher"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	rd, err := httpMW.NewTokenVerifier("cli-secret", "").Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rd.UserID != id || rd.Role != "teacher" {
		t.Fatalf("claims: %+v", rd)
	}
}
