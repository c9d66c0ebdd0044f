package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

func testLocker(t *testing.T) *Locker {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	l, err := NewLocker(logger.Nop(), LockerConfig{
		Addr:   addr,
		Prefix: fmt.Sprintf("classweek:test:%d:", time.Now().UnixNano()),
		TTL:    5 * time.Second,
		Retry:  10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewLocker: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	l := testLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "progress:s1:w1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(waitCtx, "progress:s1:w1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock: want deadline exceeded, got %v", err)
	}

	unlock()
	unlock2, err := l.Lock(ctx, "progress:s1:w1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}

func TestLockerIndependentKeys(t *testing.T) {
	l := testLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer a()
	b, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock b: %v", err)
	}
	b()
}
