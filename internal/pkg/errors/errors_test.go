package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPermanent(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection reset"), false},
		{fmt.Errorf("week %w", ErrNotFound), true},
		{fmt.Errorf("no guardian contact: %w", ErrPrecondition), true},
		{fmt.Errorf("already sent: %w", ErrConflict), true},
		{ErrUnauthorized, false},
	}
	for _, tc := range cases {
		if got := Permanent(tc.err); got != tc.want {
			t.Fatalf("Permanent(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}
