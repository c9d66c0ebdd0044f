package validate

import (
	"errors"
	"testing"
)

type sample struct {
	Name  string `json:"name" validate:"notblank"`
	Phone string `json:"phone" validate:"omitempty,e164"`
	Week  int    `json:"week_number" validate:"required,min=1"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := New().Struct(sample{Name: "  ", Phone: "12", Week: 0})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want *ValidationError got=%T (%v)", err, err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid in chain")
	}
	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Error
	}
	for _, field := range []string{"name", "phone", "week_number"} {
		if _, ok := got[field]; !ok {
			t.Fatalf("missing field error for %q in %v", field, got)
		}
	}
	if got["name"] != "name must not be blank" {
		t.Fatalf("notblank message: %q", got["name"])
	}
	if got["week_number"] != "week_number is required" {
		t.Fatalf("required message: %q", got["week_number"])
	}
}

func TestStructValid(t *testing.T) {
	if err := Default().Struct(sample{Name: "x", Phone: "+15550001111", Week: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
