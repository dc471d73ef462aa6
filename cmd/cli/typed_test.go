package main

import (
	"errors"
	"testing"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/errs"
	"github.com/and161185/estatedesk/internal/model"
)

func Test_parseWhen(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"2026-11-02T10:00:00Z", "2026-11-02 10:00", "2026-11-02"} {
		got, err := parseWhen(s)
		if err != nil {
			t.Fatalf("parseWhen(%q): %v", s, err)
		}
		if got.Year() != 2026 || got.Month() != time.November || got.Day() != 2 {
			t.Fatalf("parseWhen(%q) = %v", s, got)
		}
	}
	for _, s := range []string{"", "02/11/2026", "tomorrow"} {
		if _, err := parseWhen(s); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("parseWhen(%q) should fail with validation, got %v", s, err)
		}
	}
}

func Test_parseID(t *testing.T) {
	t.Parallel()

	id := u.Must(u.NewV4())
	got, err := parseID(" " + id.String() + " ")
	if err != nil || got != id {
		t.Fatalf("parseID: %v %v", got, err)
	}
	if _, err := parseID("not-a-uuid"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad id should be a validation error: %v", err)
	}
}

func Test_describe(t *testing.T) {
	t.Parallel()

	id := u.Must(u.NewV4())
	cases := []struct {
		s    model.Session
		want string
	}{
		{model.Anonymous{}, "anonymous"},
		{model.Resident{UserSession: model.UserSession{Email: "a@b.c"}}, "resident a@b.c"},
		{model.Resident{UserSession: model.UserSession{UserID: id}}, "resident " + id.String()},
		{model.Admin{AdminSession: model.AdminSession{Username: "root"}}, "admin root"},
	}
	for _, c := range cases {
		if got := describe(c.s); got != c.want {
			t.Fatalf("describe(%T) = %q, want %q", c.s, got, c.want)
		}
	}
}
