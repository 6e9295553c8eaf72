package service

import (
	"errors"
	"testing"
	"time"

	"slotbook/backend/internal/store"
)

func TestOverlapErrorMatchesStoreConflict(t *testing.T) {
	err := error(&OverlapError{CategoryID: 1, Start: time.Unix(0, 0), End: time.Unix(900, 0)})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("errors.Is(OverlapError, ErrConflict) = false")
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Fatalf("OverlapError must not match ErrNotFound")
	}
}

func TestErrorsAreFreshValues(t *testing.T) {
	a := Forbidden("no")
	b := Forbidden("no")
	if a == b {
		t.Fatalf("Forbidden returned a shared value")
	}

	var vErr *ValidationError
	if !errors.As(Invalid("startTime", "must be in the future"), &vErr) || vErr.Field != "startTime" {
		t.Fatalf("Invalid did not produce a *ValidationError with the field set")
	}
}
