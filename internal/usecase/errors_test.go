package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("lookup: %w", ErrNotFound), KindNotFound},
		{invalidInput("email", "bad"), KindInvalidInput},
		{invalidContent("too short"), KindInvalidContent},
		{storeError("append", errors.New("boom")), KindStoreUnavailable},
		{fmt.Errorf("%w: retry in 30s", ErrResendTooSoon), KindResendTooSoon},
		{errors.New("unexpected"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestStoreErrorPassesContextCancellation(t *testing.T) {
	err := storeError("list", context.Canceled)
	if errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("cancellation must not be reported as store failure")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to be preserved")
	}
}
