package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"validation", Validation("name cannot be empty"), KindValidation},
		{"not found", NotFound("album not found"), KindNotFound},
		{"conflict", Conflict("already exists"), KindConflict},
		{"io with cause", IO("failed writing", errors.New("disk full")), KindIO},
		{"inconsistent", Inconsistent("catalog out of sync", nil), KindInconsistent},
		{"wrapped keeps kind", fmt.Errorf("outer: %w", NotFound("photo not found")), KindNotFound},
		{"untagged", errors.New("plain"), Kind("")},
		{"nil", nil, Kind("")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.expected {
				t.Fatalf("KindOf = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := IO("failed writing", errors.New("disk full"))
	if got := MessageOf(err); got != "failed writing" {
		t.Fatalf("expected bare message, got %q", got)
	}
	if got := err.Error(); got != "failed writing: disk full" {
		t.Fatalf("expected cause in Error(), got %q", got)
	}
	if got := MessageOf(errors.New("plain")); got != "plain" {
		t.Fatalf("expected fallback to Error(), got %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := IO("failed writing", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
}
