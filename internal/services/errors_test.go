package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrValidation, "stage", "parse request", "stage name missing", cause)

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected wrapped error to match ErrValidation, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to retain cause, got %v", err)
	}
	for _, fragment := range []string{"stage", "parse request", "stage name missing"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error message %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected nil marker to default to ErrTransient, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrValidation, "a", "b", "c", nil), "validation"},
		{Wrap(ErrNotFound, "a", "b", "c", nil), "not_found"},
		{Wrap(ErrPermission, "a", "b", "c", nil), "permission"},
		{Wrap(ErrProcessing, "a", "b", "c", nil), "processing"},
		{Wrap(ErrCompensation, "a", "b", "c", nil), "compensation"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdeaID(context.Background(), "idea-1")
	ctx = WithStage(ctx, "suggested")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := IdeaIDFromContext(ctx); !ok || id != "idea-1" {
		t.Fatalf("idea id = %q, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "suggested" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}

	if _, ok := IdeaIDFromContext(context.Background()); ok {
		t.Fatal("expected empty context to report no idea id")
	}
}
