package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("disk I/O error")
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{InvalidArgument("history.update", "history id is not a number", nil), KindInvalidArgument},
		{NotFound("service.findById", "no service of id 3"), KindNotFound},
		{DataAccessFailure("history.create", cause), KindDataAccessFailure},
		{UnexpectedEmptyResult("service.create"), KindUnexpectedEmptyResult},
		{fmt.Errorf("wrapped: %w", NotFound("history.remove", "no history of id 9")), KindNotFound},
		{cause, KindDataAccessFailure},
	}
	for i, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("case %d: KindOf = %q, want %q", i, got, tc.want)
		}
	}
}

func TestErrorIsAndUnwrap(t *testing.T) {
	cause := errors.New("constraint failed")
	err := fmt.Errorf("store: %w", DataAccessFailure("history.create", cause))

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if !errors.Is(err, &Error{Kind: KindDataAccessFailure}) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Fatalf("unexpected kind match")
	}
	if MessageOf(err) != "internal server error" {
		t.Fatalf("driver text must not leak: %q", MessageOf(err))
	}
	if MessageOf(NotFound("x", "no history of id 1")) != "no history of id 1" {
		t.Fatalf("not found message not preserved")
	}
}
