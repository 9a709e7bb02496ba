package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: KindTransport},
		{name: "fault", err: New(KindServerValidation, "bad"), want: KindServerValidation},
		{name: "wrapped fault", err: fmt.Errorf("client: update: %w", Session(KindExpiredToken, "Token expired")), want: KindExpiredToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsSession(t *testing.T) {
	if !IsSession(Session(KindExpiredToken, "Token expired")) {
		t.Fatalf("expected expired token to be a session fault")
	}
	if !IsSession(Session("", "Unauthorized")) {
		t.Fatalf("expected default session kind to be unauthorized")
	}
	if IsSession(New(KindTransport, "Unauthorized")) {
		t.Fatalf("message text must not make a transport fault a session fault")
	}
	if IsSession(errors.New("Token expired")) {
		t.Fatalf("plain errors are never session faults")
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(New(KindTransport, "  Server unavailable "), "fallback"); got != "Server unavailable" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(Wrap(KindTransport, "", errors.New("dial tcp")), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := MessageOf(errors.New("raw"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for non-fault error, got %q", got)
	}
}

func TestFaultIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindServerValidation, "Email already taken"))
	if !errors.Is(err, New(KindServerValidation, "")) {
		t.Fatalf("expected errors.Is to match on kind")
	}
	if errors.Is(err, New(KindTransport, "")) {
		t.Fatalf("expected kinds to differ")
	}
}

func TestFieldMessagesCopies(t *testing.T) {
	fault := New(KindServerValidation, "Invalid input")
	fault.Fields = map[string][]string{"email": {"Email already taken"}}

	got := FieldMessages(fault)
	if diff := cmp.Diff(map[string][]string{"email": {"Email already taken"}}, got); diff != "" {
		t.Fatalf("field messages mismatch (-want +got):\n%s", diff)
	}
	got["email"][0] = "mutated"
	if fault.Fields["email"][0] != "Email already taken" {
		t.Fatalf("expected FieldMessages to return a copy")
	}
}
