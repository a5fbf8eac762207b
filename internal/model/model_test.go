package model

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds() {
		got, ok := ParseKind(" " + string(kind) + " ")
		if !ok || got != kind {
			t.Fatalf("ParseKind(%q) = %q,%v", kind, got, ok)
		}
	}
	if _, ok := ParseKind("translator"); ok {
		t.Fatalf("unknown kind must not parse")
	}
}

func TestEnumsDropUnknownValues(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"write tone", WriteTone, "Formal", ToneFormal},
		{"write tone unknown", WriteTone, "sarcastic", ""},
		{"write length", WriteLength, "long", LengthLong},
		{"write length rewrite value", WriteLength, "shorter", ""},
		{"rewrite tone", RewriteTone, "more-casual", RewriteToneMoreCasual},
		{"rewrite tone write value", RewriteTone, "casual", ""},
		{"rewrite length", RewriteLength, " as-is ", RewriteLengthAsIs},
		{"rewrite length unknown", RewriteLength, "tiny", ""},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.in); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestLanguages(t *testing.T) {
	got := Languages([]string{"en-us", "EN-US", "not a tag", "", "fr"})
	want := []string{"en-US", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if name := LanguageName("fr"); name != "French" {
		t.Fatalf("expected French, got %q", name)
	}
}

func TestHandleDestroyCancelsBoundCalls(t *testing.T) {
	closed := 0
	h := NewHandle(KindCorrector, func() error { closed++; return nil })
	if h.ID() == "" || h.Kind() != KindCorrector {
		t.Fatalf("expected identity to be set")
	}
	ctx, release := h.Bind(context.Background())
	defer release()

	if err := h.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("bound context was not cancelled")
	}
	if !errors.Is(context.Cause(ctx), ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed cause, got %v", context.Cause(ctx))
	}
	if err := h.Destroy(); err != nil || closed != 1 {
		t.Fatalf("destroy must be idempotent, closed=%d err=%v", closed, err)
	}
	late, lateRelease := h.Bind(context.Background())
	defer lateRelease()
	if late.Err() == nil || !h.Destroyed() {
		t.Fatalf("binding after destroy must yield a cancelled context")
	}
}

func TestAbortedWrapsOnlyEndedCalls(t *testing.T) {
	base := errors.New("read: connection reset")
	if got := Aborted(context.Background(), base); got != base {
		t.Fatalf("live context must pass the error through, got %v", got)
	}

	h := NewHandle(KindRewriter, nil)
	ctx, release := h.Bind(context.Background())
	defer release()
	_ = h.Destroy()

	err := Aborted(ctx, base)
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("expected AbortError, got %v", err)
	}
	if !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected destroy cause in chain, got %v", err)
	}
	if Aborted(ctx, nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
