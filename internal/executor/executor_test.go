package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestExecuteMissingBinary(t *testing.T) {
	exe := New(zerolog.Nop())
	_, err := exe.Execute(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "definitely-not-a-real-binary-xyz") {
		t.Fatalf("error should name the command, got %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("abc", 5); got != "abc" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := tail("abcdef", 3); got != "...def" {
		t.Fatalf("unexpected tail %q", got)
	}
}
