package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatsAndUnwraps(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: specs.full_hash")
	err := Wrap(CodeConflict, "spec.import_node", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	want := "spec.import_node: UNIQUE constraint failed: specs.full_hash (conflict)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if Wrap(CodeInternal, "noop", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build.status: %w", NewError(CodeRetryable, "build.status", "database is locked", nil))
	if got := CodeOf(err); got != CodeRetryable {
		t.Fatalf("CodeOf = %q", got)
	}
	if !CodeOf(err).Temporary() {
		t.Fatalf("retryable should be temporary")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
	if CodeValidation.Temporary() || CodeNotFound.Temporary() {
		t.Fatalf("caller errors are not temporary")
	}
}
