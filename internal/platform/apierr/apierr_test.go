package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := BadRequest("missing_environment", "missing %s", "hostname")
	wrapped := fmt.Errorf("get build: %w", base)

	got := As(wrapped)
	if got.Status != http.StatusBadRequest || got.Code != "missing_environment" {
		t.Fatalf("unexpected error %+v", got)
	}
	if got.Error() != "missing hostname" {
		t.Fatalf("message = %q", got.Error())
	}

	plain := As(errors.New("boom"))
	if plain.Status != http.StatusInternalServerError {
		t.Fatalf("plain errors should be 500, got %d", plain.Status)
	}
}
