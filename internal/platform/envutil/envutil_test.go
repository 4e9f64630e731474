package envutil

import (
	"testing"
	"time"
)

func TestTypedLookups(t *testing.T) {
	t.Setenv("SPACKMON_TEST_INT", "12")
	t.Setenv("SPACKMON_TEST_BAD_INT", "twelve")
	t.Setenv("SPACKMON_TEST_BOOL", "yes")
	t.Setenv("SPACKMON_TEST_DUR", "45")
	t.Setenv("SPACKMON_TEST_DUR2", "2m")

	if got := Int("SPACKMON_TEST_INT", 1); got != 12 {
		t.Fatalf("Int = %d", got)
	}
	if got := Int("SPACKMON_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback = %d", got)
	}
	if !Bool("SPACKMON_TEST_BOOL", false) {
		t.Fatal("Bool should be true")
	}
	if got := Duration("SPACKMON_TEST_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("Duration seconds = %s", got)
	}
	if got := Duration("SPACKMON_TEST_DUR2", time.Second); got != 2*time.Minute {
		t.Fatalf("Duration parse = %s", got)
	}
	if got := String("SPACKMON_TEST_UNSET", "x"); got != "x" {
		t.Fatalf("String default = %q", got)
	}
}
