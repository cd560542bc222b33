package env

import "testing"

func TestGetPrefersFirstSetKey(t *testing.T) {
	t.Setenv("BAIRD_TEST_PRIMARY", "  ")
	t.Setenv("BAIRD_TEST_SECONDARY", "console")

	if got := Get("json", "BAIRD_TEST_PRIMARY", "BAIRD_TEST_SECONDARY"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	if got := Get("json", "BAIRD_TEST_UNSET"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
