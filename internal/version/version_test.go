package version

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	if Version == "" || Commit == "" || BuiltAt == "" {
		t.Fatalf("build info must not be empty: %s / %s / %s", Version, Commit, BuiltAt)
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, field := range []string{"version=", "commit=", "built_at="} {
		if !strings.Contains(s, field) {
			t.Errorf("String() missing %q: %s", field, s)
		}
	}
}
