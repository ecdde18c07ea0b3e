package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "masquerade "+GetVersion()) {
		t.Errorf("unexpected version line %q", s)
	}
	if !strings.Contains(s, GetBuildDate()) {
		t.Errorf("version line %q misses build date", s)
	}
}
