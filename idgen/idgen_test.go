package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("evt_", Default)
	id := gen()
	if !strings.HasPrefix(id, "evt_") {
		t.Errorf("prefix: got %q, want evt_ prefix", id)
	}
	if len(id) <= len("evt_") {
		t.Errorf("ID too short: %q", id)
	}
}
