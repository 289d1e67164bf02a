package id

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	id := Generate()

	// Check format
	if !strings.HasPrefix(id, "job-") {
		t.Errorf("expected ID to start with 'job-', got %s", id)
	}
	if len(id) != len("job-")+36 {
		t.Errorf("expected a uuid after the prefix, got %s", id)
	}

	// Check uniqueness
	id2 := Generate()
	if id == id2 {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Generate()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSuffix(t *testing.T) {
	hex8 := regexp.MustCompile(`^[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := Suffix()
		if !hex8.MatchString(s) {
			t.Fatalf("unexpected suffix format %q", s)
		}
		if seen[s] {
			t.Errorf("duplicate suffix generated: %s", s)
		}
		seen[s] = true
	}
}
