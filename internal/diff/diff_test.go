package diff

import (
	"strings"
	"testing"
)

func TestUnified(t *testing.T) {
	a := []byte("{\n  \"a\": 1\n}\n")
	b := []byte("{\n  \"a\": 2\n}\n")

	patch, oversize := Unified("old.json", "new.json", a, b, Options{})
	if oversize {
		t.Fatal("Expected patch not to be oversize")
	}
	for _, want := range []string{"--- old.json", "+++ new.json", "-  \"a\": 1", "+  \"a\": 2"} {
		if !strings.Contains(patch, want) {
			t.Errorf("Expected patch to contain %q, got:\n%s", want, patch)
		}
	}
}

func TestUnifiedIdentical(t *testing.T) {
	a := []byte("same\n")
	patch, _ := Unified("a", "b", a, a, Options{})
	if patch != "" {
		t.Errorf("Expected empty patch for identical input, got %q", patch)
	}
}

func TestUnifiedOversize(t *testing.T) {
	patch, oversize := Unified("a", "b", []byte("12345"), []byte("67890"), Options{MaxBytes: 4})
	if !oversize {
		t.Fatal("Expected oversize flag")
	}
	if !strings.Contains(patch, "diff omitted") {
		t.Errorf("Expected placeholder patch, got %q", patch)
	}
}

func TestUnifiedFromEmpty(t *testing.T) {
	patch, _ := Unified("/dev/null", "code.json", nil, []byte("{}\n"), Options{})
	if !strings.Contains(patch, "+{}") {
		t.Errorf("Expected added line, got %q", patch)
	}
}
