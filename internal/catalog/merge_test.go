package catalog

import (
	"reflect"
	"slices"
	"testing"
)

func expectEntries(t *testing.T, expected, got []Entry) {
	t.Helper()
	if !slices.Equal(expected, got) {
		t.Errorf("Expected entries %+v, got %+v", expected, got)
	}
}

func TestMergeScenarios(t *testing.T) {
	tests := []struct {
		name      string
		existing  *Catalog
		extracted []Entry
		policy    Policy
		want      []Entry
	}{
		{
			name:      "empty catalog receives extracted entry",
			existing:  New(),
			extracted: []Entry{{ID: "hello", Message: "Hello"}},
			want:      []Entry{{ID: "hello", Message: "Hello"}},
		},
		{
			name:      "append mode keeps existing message",
			existing:  New(Entry{ID: "hello", Message: "Bonjour"}),
			extracted: []Entry{{ID: "hello", Message: "Hello"}},
			want:      []Entry{{ID: "hello", Message: "Bonjour"}},
		},
		{
			name:      "override mode replaces existing message",
			existing:  New(Entry{ID: "hello", Message: "Bonjour"}),
			extracted: []Entry{{ID: "hello", Message: "Hello"}},
			policy:    Policy{Override: true},
			want:      []Entry{{ID: "hello", Message: "Hello"}},
		},
		{
			name:      "prefix applies to new ids",
			existing:  New(),
			extracted: []Entry{{ID: "x", Message: "Y"}},
			policy:    Policy{MessagePrefix: "TODO: "},
			want:      []Entry{{ID: "x", Message: "TODO: Y"}},
		},
		{
			name:      "prefix never applies to ids on disk even with override",
			existing:  New(Entry{ID: "x", Message: "old"}),
			extracted: []Entry{{ID: "x", Message: "new"}, {ID: "y", Message: "fresh"}},
			policy:    Policy{Override: true, MessagePrefix: "TODO: "},
			want:      []Entry{{ID: "x", Message: "new"}, {ID: "y", Message: "TODO: fresh"}},
		},
		{
			name: "override replaces description too",
			existing: New(Entry{
				ID: "greet", Message: "Salut", Description: "old hint",
			}),
			extracted: []Entry{{ID: "greet", Message: "Hi", Description: "new hint"}},
			policy:    Policy{Override: true},
			want:      []Entry{{ID: "greet", Message: "Hi", Description: "new hint"}},
		},
		{
			name: "entries missing from source are kept in place",
			existing: New(
				Entry{ID: "b", Message: "B"},
				Entry{ID: "gone", Message: "Still here"},
				Entry{ID: "a", Message: "A"},
			),
			extracted: []Entry{{ID: "c", Message: "C"}, {ID: "a", Message: "A2"}},
			want: []Entry{
				{ID: "b", Message: "B"},
				{ID: "gone", Message: "Still here"},
				{ID: "a", Message: "A"},
				{ID: "c", Message: "C"},
			},
		},
		{
			name:      "later duplicate extracted ids are ignored",
			existing:  New(),
			extracted: []Entry{{ID: "dup", Message: "A"}, {ID: "dup", Message: "B"}},
			want:      []Entry{{ID: "dup", Message: "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Merge(tt.existing, tt.extracted, nil, tt.policy)
			expectEntries(t, tt.want, got.Entries())
		})
	}
}

func TestMergeFallback(t *testing.T) {
	fallback := map[string]string{
		"theme.back": "Back",
		"unused":     "Never used",
	}
	extracted := []Entry{
		{ID: "theme.back"},
		{ID: "theme.next", Message: "Next"},
		{ID: "no.default"},
	}

	got, stats := Merge(New(), extracted, fallback, Policy{})

	expectEntries(t, []Entry{
		{ID: "theme.back", Message: "Back"},
		{ID: "theme.next", Message: "Next"},
		{ID: "no.default", Message: "no.default"},
	}, got.Entries())
	if stats.Appended != 3 {
		t.Errorf("Expected 3 appended, got %d", stats.Appended)
	}
}

func TestMergeStats(t *testing.T) {
	existing := New(
		Entry{ID: "kept", Message: "K"},
		Entry{ID: "replaced", Message: "R"},
		Entry{ID: "stale", Message: "S"},
	)
	extracted := []Entry{
		{ID: "kept", Message: "K2"},
		{ID: "replaced", Message: "R2"},
		{ID: "new", Message: "N"},
	}

	tests := []struct {
		name     string
		policy   Policy
		expected MergeStats
	}{
		{name: "append", policy: Policy{}, expected: MergeStats{Appended: 1, Preserved: 2, Untouched: []string{"stale"}}},
		{name: "override", policy: Policy{Override: true}, expected: MergeStats{Appended: 1, Overridden: 2, Untouched: []string{"stale"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stats := Merge(existing, extracted, nil, tt.policy)
			if !reflect.DeepEqual(stats, tt.expected) {
				t.Errorf("Expected %+v, got %+v", tt.expected, stats)
			}
		})
	}
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	existing := New(Entry{ID: "a", Message: "A"})
	_, _ = Merge(existing, []Entry{{ID: "a", Message: "Z"}, {ID: "b", Message: "B"}}, nil, Policy{Override: true})

	expectEntries(t, []Entry{{ID: "a", Message: "A"}}, existing.Entries())
}

func TestMergePreservesExistingInAppendMode(t *testing.T) {
	existing := New(
		Entry{ID: "one", Message: "Un", Description: "first"},
		Entry{ID: "two", Message: "Deux {count}"},
	)
	inputs := [][]Entry{
		nil,
		{{ID: "one", Message: "One"}},
		{{ID: "two", Message: "Two", Description: "changed"}, {ID: "three", Message: "Three"}},
		{{ID: "one"}, {ID: "two"}},
	}

	for _, extracted := range inputs {
		got, _ := Merge(existing, extracted, map[string]string{"one": "fallback"}, Policy{MessagePrefix: "!"})
		for _, want := range existing.Entries() {
			e, ok := got.Get(want.ID)
			if !ok {
				t.Fatalf("Expected entry %q to be kept", want.ID)
			}
			if e != want {
				t.Errorf("Expected %+v, got %+v", want, e)
			}
		}
		if !slices.Equal(existing.IDs(), got.IDs()[:existing.Len()]) {
			t.Errorf("Expected existing ids first in order, got %v", got.IDs())
		}
	}
}

func TestMergeIsIdempotentInAppendMode(t *testing.T) {
	existing := New(Entry{ID: "a", Message: "Alpha"}, Entry{ID: "z", Message: "Zulu"})
	extracted := []Entry{
		{ID: "b", Message: "Bravo {name}", Description: "greeting"},
		{ID: "a", Message: "ignored"},
		{ID: "c"},
	}
	policy := Policy{MessagePrefix: "TODO: "}
	fallback := map[string]string{"c": "Charlie"}

	first, _ := Merge(existing, extracted, fallback, policy)
	second, stats := Merge(first, extracted, fallback, policy)

	if !first.Equal(second) {
		t.Error("Expected second merge to equal the first")
	}
	if string(Marshal(first)) != string(Marshal(second)) {
		t.Errorf("Expected byte-identical output, got:\n%s\nand:\n%s", Marshal(first), Marshal(second))
	}
	if stats.Appended != 0 {
		t.Errorf("Expected nothing appended, got %d", stats.Appended)
	}
}

func TestMergeOverrideUsesExtractedMessage(t *testing.T) {
	existing := New(Entry{ID: "a", Message: "Old A"}, Entry{ID: "b", Message: "Old B"})
	extracted := []Entry{{ID: "b", Message: "New B"}, {ID: "a", Message: "New A"}}

	got, _ := Merge(existing, extracted, nil, Policy{Override: true, MessagePrefix: "x"})

	for _, e := range extracted {
		m, _ := got.Get(e.ID)
		if m.Message != e.Message {
			t.Errorf("Expected %q for %s, got %q", e.Message, e.ID, m.Message)
		}
	}
	if ids := got.IDs(); !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("Expected on-disk order [a b], got %v", ids)
	}
}
