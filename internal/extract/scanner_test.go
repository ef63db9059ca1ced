package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bondowe/translationsplus/internal/catalog"
)

func writeSources(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		paths = append(paths, path)
	}
	return dir, paths
}

func quietScanner(t *testing.T, opts ...ScannerOption) *Scanner {
	t.Helper()
	opts = append([]ScannerOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := NewScanner(DefaultAliasConfig(), opts...)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return s
}

func TestScanConflictingIDsFirstWins(t *testing.T) {
	dir, paths := writeSources(t, map[string]string{
		"a.js": `translate({id: 'dup', message: 'A'})`,
		"b.js": `translate({id: 'dup', message: 'B'})`,
	})

	var logs bytes.Buffer
	s, err := NewScanner(DefaultAliasConfig(), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	res, err := s.Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []catalog.Entry{{ID: "dup", Message: "A"}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(res.Conflicts))
	}
	c := res.Conflicts[0]
	if c.First.File != filepath.Join(dir, "a.js") || c.Second.File != filepath.Join(dir, "b.js") {
		t.Errorf("Expected a.js kept over b.js, got %s and %s", c.First.File, c.Second.File)
	}
	if !strings.Contains(logs.String(), "conflicting translation id") {
		t.Errorf("Expected conflict to be logged, got %q", logs.String())
	}
}

func TestScanIdenticalDuplicatesAreNotConflicts(t *testing.T) {
	_, paths := writeSources(t, map[string]string{
		"a.jsx": `<Translate id="same">Same text</Translate>`,
		"b.js":  `translate({id: 'same', message: 'Same text'})`,
	})

	res, err := quietScanner(t).Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %v", res.Conflicts)
	}
	if len(res.Occurrences) != 2 || len(res.Entries) != 1 {
		t.Errorf("Expected 2 occurrences and 1 entry, got %d and %d", len(res.Occurrences), len(res.Entries))
	}
}

func TestScanIsDeterministic(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["pages/"+name+".jsx"] = `export default () => <Translate id="shared">From ` + name + `</Translate>;
translate({id: '` + name + `.title', message: 'Title ` + name + `'});`
	}
	_, paths := writeSources(t, files)

	first, err := quietScanner(t, WithConcurrency(1)).Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	reversed := make([]string, len(paths))
	for i, p := range paths {
		reversed[len(paths)-1-i] = p
	}
	second, err := quietScanner(t, WithConcurrency(8)).Scan(context.Background(), append(reversed, paths...))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
	if first.FilesScanned != 8 {
		t.Errorf("Expected 8 files scanned, got %d", first.FilesScanned)
	}
	if got := first.Entries[0]; got.ID != "shared" || got.Message != "From a" {
		t.Errorf("Expected first entry from a.jsx, got %+v", got)
	}
	if len(first.Conflicts) != 7 {
		t.Errorf("Expected 7 conflicts, got %d", len(first.Conflicts))
	}
}

func TestScanSkipsUnparsableFiles(t *testing.T) {
	dir, paths := writeSources(t, map[string]string{
		"bad.js":  "translate({message: 'lost'\n",
		"good.js": `translate({message: 'kept'})`,
	})
	paths = append(paths, filepath.Join(dir, "missing.js"))

	res, err := quietScanner(t).Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []catalog.Entry{{ID: "kept", Message: "kept"}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %v", res.Diagnostics)
	}
	if res.Diagnostics[0].File != filepath.Join(dir, "bad.js") || res.Diagnostics[0].Line != 1 {
		t.Errorf("Expected syntax error in bad.js at line 1, got %s", res.Diagnostics[0])
	}
	if !strings.HasPrefix(res.Diagnostics[1].Message, "error reading file") {
		t.Errorf("Expected read error, got %s", res.Diagnostics[1])
	}
}

func TestScanSeesFileChanges(t *testing.T) {
	_, paths := writeSources(t, map[string]string{
		"page.js": `translate({message: 'before'})`,
	})
	cache, err := NewCache(8)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	s := quietScanner(t, WithCache(cache))

	if _, err := s.Scan(context.Background(), paths); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := os.WriteFile(paths[0], []byte(`translate({message: 'after'})`), 0o600); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	res, err := s.Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []catalog.Entry{{ID: "after", Message: "after"}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if res.CacheHits != 0 {
		t.Errorf("Expected a changed file to miss the cache, got %d hits", res.CacheHits)
	}
}

func TestScanSharedCache(t *testing.T) {
	_, paths := writeSources(t, map[string]string{
		"a.js":  `translate({message: 'A'})`,
		"b.jsx": `<Msg>B</Msg>`,
	})
	cache, err := NewCache(16)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	first := quietScanner(t, WithCache(cache))
	res, err := first.Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.CacheHits != 0 || cache.Len() != 2 {
		t.Fatalf("Expected a cold cache filled with 2 results, got %d hits and %d entries", res.CacheHits, cache.Len())
	}

	second := quietScanner(t, WithCache(cache))
	res, err = second.Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.CacheHits != 2 || cache.Hits() != 2 {
		t.Errorf("Expected 2 cache hits, got %d (cache total %d)", res.CacheHits, cache.Hits())
	}
	want := []catalog.Entry{{ID: "A", Message: "A"}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// Different aliases never reuse results computed for other aliases.
	aliases, err := NewAliasConfig([]string{"Msg"}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	third, err := NewScanner(aliases, WithCache(cache), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	res, err = third.Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.CacheHits != 0 {
		t.Errorf("Expected no hits for a different alias set, got %d", res.CacheHits)
	}
	want = []catalog.Entry{{ID: "A", Message: "A"}, {ID: "B", Message: "B"}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestScanTypeScriptFiles(t *testing.T) {
	_, paths := writeSources(t, map[string]string{
		"util.ts":   `export const n = <number>raw; export const s = translate({message: 'plain ts'});`,
		"view.tsx":  `export const V = () => <Translate>tsx text</Translate>;`,
		"other.mjs": `export default translate({message: 'module js'});`,
	})

	res, err := quietScanner(t).Scan(context.Background(), paths)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []catalog.Entry{
		{ID: "module js", Message: "module js"},
		{ID: "plain ts", Message: "plain ts"},
		{ID: "tsx text", Message: "tsx text"},
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestScanCanceledContext(t *testing.T) {
	_, paths := writeSources(t, map[string]string{"a.js": `translate({message: 'a'})`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietScanner(t).Scan(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{d: Diagnostic{File: "a.js", Line: 3, Column: 7, Message: "oops"}, want: "a.js:3:7: oops"},
		{d: Diagnostic{File: "a.js", Message: "unreadable"}, want: "a.js: unreadable"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}
