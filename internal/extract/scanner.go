package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bondowe/translationsplus/internal/catalog"
)

const defaultCacheSize = 4096

type (
	// Kind tells which syntactic form produced an occurrence.
	Kind int

	// Occurrence is one translatable string found in a source file.
	Occurrence struct {
		Entry  catalog.Entry
		File   string
		Line   int
		Column int
		Kind   Kind
	}

	// Diagnostic is a recoverable problem found while scanning. The affected
	// occurrence, or the whole file for syntax errors, is skipped.
	Diagnostic struct {
		File    string
		Line    int
		Column  int
		Message string
	}

	// Conflict records an id declared twice with different content. First is
	// the occurrence that was kept.
	Conflict struct {
		ID     string
		First  Occurrence
		Second Occurrence
	}

	// Result is the outcome of scanning a set of files.
	Result struct {
		FilesScanned int
		// Occurrences are ordered by file path, then position in the file.
		Occurrences []Occurrence
		// Entries holds one entry per id, first occurrence wins.
		Entries     []catalog.Entry
		Conflicts   []Conflict
		Diagnostics []Diagnostic
		// CacheHits counts files whose result came from the cache.
		CacheHits int
	}

	// Cache memoises per-file results by path, content and alias set, so it
	// can be shared by scanners with different aliases. It is safe for
	// concurrent use.
	Cache struct {
		results *lru.Cache[string, fileResult]
		hits    atomic.Int64
	}

	// Scanner extracts occurrences from source files. It is safe for
	// concurrent use.
	Scanner struct {
		aliases     AliasConfig
		logger      *slog.Logger
		cache       *Cache
		concurrency int
	}

	// ScannerOption configures a Scanner.
	ScannerOption func(*Scanner)

	fileResult struct {
		occurrences []Occurrence
		diagnostics []Diagnostic
	}
)

const (
	// CallForm is a `translate({...})` call.
	CallForm Kind = iota
	// TagForm is a `<Translate ...>` element.
	TagForm
)

func (k Kind) String() string {
	if k == TagForm {
		return "tag"
	}
	return "call"
}

// Location returns file:line:column.
func (o Occurrence) Location() string {
	return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Column)
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
}

func (c Conflict) String() string {
	return fmt.Sprintf("id %q declared at %s with message %q and at %s with message %q",
		c.ID, c.First.Location(), c.First.Entry.Message, c.Second.Location(), c.Second.Entry.Message)
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = l }
}

// WithConcurrency bounds the number of files scanned at once.
func WithConcurrency(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCache shares c with other scanners. Without it each scanner memoises
// up to 4096 file results of its own.
func WithCache(c *Cache) ScannerOption {
	return func(s *Scanner) { s.cache = c }
}

// NewScanner returns a Scanner recognizing the given aliases.
func NewScanner(aliases AliasConfig, opts ...ScannerOption) (*Scanner, error) {
	s := &Scanner{
		aliases:     aliases,
		logger:      slog.Default(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		cache, err := NewCache(defaultCacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// NewCache returns a cache holding up to size file results.
func NewCache(size int) (*Cache, error) {
	results, err := lru.New[string, fileResult](size)
	if err != nil {
		return nil, fmt.Errorf("error creating scan cache: %w", err)
	}
	return &Cache{results: results}, nil
}

// Hits returns the number of lookups served from the cache so far.
func (c *Cache) Hits() int {
	return int(c.hits.Load())
}

// Len returns the number of cached file results.
func (c *Cache) Len() int {
	return c.results.Len()
}

func (c *Cache) get(key string) (fileResult, bool) {
	res, ok := c.results.Get(key)
	if ok {
		c.hits.Add(1)
	}
	return res, ok
}

// Scan extracts occurrences from paths. Files are processed concurrently but
// the result only depends on the file contents, never on scheduling.
func (s *Scanner) Scan(ctx context.Context, paths []string) (*Result, error) {
	files := uniqueSorted(paths)
	results := make([]fileResult, len(files))
	hits := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], hits[i] = s.scanFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{FilesScanned: len(files)}
	for i, r := range results {
		if hits[i] {
			res.CacheHits++
		}
		res.Occurrences = append(res.Occurrences, r.occurrences...)
		res.Diagnostics = append(res.Diagnostics, r.diagnostics...)
	}
	res.Entries, res.Conflicts = coalesce(res.Occurrences)

	for _, d := range res.Diagnostics {
		s.logger.Warn("skipped translation", "file", d.File, "line", d.Line, "column", d.Column, "reason", d.Message)
	}
	for _, c := range res.Conflicts {
		s.logger.Warn("conflicting translation id",
			"id", c.ID, "kept", c.First.Location(), "ignored", c.Second.Location())
	}
	return res, nil
}

// scanFile reports whether the result came from the cache.
func (s *Scanner) scanFile(file string) (fileResult, bool) {
	src, err := os.ReadFile(file)
	if err != nil {
		return fileResult{diagnostics: []Diagnostic{{File: file, Message: fmt.Sprintf("error reading file: %v", err)}}}, false
	}

	key := s.cacheKey(file, src)
	if cached, ok := s.cache.get(key); ok {
		return cached, true
	}

	occs, diags, err := parseFile(file, src, s.aliases, jsxEnabled(file))
	var res fileResult
	if err != nil {
		res.diagnostics = []Diagnostic{syntaxDiagnostic(file, err)}
	} else {
		res = fileResult{occurrences: occs, diagnostics: diags}
	}
	s.cache.results.Add(key, res)
	return res, false
}

// cacheKey fingerprints the file content together with the alias set.
func (s *Scanner) cacheKey(file string, src []byte) string {
	sum := sha256.Sum256(src)
	return s.aliases.key() + "\x00" + file + "\x00" + hex.EncodeToString(sum[:])
}

func syntaxDiagnostic(file string, err error) Diagnostic {
	d := Diagnostic{File: file, Message: "cannot parse file: " + err.Error()}
	if se, ok := err.(*SyntaxError); ok {
		d.Line, d.Column = se.Line, se.Column
		d.Message = "cannot parse file: " + se.Msg
	}
	return d
}

// coalesce keeps the first occurrence of each id and reports ids declared
// again with a different message or description.
func coalesce(occs []Occurrence) ([]catalog.Entry, []Conflict) {
	first := make(map[string]Occurrence, len(occs))
	var (
		entries   []catalog.Entry
		conflicts []Conflict
	)
	for _, o := range occs {
		kept, ok := first[o.Entry.ID]
		if !ok {
			first[o.Entry.ID] = o
			entries = append(entries, o.Entry)
			continue
		}
		if kept.Entry != o.Entry {
			conflicts = append(conflicts, Conflict{ID: o.Entry.ID, First: kept, Second: o})
		}
	}
	return entries, conflicts
}

func uniqueSorted(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// jsxEnabled reports whether `<` may open JSX in the file. Plain .ts files use
// `<T>expr` type assertions instead.
func jsxEnabled(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext != ".ts" && ext != ".mts" && ext != ".cts"
}
