// Package diff renders unified diffs of catalog files for dry runs.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

const defaultContext = 3

// Options controls patch generation.
type Options struct {
	// Context is the number of context lines around each hunk. 0 means 3.
	Context int
	// MaxBytes omits the patch body when old+new exceed it. 0 means no limit.
	MaxBytes int
}

// Unified produces a unified patch turning a into b.
// The second return value reports that the body was omitted for size.
func Unified(aName, bName string, a, b []byte, opt Options) (string, bool) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = defaultContext
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(string(a)),
		B:        splitLines(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// splitLines keeps the trailing newline on each line, which difflib expects.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
