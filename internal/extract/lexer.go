package extract

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// tokenKind classifies the last significant token, which decides whether a
// following `/` starts a regular expression and whether `<` may open JSX.
type tokenKind int

const (
	tokNone tokenKind = iota
	tokPunct
	tokKeyword
	tokIdent
	tokValue // string, template, number, regex, closing bracket or JSX element
)

type token struct {
	kind tokenKind
	text string
}

// keywords after which an expression (and thus a regex or JSX) may start.
//
//nolint:gochecknoglobals // read-only lookup table
var exprKeywords = map[string]struct{}{
	"return": {}, "typeof": {}, "instanceof": {}, "in": {}, "of": {}, "new": {},
	"delete": {}, "void": {}, "throw": {}, "case": {}, "do": {}, "else": {},
	"yield": {}, "await": {}, "default": {}, "extends": {},
}

// SyntaxError reports why a file could not be scanned.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// cursor walks a source buffer byte by byte.
type cursor struct {
	src        []byte
	pos        int
	lineStarts []int
	prev       token
}

func newCursor(src []byte) *cursor {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &cursor{src: src, lineStarts: starts}
}

func (c *cursor) eof() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() byte {
	if c.pos >= len(c.src) {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) peekAt(off int) byte {
	if c.pos+off >= len(c.src) {
		return 0
	}
	return c.src[c.pos+off]
}

// position converts a byte offset to a 1-based line and rune column.
func (c *cursor) position(off int) (int, int) {
	line := sort.Search(len(c.lineStarts), func(i int) bool { return c.lineStarts[i] > off }) - 1
	col := utf8.RuneCount(c.src[c.lineStarts[line]:off]) + 1
	return line + 1, col
}

func (c *cursor) errorf(off int, format string, args ...any) error {
	line, col := c.position(off)
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (c *cursor) setPrev(kind tokenKind, text string) {
	c.prev = token{kind: kind, text: text}
}

// expressionAllowed reports whether the next token starts an expression
// rather than continuing one.
func (c *cursor) expressionAllowed() bool {
	switch c.prev.kind {
	case tokNone, tokPunct, tokKeyword:
		return true
	default:
		return false
	}
}

// skipTrivia skips whitespace and comments.
func (c *cursor) skipTrivia() error {
	for !c.eof() {
		ch := c.peek()
		switch {
		case isSpace(ch):
			c.pos++
		case ch == '/' && c.peekAt(1) == '/':
			c.skipLineComment()
		case ch == '/' && c.peekAt(1) == '*':
			if err := c.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (c *cursor) skipLineComment() {
	for !c.eof() && c.peek() != '\n' {
		c.pos++
	}
}

func (c *cursor) skipBlockComment() error {
	start := c.pos
	end := strings.Index(string(c.src[c.pos+2:]), "*/")
	if end < 0 {
		return c.errorf(start, "unterminated comment")
	}
	c.pos += 2 + end + 2
	return nil
}

func (c *cursor) readIdent() string {
	start := c.pos
	for !c.eof() && isIdentPart(c.peek()) {
		c.pos++
	}
	return string(c.src[start:c.pos])
}

// readString reads a quoted JS string literal and returns its cooked value.
func (c *cursor) readString() (string, error) {
	start := c.pos
	quote := c.peek()
	c.pos++
	var sb strings.Builder
	for {
		if c.eof() {
			return "", c.errorf(start, "unterminated string literal")
		}
		ch := c.peek()
		switch {
		case ch == quote:
			c.pos++
			return sb.String(), nil
		case ch == '\n':
			return "", c.errorf(start, "unterminated string literal")
		case ch == '\\':
			if err := c.readEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(ch)
			c.pos++
		}
	}
}

// readTemplate reads a template literal. Substitutions are scanned as code by
// scanSub so nested occurrences are still found; hasSubst reports whether any
// were present, in which case the value is not static.
func (c *cursor) readTemplate(scanSub func() error) (string, bool, error) {
	start := c.pos
	c.pos++
	var sb strings.Builder
	hasSubst := false
	for {
		if c.eof() {
			return "", false, c.errorf(start, "unterminated template literal")
		}
		ch := c.peek()
		switch {
		case ch == '`':
			c.pos++
			return sb.String(), hasSubst, nil
		case ch == '\\':
			if err := c.readEscape(&sb); err != nil {
				return "", false, err
			}
		case ch == '$' && c.peekAt(1) == '{':
			hasSubst = true
			c.pos += 2
			c.setPrev(tokPunct, "${")
			if err := scanSub(); err != nil {
				return "", false, err
			}
			if c.peek() != '}' {
				return "", false, c.errorf(start, "unterminated template substitution")
			}
			c.pos++
		case ch == '\r':
			c.pos++
			if c.peek() != '\n' {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(ch)
			c.pos++
		}
	}
}

func (c *cursor) readEscape(sb *strings.Builder) error {
	start := c.pos
	c.pos++ // backslash
	if c.eof() {
		return c.errorf(start, "unterminated escape sequence")
	}
	ch := c.peek()
	c.pos++
	switch ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\r':
		if c.peek() == '\n' {
			c.pos++
		}
	case '\n':
		// line continuation
	case 'x':
		r, err := c.readHex(start, 2)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
	case 'u':
		if c.peek() == '{' {
			end := strings.IndexByte(string(c.src[c.pos:]), '}')
			if end < 0 {
				return c.errorf(start, "invalid unicode escape")
			}
			v, err := strconv.ParseUint(string(c.src[c.pos+1:c.pos+end]), 16, 32)
			if err != nil {
				return c.errorf(start, "invalid unicode escape")
			}
			sb.WriteRune(rune(v))
			c.pos += end + 1
			return nil
		}
		r, err := c.readHex(start, 4)
		if err != nil {
			return err
		}
		if r >= 0xD800 && r < 0xDC00 && c.peek() == '\\' && c.peekAt(1) == 'u' {
			save := c.pos
			c.pos += 2
			if lo, err := c.readHex(start, 4); err == nil && lo >= 0xDC00 && lo <= 0xDFFF {
				sb.WriteRune(utf16.DecodeRune(r, lo))
				return nil
			}
			c.pos = save
		}
		sb.WriteRune(r)
	default:
		sb.WriteByte(ch)
	}
	return nil
}

// readHex reads exactly n hex digits. Surrogate halves are returned as is;
// readEscape pairs them.
func (c *cursor) readHex(start, n int) (rune, error) {
	if c.pos+n > len(c.src) {
		return 0, c.errorf(start, "invalid hex escape")
	}
	v, err := strconv.ParseUint(string(c.src[c.pos:c.pos+n]), 16, 32)
	if err != nil {
		return 0, c.errorf(start, "invalid hex escape")
	}
	c.pos += n
	return rune(v), nil
}

// tryRegex consumes a regular expression literal at the cursor. It restores
// the cursor and returns false when the slash does not open one on this line.
func (c *cursor) tryRegex() bool {
	start := c.pos
	c.pos++
	inClass := false
	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == '\n':
			c.pos = start
			return false
		case ch == '\\':
			c.pos += 2
			continue
		case ch == '[':
			inClass = true
		case ch == ']':
			inClass = false
		case ch == '/' && !inClass:
			c.pos++
			c.readIdent() // flags
			return true
		}
		c.pos++
	}
	c.pos = start
	return false
}

func (c *cursor) readNumber() {
	for !c.eof() && (isIdentPart(c.peek()) || c.peek() == '.') {
		c.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// evalStatic evaluates an expression made only of string literals, template
// literals without substitutions, parentheses and `+`. Anything else is not
// static and reports false.
func evalStatic(src []byte) (string, bool) {
	c := newCursor(src)
	v, ok := c.staticSum()
	if !ok {
		return "", false
	}
	if err := c.skipTrivia(); err != nil || !c.eof() {
		return "", false
	}
	return v, true
}

func (c *cursor) staticSum() (string, bool) {
	v, ok := c.staticTerm()
	if !ok {
		return "", false
	}
	for {
		if err := c.skipTrivia(); err != nil {
			return "", false
		}
		if c.peek() != '+' {
			return v, true
		}
		c.pos++
		next, ok := c.staticTerm()
		if !ok {
			return "", false
		}
		v += next
	}
}

func (c *cursor) staticTerm() (string, bool) {
	if err := c.skipTrivia(); err != nil {
		return "", false
	}
	switch c.peek() {
	case '\'', '"':
		s, err := c.readString()
		return s, err == nil
	case '`':
		s, subst, err := c.readTemplate(func() error { return errDynamic })
		return s, err == nil && !subst
	case '(':
		c.pos++
		v, ok := c.staticSum()
		if !ok {
			return "", false
		}
		if err := c.skipTrivia(); err != nil || c.peek() != ')' {
			return "", false
		}
		c.pos++
		return v, true
	default:
		return "", false
	}
}

var errDynamic = errors.New("dynamic expression")

// isTrivia reports whether src holds only whitespace and comments.
func isTrivia(src []byte) bool {
	c := newCursor(src)
	return c.skipTrivia() == nil && c.eof()
}
