package extract

import (
	"html"
	"sort"
	"strings"

	"github.com/bondowe/translationsplus/internal/catalog"
)

// fileParser finds translate calls and translate components in one file.
type fileParser struct {
	*cursor

	file    string
	aliases AliasConfig
	jsx     bool

	occurrences []Occurrence
	diagnostics []Diagnostic
}

// staticValue is a property or attribute value together with whether it
// could be evaluated without running the program.
type staticValue struct {
	value  string
	static bool
	off    int
}

type childKind int

const (
	childText childKind = iota
	childExpr
	childElement
)

type jsxChild struct {
	kind childKind
	val  staticValue
}

func parseFile(file string, src []byte, aliases AliasConfig, jsx bool) ([]Occurrence, []Diagnostic, error) {
	p := &fileParser{cursor: newCursor(src), file: file, aliases: aliases, jsx: jsx}
	if p.peek() == '#' && p.peekAt(1) == '!' {
		p.skipLineComment()
	}
	if _, err := p.scanCode(""); err != nil {
		return nil, nil, err
	}
	// Nested calls finish before their enclosing call, so restore source order.
	sort.SliceStable(p.occurrences, func(i, j int) bool {
		return before(p.occurrences[i].Line, p.occurrences[i].Column, p.occurrences[j].Line, p.occurrences[j].Column)
	})
	sort.SliceStable(p.diagnostics, func(i, j int) bool {
		return before(p.diagnostics[i].Line, p.diagnostics[i].Column, p.diagnostics[j].Line, p.diagnostics[j].Column)
	})
	return p.occurrences, p.diagnostics, nil
}

func before(l1, c1, l2, c2 int) bool {
	if l1 != l2 {
		return l1 < l2
	}
	return c1 < c2
}

func (p *fileParser) warn(off int, msg string) {
	line, col := p.position(off)
	p.diagnostics = append(p.diagnostics, Diagnostic{File: p.file, Line: line, Column: col, Message: msg})
}

// scanCode scans JavaScript until one of the stop bytes appears outside any
// bracket, leaving the cursor on it. An empty stop set scans to the end.
func (p *fileParser) scanCode(stop string) (byte, error) {
	start := p.pos
	var (
		stack []byte
		// heads marks parentheses holding an if, while, for or with head.
		// A slash after them starts a regular expression.
		heads []bool
	)
	for {
		if p.eof() {
			if stop != "" || len(stack) > 0 {
				return 0, p.errorf(start, "unexpected end of file")
			}
			return 0, nil
		}
		ch := p.peek()
		if len(stack) == 0 && strings.IndexByte(stop, ch) >= 0 {
			return ch, nil
		}
		switch {
		case isSpace(ch):
			p.pos++
		case ch == '/' && (p.peekAt(1) == '/' || p.peekAt(1) == '*'):
			if err := p.skipTrivia(); err != nil {
				return 0, err
			}
		case ch == '/':
			if p.expressionAllowed() && p.tryRegex() {
				p.setPrev(tokValue, "/re/")
				continue
			}
			p.pos++
			p.setPrev(tokPunct, "/")
		case ch == '\'' || ch == '"':
			if _, err := p.readString(); err != nil {
				return 0, err
			}
			p.setPrev(tokValue, "''")
		case ch == '`':
			if _, _, err := p.readTemplate(p.scanSubstitution); err != nil {
				return 0, err
			}
			p.setPrev(tokValue, "``")
		case isDigit(ch):
			p.readNumber()
			p.setPrev(tokValue, "0")
		case isIdentStart(ch):
			if err := p.identifier(); err != nil {
				return 0, err
			}
		case ch == '<' && p.jsx && p.expressionAllowed() && (isIdentStart(p.peekAt(1)) || p.peekAt(1) == '>'):
			if p.skipTypeParameters() {
				continue
			}
			if err := p.element(); err != nil {
				return 0, err
			}
		case ch == '(' || ch == '[' || ch == '{':
			stack = append(stack, closerOf(ch))
			heads = append(heads, ch == '(' && p.prev.kind == tokIdent && isStatementHead(p.prev.text))
			p.pos++
			p.setPrev(tokPunct, string(ch))
		case ch == ')' || ch == ']' || ch == '}':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return 0, p.errorf(p.pos, "unbalanced %q", ch)
			}
			head := heads[len(heads)-1]
			stack, heads = stack[:len(stack)-1], heads[:len(heads)-1]
			p.pos++
			if head {
				p.setPrev(tokPunct, string(ch))
			} else {
				p.setPrev(tokValue, string(ch))
			}
		default:
			p.pos++
			p.setPrev(tokPunct, string(ch))
		}
	}
}

func isStatementHead(name string) bool {
	switch name {
	case "if", "while", "for", "with":
		return true
	default:
		return false
	}
}

// skipTypeParameters consumes the type parameter list of a generic arrow
// function, `<T,>` or `<T extends U>`, which TSX would otherwise read as an
// element. The cursor is left on '<' when it opens an element.
func (p *fileParser) skipTypeParameters() bool {
	start := p.pos
	p.pos++
	p.readIdent()
	if err := p.skipTrivia(); err != nil || !(p.peek() == ',' || p.atWord("extends")) {
		p.pos = start
		return false
	}
	depth := 1
	for !p.eof() {
		switch ch := p.peek(); {
		case ch == '=' && p.peekAt(1) == '>':
			p.pos++
		case ch == '<':
			depth++
		case ch == '>':
			depth--
			if depth == 0 {
				p.pos++
				p.setPrev(tokPunct, ">")
				return true
			}
		}
		p.pos++
	}
	p.pos = start
	return false
}

// atWord reports whether the identifier at the cursor is word and is not
// used as a JSX attribute name.
func (p *fileParser) atWord(word string) bool {
	end := p.pos + len(word)
	if end > len(p.src) || string(p.src[p.pos:end]) != word {
		return false
	}
	if end < len(p.src) && isIdentPart(p.src[end]) {
		return false
	}
	rest := strings.TrimLeft(string(p.src[end:]), " \t\r\n")
	return !strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, ">") && !strings.HasPrefix(rest, "/>")
}

func (p *fileParser) scanSubstitution() error {
	_, err := p.scanCode("}")
	return err
}

func closerOf(ch byte) byte {
	switch ch {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

// identifier consumes an identifier or keyword and handles translate calls.
func (p *fileParser) identifier() error {
	start := p.pos
	prev := p.prev
	name := p.readIdent()

	if _, ok := exprKeywords[name]; ok {
		p.setPrev(tokKeyword, name)
		return nil
	}
	p.setPrev(tokIdent, name)

	if !p.aliases.IsFunction(name) || prev.text == "." || prev.text == "function" {
		return nil
	}
	save := p.pos
	if err := p.skipTrivia(); err != nil {
		return err
	}
	if p.peek() != '(' {
		p.pos = save
		return nil
	}
	return p.call(start)
}

// call parses the arguments of a recognized translate function call.
func (p *fileParser) call(start int) error {
	diagMark := len(p.diagnostics)
	occMark := len(p.occurrences)
	p.pos++ // (
	p.setPrev(tokPunct, "(")

	if err := p.skipTrivia(); err != nil {
		return err
	}

	var (
		props   map[string]staticValue
		dynamic bool
		err     error
	)
	switch p.peek() {
	case ')':
		p.warn(start, "translate call without arguments")
	case '{':
		props, dynamic, err = p.objectLiteral()
		if err != nil {
			return err
		}
	default:
		p.warn(start, "translate argument is not an object literal")
	}

	for p.peek() != ')' {
		if p.peek() == ',' {
			p.pos++
			p.setPrev(tokPunct, ",")
		}
		if _, err := p.scanCode(",)"); err != nil {
			return err
		}
	}
	p.pos++ // )
	p.setPrev(tokValue, ")")

	// A body right after the parameter list means this was a method or
	// function declaration named like the translate function.
	save := p.pos
	if err := p.skipTrivia(); err != nil {
		return err
	}
	isDecl := p.peek() == '{'
	p.pos = save
	if isDecl {
		p.diagnostics = p.diagnostics[:diagMark]
		p.occurrences = p.occurrences[:occMark]
		return nil
	}

	if props != nil {
		if dynamic {
			p.warn(start, "translate argument has spread or computed properties")
			return nil
		}
		p.addOccurrence(start, CallForm, props["id"], props["message"], props["description"],
			props["id"].off >= 0, props["message"].off >= 0, props["description"].off >= 0)
	}
	return nil
}

// objectLiteral parses `{key: value, ...}` and returns the static value of each
// plain key. dynamic is set when spreads or computed keys are present.
func (p *fileParser) objectLiteral() (map[string]staticValue, bool, error) {
	props := map[string]staticValue{
		"id":          {off: -1},
		"message":     {off: -1},
		"description": {off: -1},
	}
	dynamic := false
	p.pos++ // {
	p.setPrev(tokPunct, "{")

	for {
		if err := p.skipTrivia(); err != nil {
			return nil, false, err
		}
		keyOff := p.pos
		var key string
		switch ch := p.peek(); {
		case ch == '}':
			p.pos++
			p.setPrev(tokValue, "}")
			return props, dynamic, nil
		case ch == '.' && p.peekAt(1) == '.' && p.peekAt(2) == '.':
			dynamic = true
			p.pos += 3
			p.setPrev(tokPunct, "...")
			if _, err := p.scanCode(",}"); err != nil {
				return nil, false, err
			}
			if err := p.skipComma(); err != nil {
				return nil, false, err
			}
			continue
		case ch == '\'' || ch == '"':
			k, err := p.readString()
			if err != nil {
				return nil, false, err
			}
			key = k
		case ch == '[':
			dynamic = true
			p.pos++
			p.setPrev(tokPunct, "[")
			if _, err := p.scanCode("]"); err != nil {
				return nil, false, err
			}
			p.pos++
		case isIdentStart(ch):
			key = p.readIdent()
		case isDigit(ch):
			p.readNumber()
		default:
			return nil, false, p.errorf(p.pos, "unexpected %q in object literal", ch)
		}

		if err := p.skipTrivia(); err != nil {
			return nil, false, err
		}
		switch p.peek() {
		case ':':
			p.pos++
			p.setPrev(tokPunct, ":")
			if err := p.skipTrivia(); err != nil {
				return nil, false, err
			}
			valStart := p.pos
			if _, err := p.scanCode(",}"); err != nil {
				return nil, false, err
			}
			if _, tracked := props[key]; tracked {
				v, ok := evalStatic(p.src[valStart:p.pos])
				props[key] = staticValue{value: v, static: ok, off: valStart}
			}
		case ',', '}':
			// shorthand property
			if _, tracked := props[key]; tracked {
				props[key] = staticValue{off: keyOff}
			}
		default:
			// method or accessor
			if _, err := p.scanCode(",}"); err != nil {
				return nil, false, err
			}
			if _, tracked := props[key]; tracked {
				props[key] = staticValue{off: keyOff}
			}
		}
		if err := p.skipComma(); err != nil {
			return nil, false, err
		}
	}
}

func (p *fileParser) skipComma() error {
	if err := p.skipTrivia(); err != nil {
		return err
	}
	if p.peek() == ',' {
		p.pos++
		p.setPrev(tokPunct, ",")
	}
	return nil
}

// element parses a JSX element or fragment starting at '<'.
func (p *fileParser) element() error {
	start := p.pos
	p.pos++ // <
	if err := p.skipTrivia(); err != nil {
		return err
	}
	name := p.jsxName()

	attrs := make(map[string]staticValue)
	selfClosing := false
	if name != "" {
		var err error
		selfClosing, err = p.attributes(attrs)
		if err != nil {
			return err
		}
	} else {
		if p.peek() != '>' {
			return p.errorf(p.pos, "malformed JSX fragment")
		}
		p.pos++
	}

	var children []jsxChild
	if !selfClosing {
		var err error
		if children, err = p.children(name, start); err != nil {
			return err
		}
	}
	p.setPrev(tokValue, "</>")

	if name != "" && p.aliases.IsComponent(name) {
		p.tagOccurrence(start, attrs, children)
	}
	return nil
}

func (p *fileParser) jsxName() string {
	start := p.pos
	for !p.eof() {
		ch := p.peek()
		if isIdentPart(ch) || ch == '.' || ch == '-' || ch == ':' {
			p.pos++
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

// attributes parses JSX attributes up to and including '>' or '/>'.
func (p *fileParser) attributes(attrs map[string]staticValue) (bool, error) {
	for {
		if err := p.skipTrivia(); err != nil {
			return false, err
		}
		ch := p.peek()
		switch {
		case ch == '/' && p.peekAt(1) == '>':
			p.pos += 2
			return true, nil
		case ch == '>':
			p.pos++
			return false, nil
		case ch == '{':
			p.pos++
			p.setPrev(tokPunct, "{")
			if _, err := p.scanCode("}"); err != nil {
				return false, err
			}
			p.pos++
		case isIdentStart(ch):
			name := p.jsxName()
			if err := p.skipTrivia(); err != nil {
				return false, err
			}
			if p.peek() != '=' {
				attrs[name] = staticValue{off: p.pos}
				continue
			}
			p.pos++
			if err := p.skipTrivia(); err != nil {
				return false, err
			}
			val, err := p.attributeValue()
			if err != nil {
				return false, err
			}
			attrs[name] = val
		case p.eof():
			return false, p.errorf(p.pos, "unterminated JSX tag")
		default:
			return false, p.errorf(p.pos, "unexpected %q in JSX tag", ch)
		}
	}
}

func (p *fileParser) attributeValue() (staticValue, error) {
	off := p.pos
	switch ch := p.peek(); ch {
	case '"', '\'':
		end := strings.IndexByte(string(p.src[p.pos+1:]), ch)
		if end < 0 {
			return staticValue{}, p.errorf(off, "unterminated JSX attribute")
		}
		raw := string(p.src[p.pos+1 : p.pos+1+end])
		p.pos += end + 2
		return staticValue{value: html.UnescapeString(raw), static: true, off: off}, nil
	case '{':
		p.pos++
		p.setPrev(tokPunct, "{")
		inner := p.pos
		if _, err := p.scanCode("}"); err != nil {
			return staticValue{}, err
		}
		v, ok := evalStatic(p.src[inner:p.pos])
		p.pos++
		return staticValue{value: v, static: ok, off: off}, nil
	case '<':
		p.setPrev(tokPunct, "=")
		if err := p.element(); err != nil {
			return staticValue{}, err
		}
		return staticValue{off: off}, nil
	default:
		return staticValue{}, p.errorf(off, "invalid JSX attribute value")
	}
}

// children parses element children through the matching closing tag.
func (p *fileParser) children(name string, start int) ([]jsxChild, error) {
	var out []jsxChild
	for {
		if p.eof() {
			return nil, p.errorf(start, "unterminated JSX element <%s>", name)
		}
		off := p.pos
		switch p.peek() {
		case '<':
			save := p.pos
			p.pos++
			if err := p.skipTrivia(); err != nil {
				return nil, err
			}
			if p.peek() == '/' {
				p.pos++
				if err := p.skipTrivia(); err != nil {
					return nil, err
				}
				closing := p.jsxName()
				if err := p.skipTrivia(); err != nil {
					return nil, err
				}
				if p.peek() != '>' || closing != name {
					return nil, p.errorf(save, "expected closing tag </%s>", name)
				}
				p.pos++
				return out, nil
			}
			p.pos = save
			if err := p.element(); err != nil {
				return nil, err
			}
			out = append(out, jsxChild{kind: childElement, val: staticValue{off: off}})
		case '{':
			p.pos++
			p.setPrev(tokPunct, "{")
			inner := p.pos
			if _, err := p.scanCode("}"); err != nil {
				return nil, err
			}
			src := p.src[inner:p.pos]
			p.pos++
			if isTrivia(src) {
				continue
			}
			v, ok := evalStatic(src)
			out = append(out, jsxChild{kind: childExpr, val: staticValue{value: v, static: ok, off: off}})
		default:
			for !p.eof() && p.peek() != '<' && p.peek() != '{' {
				p.pos++
			}
			text := string(p.src[off:p.pos])
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, jsxChild{kind: childText, val: staticValue{value: text, static: true, off: off}})
		}
	}
}

func (p *fileParser) tagOccurrence(start int, attrs map[string]staticValue, children []jsxChild) {
	message := staticValue{off: -1}
	switch len(children) {
	case 0:
	case 1:
		child := children[0]
		switch child.kind {
		case childText:
			message = staticValue{value: normalizeText(child.val.value), static: true, off: child.val.off}
		case childExpr:
			message = child.val
		default:
			p.warn(child.val.off, "translate component children must be a hardcoded string")
			return
		}
	default:
		p.warn(start, "translate component must have a single string child")
		return
	}

	id, hasID := attrs["id"]
	desc, hasDesc := attrs["description"]
	p.addOccurrence(start, TagForm, id, message, desc, hasID, message.off >= 0, hasDesc)
}

func (p *fileParser) addOccurrence(start int, kind Kind, id, message, desc staticValue, hasID, hasMessage, hasDesc bool) {
	switch {
	case hasID && !id.static:
		p.warn(id.off, "translation id is not a static string")
		return
	case hasMessage && !message.static:
		p.warn(message.off, "translation message is not a static string")
		return
	case hasDesc && !desc.static:
		p.warn(desc.off, "translation description is not a static string")
		return
	}

	entry := catalog.Entry{ID: id.value, Message: message.value, Description: desc.value}
	if entry.ID == "" {
		entry.ID = entry.Message
	}
	if entry.ID == "" {
		p.warn(start, "translation has neither an id nor a message")
		return
	}

	line, col := p.position(start)
	p.occurrences = append(p.occurrences, Occurrence{
		Entry:  entry,
		File:   p.file,
		Line:   line,
		Column: col,
		Kind:   kind,
	})
}

// normalizeText trims JSX text and collapses whitespace runs to one space.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
