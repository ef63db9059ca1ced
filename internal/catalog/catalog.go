// Package catalog holds translation catalogs: their ordered in-memory form,
// the append/override merge and the on-disk JSON representation.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrInvalidCatalog is returned when a catalog file does not have the
// `{"<id>": {"message": "...", "description": "..."}}` shape.
var ErrInvalidCatalog = errors.New("invalid translation catalog")

type (
	// Entry is a single id -> {message, description} record.
	Entry struct {
		ID          string
		Message     string
		Description string
	}

	// Catalog is an ordered mapping from id to Entry.
	// The zero value is an empty catalog ready to use.
	Catalog struct {
		ids     []string
		entries map[string]Entry
	}
)

// New returns a catalog holding entries in the given order.
// Later entries replace earlier ones with the same id in place.
func New(entries ...Entry) *Catalog {
	c := &Catalog{}
	for _, e := range entries {
		c.Set(e)
	}
	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// Get returns the entry for id.
func (c *Catalog) Get(id string) (Entry, bool) {
	if c == nil || c.entries == nil {
		return Entry{}, false
	}
	e, ok := c.entries[id]
	return e, ok
}

// Has reports whether id is present.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Set replaces the entry with the same id in place, or appends it.
func (c *Catalog) Set(e Entry) {
	if c.entries == nil {
		c.entries = make(map[string]Entry)
	}
	if _, ok := c.entries[e.ID]; !ok {
		c.ids = append(c.ids, e.ID)
	}
	c.entries[e.ID] = e
}

// IDs returns the ids in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Entries returns the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.entries[id])
	}
	return out
}

// Clone returns a deep copy of c.
func (c *Catalog) Clone() *Catalog {
	return New(c.Entries()...)
}

// Equal reports whether both catalogs hold the same entries in the same order.
func (c *Catalog) Equal(other *Catalog) bool {
	if c.Len() != other.Len() {
		return false
	}
	a, b := c.Entries(), other.Entries()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Parse decodes a catalog file, keeping the key order of the document.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Catalog{}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidCatalog)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level value must be an object", ErrInvalidCatalog)
	}

	c := &Catalog{}
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		entry, err := parseEntry(key.String(), value)
		if err != nil {
			parseErr = err
			return false
		}
		c.Set(entry)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return c, nil
}

func parseEntry(id string, value gjson.Result) (Entry, error) {
	if id == "" {
		return Entry{}, fmt.Errorf("%w: empty id", ErrInvalidCatalog)
	}
	if !value.IsObject() {
		return Entry{}, fmt.Errorf("%w: value of %q must be an object", ErrInvalidCatalog, id)
	}
	msg := value.Get("message")
	if msg.Type != gjson.String {
		return Entry{}, fmt.Errorf("%w: %q has no string message", ErrInvalidCatalog, id)
	}
	entry := Entry{ID: id, Message: msg.Str}
	if desc := value.Get("description"); desc.Exists() {
		switch desc.Type {
		case gjson.String:
			entry.Description = desc.Str
		case gjson.Null:
		default:
			return Entry{}, fmt.Errorf("%w: description of %q must be a string", ErrInvalidCatalog, id)
		}
	}
	return entry, nil
}

// Marshal encodes c as an indented JSON object in catalog order.
func Marshal(c *Catalog) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, e.ID)
		buf.WriteString(`:{"message":`)
		writeString(&buf, e.Message)
		if e.Description != "" {
			buf.WriteString(`,"description":`)
			writeString(&buf, e.Description)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return pretty.PrettyOptions(buf.Bytes(), &pretty.Options{Indent: "  "})
}

// writeString appends s as a JSON string without HTML escaping, since
// messages routinely carry markdown and inline tags.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
