// Package i18n resolves translated messages at render time from the catalogs
// written by write-translations.
package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xcatalog "golang.org/x/text/message/catalog"

	"github.com/bondowe/translationsplus/internal/catalog"
)

const codeFileName = "code.json"

type (
	// Config holds translator configuration.
	Config struct {
		// FS is rooted at the i18n directory of the site. Each locale keeps
		// its code translations in <locale dir>/code.json.
		FS fs.FS
		// Locales maps locale directory names to locales. When nil, every
		// top-level directory named after a valid language tag is loaded.
		Locales map[string]string
		Logger  *slog.Logger
	}

	// Translator looks up code translations. It is safe for concurrent use.
	Translator struct {
		builder *xcatalog.Builder
	}
)

//nolint:gochecknoglobals // compiled once
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// New loads the code translations of all configured locales.
func New(cfg Config) (*Translator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Translator{builder: xcatalog.NewBuilder()}
	if cfg.FS == nil {
		logger.Warn("i18n filesystem not set, skipping catalog loading")
		return t, nil
	}

	locales := cfg.Locales
	if locales == nil {
		var err error
		if locales, err = discoverLocales(cfg.FS); err != nil {
			return nil, err
		}
	}

	for dir, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			logger.Warn("could not determine language for directory", "path", dir, "locale", locale)
			continue
		}
		file := path.Join(dir, codeFileName)
		data, err := fs.ReadFile(cfg.FS, file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error reading file %s: %w", file, err)
		}
		n, err := loadJSONMessages(t.builder, tag, data)
		if err != nil {
			return nil, fmt.Errorf("error loading messages from %s: %w", file, err)
		}
		logger.Debug("Loaded messages for language", "language", tag, "path", file, "messages", n)
	}
	logger.Debug("translator ready", "languages", t.Languages())
	return t, nil
}

// Languages returns the languages that have a catalog.
func (t *Translator) Languages() []language.Tag {
	return t.builder.Languages()
}

// Translate returns the message of id for tag, falling back to parent
// languages and then to defaultMessage. An empty id means defaultMessage is
// the id. {name} placeholders are replaced from values.
func (t *Translator) Translate(tag language.Tag, id, defaultMessage string, values map[string]string) string {
	if id == "" {
		id = defaultMessage
	}
	p := message.NewPrinter(tag, message.Catalog(t.builder))
	msg := p.Sprintf(message.Key(id, escapeVerbs(defaultMessage)))
	return Interpolate(msg, values)
}

// Interpolate replaces {name} placeholders with values. Unknown placeholders
// are left as is.
func Interpolate(msg string, values map[string]string) string {
	if len(values) == 0 {
		return msg
	}
	return placeholderPattern.ReplaceAllStringFunc(msg, func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func discoverLocales(fsys fs.FS) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("error listing locales: %w", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := language.Parse(e.Name()); err == nil {
			out[e.Name()] = e.Name()
		}
	}
	return out, nil
}

// loadJSONMessages loads a code.json document into the catalog builder and
// returns the number of messages.
func loadJSONMessages(builder *xcatalog.Builder, tag language.Tag, data []byte) (int, error) {
	c, err := catalog.Parse(data)
	if err != nil {
		return 0, err
	}
	for _, e := range c.Entries() {
		// The id is the key, the translated message the value.
		_ = builder.SetString(tag, e.ID, escapeVerbs(e.Message))
	}
	return c.Len(), nil
}

// escapeVerbs protects literal percent signs from printf formatting.
func escapeVerbs(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
