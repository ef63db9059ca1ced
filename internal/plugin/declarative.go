package plugin

import (
	"context"
	"maps"
	"path/filepath"
	"slices"

	"github.com/bondowe/translationsplus/internal/catalog"
	"github.com/bondowe/translationsplus/internal/site"
)

// Declarative is a plugin described entirely by the site config.
type Declarative struct {
	cfg     site.PluginConfig
	siteDir string
}

var (
	_ ContentLoader               = (*Declarative)(nil)
	_ TranslationFilesProvider    = (*Declarative)(nil)
	_ DefaultCodeMessagesProvider = (*Declarative)(nil)
	_ SourcePathsProvider         = (*Declarative)(nil)
	_ Locator                     = (*Declarative)(nil)
)

// NewDeclarative builds a plugin from its config entry. Relative paths are
// resolved against siteDir.
func NewDeclarative(cfg site.PluginConfig, siteDir string) *Declarative {
	return &Declarative{cfg: cfg, siteDir: siteDir}
}

// FromConfig builds one Declarative plugin per configured plugin.
func FromConfig(s *site.Site) []Plugin {
	out := make([]Plugin, 0, len(s.Config.Plugins))
	for _, cfg := range s.Config.Plugins {
		out = append(out, NewDeclarative(cfg, s.Dir))
	}
	return out
}

// Name returns the configured plugin name.
func (d *Declarative) Name() string { return d.cfg.Name }

// ID returns the configured plugin id, empty for the default instance.
func (d *Declarative) ID() string { return d.cfg.ID }

// Capabilities only advertises what the config actually provides.
func (d *Declarative) Capabilities() Capability {
	var c Capability
	if len(d.cfg.SourcePaths) > 0 {
		c |= CapSourcePaths
	}
	if len(d.cfg.TranslationFiles) > 0 {
		c |= CapLoadContent | CapTranslationFiles
	}
	if len(d.cfg.DefaultCodeMessages) > 0 {
		c |= CapDefaultCodeMessages
	}
	return c
}

// Path returns the resolved plugin location, empty when none is configured.
func (d *Declarative) Path() string {
	if d.cfg.Path == "" {
		return ""
	}
	return d.resolve(d.cfg.Path)
}

// SourcePaths returns the configured source paths resolved against the
// site directory.
func (d *Declarative) SourcePaths() []string {
	out := make([]string, 0, len(d.cfg.SourcePaths))
	for _, p := range d.cfg.SourcePaths {
		out = append(out, d.resolve(p))
	}
	return out
}

// LoadContent returns the configured translation files.
func (d *Declarative) LoadContent(context.Context) (any, error) {
	return d.cfg.TranslationFiles, nil
}

// TranslationFiles converts the loaded content. Entries are sorted by id as
// config maps carry no order.
func (d *Declarative) TranslationFiles(_ context.Context, content any) ([]TranslationFile, error) {
	files, _ := content.([]site.TranslationFileConfig)
	out := make([]TranslationFile, 0, len(files))
	for _, f := range files {
		entries := make([]catalog.Entry, 0, len(f.Content))
		for _, id := range slices.Sorted(maps.Keys(f.Content)) {
			e := f.Content[id]
			entries = append(entries, catalog.Entry{ID: id, Message: e.Message, Description: e.Description})
		}
		out = append(out, TranslationFile{Path: f.Path, Content: entries})
	}
	return out, nil
}

// DefaultCodeMessages returns a copy of the configured fallback messages.
func (d *Declarative) DefaultCodeMessages(context.Context) (map[string]string, error) {
	return maps.Clone(d.cfg.DefaultCodeMessages), nil
}

func (d *Declarative) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(d.siteDir, p)
}
