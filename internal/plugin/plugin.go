// Package plugin defines the plugins write-translations talks to and the
// lifecycle checks applied to them before a run.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bondowe/translationsplus/internal/catalog"
	"github.com/bondowe/translationsplus/internal/site"
)

// Capability is a set of optional plugin features.
type Capability uint8

const (
	// CapLoadContent means the plugin implements ContentLoader.
	CapLoadContent Capability = 1 << iota
	// CapTranslationFiles means the plugin implements TranslationFilesProvider.
	CapTranslationFiles
	// CapDefaultCodeMessages means the plugin implements DefaultCodeMessagesProvider.
	CapDefaultCodeMessages
	// CapSourcePaths means the plugin implements SourcePathsProvider.
	CapSourcePaths
)

// DefaultID is the id of a plugin instance that does not set one.
const DefaultID = "default"

// ErrPluginInit is returned when plugins cannot be initialized.
var ErrPluginInit = errors.New("plugin initialization failed")

//nolint:gochecknoglobals // read-only lookup table
var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CapLoadContent, "loadContent"},
	{CapTranslationFiles, "translationFiles"},
	{CapDefaultCodeMessages, "defaultCodeMessages"},
	{CapSourcePaths, "sourcePaths"},
}

// Has reports whether all of o is in c.
func (c Capability) Has(o Capability) bool { return c&o == o }

func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c.Has(cn.c) {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

type (
	// Plugin is the minimal plugin contract. Optional behavior is declared
	// through Capabilities and provided by the matching interfaces.
	Plugin interface {
		Name() string
		ID() string
		Capabilities() Capability
	}

	// ContentLoader loads the plugin content translation files are built from.
	ContentLoader interface {
		LoadContent(ctx context.Context) (any, error)
	}

	// TranslationFilesProvider returns the plugin translation files for the
	// loaded content, which is nil without CapLoadContent.
	TranslationFilesProvider interface {
		TranslationFiles(ctx context.Context, content any) ([]TranslationFile, error)
	}

	// DefaultCodeMessagesProvider returns fallback messages for code
	// translation ids.
	DefaultCodeMessagesProvider interface {
		DefaultCodeMessages(ctx context.Context) (map[string]string, error)
	}

	// SourcePathsProvider lists extra files or directories to scan.
	SourcePathsProvider interface {
		SourcePaths() []string
	}

	// Locator is implemented by plugins that know where they are installed.
	Locator interface {
		Path() string
	}

	// TranslationFile is one plugin-owned catalog, relative to the plugin
	// directory and without extension.
	TranslationFile struct {
		Path    string
		Content []catalog.Entry
	}
)

// Initialized is a plugin that passed the capability check.
type Initialized struct {
	Plugin  Plugin
	Package site.Package

	id   string
	caps Capability

	loader   ContentLoader
	files    TranslationFilesProvider
	defaults DefaultCodeMessagesProvider
	sources  SourcePathsProvider
}

// Init checks every plugin once: names must be set, (name, id) pairs unique
// and every declared capability backed by its interface. Implemented but
// undeclared interfaces are never called.
func Init(plugins []Plugin, siteDir string, logger *slog.Logger) ([]*Initialized, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]*Initialized, 0, len(plugins))
	seen := make(map[string]struct{}, len(plugins))
	var errs []error

	for i, p := range plugins {
		ip, err := initOne(p, siteDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("plugins[%d]: %w", i, err))
			continue
		}
		key := ip.Name() + "\x00" + ip.ID()
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("plugins[%d]: duplicate plugin %s with id %q", i, ip.Name(), ip.ID()))
			continue
		}
		seen[key] = struct{}{}
		logger.Debug("plugin initialized",
			"plugin", ip.Name(), "id", ip.ID(), "capabilities", ip.caps.String(), "package", ip.Package.String())
		out = append(out, ip)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrPluginInit, errors.Join(errs...))
	}
	return out, nil
}

func initOne(p Plugin, siteDir string) (*Initialized, error) {
	if p == nil {
		return nil, errors.New("nil plugin")
	}
	if p.Name() == "" {
		return nil, errors.New("plugin has no name")
	}
	ip := &Initialized{Plugin: p, id: p.ID(), caps: p.Capabilities(), Package: site.Package{Kind: site.PackageLocal}}
	if ip.id == "" {
		ip.id = DefaultID
	}
	if loc, ok := p.(Locator); ok && loc.Path() != "" {
		ip.Package = site.ResolvePackage(loc.Path(), siteDir)
	}

	var (
		missing []string
		ok      bool
	)
	if ip.caps.Has(CapLoadContent) {
		if ip.loader, ok = p.(ContentLoader); !ok {
			missing = append(missing, "ContentLoader")
		}
	}
	if ip.caps.Has(CapTranslationFiles) {
		if ip.files, ok = p.(TranslationFilesProvider); !ok {
			missing = append(missing, "TranslationFilesProvider")
		}
	}
	if ip.caps.Has(CapDefaultCodeMessages) {
		if ip.defaults, ok = p.(DefaultCodeMessagesProvider); !ok {
			missing = append(missing, "DefaultCodeMessagesProvider")
		}
	}
	if ip.caps.Has(CapSourcePaths) {
		if ip.sources, ok = p.(SourcePathsProvider); !ok {
			missing = append(missing, "SourcePathsProvider")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("plugin %s declares %s but does not implement %s",
			p.Name(), ip.caps, strings.Join(missing, ", "))
	}
	return ip, nil
}

// Name returns the plugin name.
func (ip *Initialized) Name() string { return ip.Plugin.Name() }

// ID returns the plugin instance id, DefaultID when unset.
func (ip *Initialized) ID() string { return ip.id }

// Capabilities returns the declared capabilities.
func (ip *Initialized) Capabilities() Capability { return ip.caps }

func (ip *Initialized) String() string {
	return site.PluginDirName(ip.Name(), ip.ID())
}

// SourcePaths returns the extra paths to scan, if any.
func (ip *Initialized) SourcePaths() []string {
	if ip.sources == nil {
		return nil
	}
	return ip.sources.SourcePaths()
}

// TranslationFiles loads the plugin content, when supported, and returns the
// plugin translation files built from it.
func (ip *Initialized) TranslationFiles(ctx context.Context) ([]TranslationFile, error) {
	if ip.files == nil {
		return nil, nil
	}
	var content any
	if ip.loader != nil {
		var err error
		if content, err = ip.loader.LoadContent(ctx); err != nil {
			return nil, fmt.Errorf("plugin %s: error loading content: %w", ip, err)
		}
	}
	files, err := ip.files.TranslationFiles(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: error getting translation files: %w", ip, err)
	}
	return files, nil
}
