package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/bondowe/translationsplus/internal/catalog"
)

const (
	// CodeDomainName is the name of the site-wide code translations catalog.
	CodeDomainName = "code"
	codeFileName   = "code.json"
	defaultPlugin  = "default"
)

var (
	// ErrSiteRoot is returned when the site directory cannot be resolved.
	ErrSiteRoot = errors.New("cannot resolve site directory")
	// ErrUnknownLocale is returned for a locale missing from the site config.
	ErrUnknownLocale = errors.New("unknown locale")
)

// Site is a loaded site with its active locale.
type Site struct {
	// Dir is the real path of the site directory.
	Dir        string
	ConfigPath string
	Config     Config
	Locale     string
	// LocalizationDir holds the catalogs of Locale.
	LocalizationDir string
	Version         string
}

// Load resolves siteDir, reads its config and selects locale, which defaults
// to the configured default locale.
func Load(siteDir, configPath, locale string) (*Site, error) {
	dir, err := RealPath(siteDir)
	if err != nil {
		return nil, err
	}

	cfg, cfgPath, err := LoadConfig(dir, configPath)
	if err != nil {
		return nil, err
	}

	if locale == "" {
		locale = cfg.I18n.DefaultLocale
	}
	if !cfg.HasLocale(locale) {
		return nil, fmt.Errorf("%w: can't write translations for locale %q that is not in the site config, available locales are: %s",
			ErrUnknownLocale, locale, strings.Join(cfg.I18n.Locales, ","))
	}

	version, _ := LoadVersion(dir)
	return &Site{
		Dir:             dir,
		ConfigPath:      cfgPath,
		Config:          cfg,
		Locale:          locale,
		LocalizationDir: filepath.Join(dir, cfg.I18n.Path, cfg.LocalePath(locale)),
		Version:         version,
	}, nil
}

// RealPath returns the absolute path of dir with symlinks resolved. dir must
// be a directory.
func RealPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSiteRoot, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSiteRoot, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSiteRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrSiteRoot, resolved)
	}
	return resolved, nil
}

// ValidateLocale checks that locale is a well-formed BCP 47 tag.
func ValidateLocale(locale string) error {
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnknownLocale, locale, err)
	}
	return nil
}

// CodeDomain is the catalog of site code translations.
func (s *Site) CodeDomain() catalog.Domain {
	return catalog.Domain{Name: CodeDomainName, Path: filepath.Join(s.LocalizationDir, codeFileName)}
}

// PluginDirName is the directory of a plugin instance under the localization
// directory. The default instance id is not part of the name.
func PluginDirName(name, id string) string {
	if id == "" || id == defaultPlugin {
		return name
	}
	return name + "-" + id
}

// PluginDomain is the catalog of a plugin instance translation file.
// The file must stay inside the plugin directory.
func (s *Site) PluginDomain(name, id, path string) (catalog.Domain, error) {
	dirName := PluginDirName(name, id)
	rel := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return catalog.Domain{}, fmt.Errorf("%w: translation file %q of plugin %s escapes its directory", ErrConfig, path, dirName)
	}
	return catalog.Domain{
		Name: dirName + "/" + filepath.ToSlash(rel),
		Path: filepath.Join(s.LocalizationDir, dirName, rel+".json"),
	}, nil
}
