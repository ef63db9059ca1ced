// Package site loads everything write-translations needs to know about a
// site: its configuration, the active locale, where catalogs live and which
// source files may contain translatable strings.
package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

const (
	defaultI18nPath  = "i18n"
	defaultLocale    = "en"
	defaultSourceDir = "src"
)

// ConfigFileNames are looked up in the site directory, in order, when no
// explicit config path is given.
//
//nolint:gochecknoglobals // read-only lookup table
var ConfigFileNames = []string{
	"translations.config.yaml",
	"translations.config.yml",
	"translations.config.json",
}

// ErrConfig is returned for unreadable or invalid site configuration.
var ErrConfig = errors.New("invalid site config")

type (
	// Config is the site configuration file. YAML and JSON are both accepted.
	Config struct {
		I18n       I18nConfig     `json:"i18n"`
		SourceDirs []string       `json:"sourceDirs,omitempty"`
		Plugins    []PluginConfig `json:"plugins,omitempty"`
	}

	// I18nConfig lists the locales of the site and where their catalogs live.
	I18nConfig struct {
		DefaultLocale string                  `json:"defaultLocale"`
		Locales       []string                `json:"locales"`
		Path          string                  `json:"path,omitempty"`
		LocaleConfigs map[string]LocaleConfig `json:"localeConfigs,omitempty"`
	}

	// LocaleConfig overrides per-locale settings.
	LocaleConfig struct {
		// Path is the directory name of the locale under I18nConfig.Path.
		// It defaults to the locale itself.
		Path string `json:"path,omitempty"`
	}

	// PluginConfig declares a plugin whose translation data lives in the
	// config file.
	PluginConfig struct {
		Name                string                  `json:"name"`
		ID                  string                  `json:"id,omitempty"`
		Path                string                  `json:"path,omitempty"`
		SourcePaths         []string                `json:"sourcePaths,omitempty"`
		TranslationFiles    []TranslationFileConfig `json:"translationFiles,omitempty"`
		DefaultCodeMessages map[string]string       `json:"defaultCodeMessages,omitempty"`
	}

	// TranslationFileConfig is one plugin translation file and its content.
	TranslationFileConfig struct {
		Path    string                 `json:"path"`
		Content map[string]EntryConfig `json:"content"`
	}

	// EntryConfig is one message of a plugin translation file.
	EntryConfig struct {
		Message     string `json:"message"`
		Description string `json:"description,omitempty"`
	}
)

// DefaultConfig is used when the site has no config file.
func DefaultConfig() Config {
	return Config{
		I18n: I18nConfig{
			DefaultLocale: defaultLocale,
			Locales:       []string{defaultLocale},
		},
	}
}

// ParseConfig decodes a YAML or JSON config document. Unknown fields are
// rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads the config of siteDir. configPath, when set, is resolved
// against siteDir and must exist. Otherwise the first of ConfigFileNames found
// is used, falling back to DefaultConfig. The returned path is empty when no
// file was read.
func LoadConfig(siteDir, configPath string) (Config, string, error) {
	if configPath != "" {
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(siteDir, configPath)
		}
		cfg, err := readConfig(configPath)
		return cfg, configPath, err
	}

	for _, name := range ConfigFileNames {
		path := filepath.Join(siteDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := readConfig(path)
		return cfg, path, err
	}

	cfg := DefaultConfig()
	cfg.applyDefaults()
	return cfg, "", nil
}

func readConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: error reading %s: %w", ErrConfig, path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.I18n.DefaultLocale == "" {
		c.I18n.DefaultLocale = defaultLocale
	}
	if len(c.I18n.Locales) == 0 {
		c.I18n.Locales = []string{c.I18n.DefaultLocale}
	}
	if c.I18n.Path == "" {
		c.I18n.Path = defaultI18nPath
	}
	if len(c.SourceDirs) == 0 {
		c.SourceDirs = []string{defaultSourceDir}
	}
}

func (c *Config) validate() error {
	if !c.HasLocale(c.I18n.DefaultLocale) {
		return fmt.Errorf("%w: default locale %q is not in locales %v", ErrConfig, c.I18n.DefaultLocale, c.I18n.Locales)
	}
	for _, l := range c.I18n.Locales {
		if err := ValidateLocale(l); err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	for i, p := range c.Plugins {
		if p.Name == "" {
			return fmt.Errorf("%w: plugins[%d] has no name", ErrConfig, i)
		}
		for _, f := range p.TranslationFiles {
			if f.Path == "" {
				return fmt.Errorf("%w: plugin %q has a translation file without path", ErrConfig, p.Name)
			}
		}
	}
	return nil
}

// HasLocale reports whether locale is one of the configured locales.
func (c *Config) HasLocale(locale string) bool {
	for _, l := range c.I18n.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

// LocalePath returns the directory name of locale under the i18n path.
func (c *Config) LocalePath(locale string) string {
	if lc, ok := c.I18n.LocaleConfigs[locale]; ok && lc.Path != "" {
		return lc.Path
	}
	return locale
}
