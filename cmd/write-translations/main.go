// Package main provides write-translations, a CLI tool that extracts translatable
// strings from a site's JavaScript and TypeScript sources and merges them into the
// catalogs of one locale.
//
// Installation:
//
//	go install github.com/bondowe/translationsplus/cmd/write-translations@latest
//
// Basic Usage:
//
// Write the catalogs of the default locale of the site in the current directory:
//
//	write-translations
//
// Write the French catalogs, marking new entries:
//
//	write-translations ./website --locale fr --message-prefix "(fr) "
//
// Write several locales in one go, scanning each source file once:
//
//	write-translations ./website --locale fr,de,ja
//
// Replace existing messages with the ones found in the sources:
//
//	write-translations ./website --locale fr --override
//
// Recognize extra component and function names:
//
//	write-translations --tag-aliases "Msg,UI.Translate" --function-aliases t
//
// Print what would change without writing:
//
//	write-translations ./website --locale fr --dry-run
//
// Flags:
//
//	-locale            Locales to write, comma separated (default: the site default locale)
//	-override          Replace messages already present in the catalogs
//	-message-prefix    Prefix for newly added messages
//	-tag-aliases       Extra component names, repeatable, comma or space separated
//	-function-aliases  Extra function names, repeatable, comma or space separated
//	-config            Site config file (default: translations.config.yaml)
//	-dry-run           Print a diff instead of writing
//	-max-diff-bytes    Omit dry-run diffs of larger catalogs (default: 1 MiB, 0 for no limit)
//	-metrics-file      Write run metrics in the Prometheus text format
//	-verbose           Enable debug logging
//
// Defaults for locale, override, message prefix, config, metrics file and
// diff size can be set with WRITE_TRANSLATIONS_* environment variables, also read from the .env
// file of the site. Flags win over the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	translations "github.com/bondowe/translationsplus"
	"github.com/bondowe/translationsplus/internal/catalog"
	"github.com/bondowe/translationsplus/internal/telemetry"
)

const (
	envPrefix = "WRITE_TRANSLATIONS_"

	exitOK    = 0
	exitError = 1
	exitUsage = 2

	scanCacheSize = 4096
)

// config holds the resolved command configuration.
type config struct {
	SiteDir         string
	Locale          string `env:"LOCALE"`
	Override        bool   `env:"OVERRIDE"`
	MessagePrefix   string `env:"MESSAGE_PREFIX"`
	ConfigPath      string `env:"CONFIG"`
	MetricsFile     string `env:"METRICS_FILE"`
	Verbose         bool   `env:"VERBOSE"`
	MaxDiffBytes    int    `env:"MAX_DIFF_BYTES" envDefault:"1048576"`
	DryRun          bool
	TagAliases      []string
	FunctionAliases []string
}

// listFlag collects repeatable comma or space separated values. A nil value
// means the flag was never given.
type listFlag struct {
	values []string
}

func (l *listFlag) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(l.values, ",")
}

func (l *listFlag) Set(v string) error {
	if l.values == nil {
		l.values = []string{}
	}
	l.values = append(l.values, splitList(v)...)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run", uuid.NewString())
	out := log.New(stdout, "", 0)

	if cfg.MetricsFile != "" {
		telemetry.ConfigureTelemetry(false)
		defer func() {
			if err := telemetry.WriteToTextfile(cfg.MetricsFile); err != nil {
				logger.Error("error writing metrics", "path", cfg.MetricsFile, "error", err)
			}
		}()
	}

	cache, err := translations.NewScanCache(scanCacheSize)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	locales := splitList(cfg.Locale)
	if len(locales) == 0 {
		locales = []string{""}
	}
	for _, locale := range locales {
		summary, err := translations.WriteTranslations(ctx, cfg.SiteDir, translations.Options{
			Locale:          locale,
			ConfigPath:      cfg.ConfigPath,
			Override:        cfg.Override,
			MessagePrefix:   cfg.MessagePrefix,
			TagAliases:      cfg.TagAliases,
			FunctionAliases: cfg.FunctionAliases,
			DryRun:          cfg.DryRun,
			Out:             stdout,
			MaxDiffBytes:    cfg.MaxDiffBytes,
			ScanCache:       cache,
			Logger:          logger,
		})
		if summary != nil {
			printSummary(out, summary)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}

	if cfg.DryRun {
		out.Println("✓ Dry run completed, no files were written")
		return exitOK
	}
	out.Println("✓ Translations written successfully")
	return exitOK
}

// parseArgs parses flags and the optional site directory, which may appear
// before, between or after the flags. Environment defaults are read after the
// site .env file is loaded.
func parseArgs(args []string, stderr io.Writer) (config, error) {
	fset := flag.NewFlagSet("write-translations", flag.ContinueOnError)
	fset.SetOutput(stderr)

	var (
		flags           config
		tagAliases      listFlag
		functionAliases listFlag
	)
	fset.StringVar(&flags.Locale, "locale", "", "Locales to write, comma separated (default: the site default locale)")
	fset.BoolVar(&flags.Override, "override", false, "Replace messages already present in the catalogs")
	fset.StringVar(&flags.MessagePrefix, "message-prefix", "", "Prefix for newly added messages")
	fset.Var(&tagAliases, "tag-aliases", "Extra component names treated like Translate (repeatable)")
	fset.Var(&functionAliases, "function-aliases", "Extra function names treated like translate (repeatable)")
	fset.StringVar(&flags.ConfigPath, "config", "", "Site config file")
	fset.BoolVar(&flags.DryRun, "dry-run", false, "Print a diff instead of writing")
	fset.IntVar(&flags.MaxDiffBytes, "max-diff-bytes", 0, "Omit dry-run diffs of larger catalogs, 0 for no limit (default 1048576)")
	fset.StringVar(&flags.MetricsFile, "metrics-file", "", "Write run metrics in the Prometheus text format")
	fset.BoolVar(&flags.Verbose, "verbose", false, "Enable debug logging")

	var positional []string
	for {
		if err := fset.Parse(args); err != nil {
			return config{}, err
		}
		rest := fset.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
	if len(positional) > 1 {
		return config{}, fmt.Errorf("expected at most one site directory, got %d", len(positional))
	}

	cfg := config{SiteDir: "."}
	if len(positional) == 1 {
		cfg.SiteDir = positional[0]
	}

	if err := godotenv.Load(filepath.Join(cfg.SiteDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("error loading .env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "locale":
			cfg.Locale = flags.Locale
		case "override":
			cfg.Override = flags.Override
		case "message-prefix":
			cfg.MessagePrefix = flags.MessagePrefix
		case "config":
			cfg.ConfigPath = flags.ConfigPath
		case "metrics-file":
			cfg.MetricsFile = flags.MetricsFile
		case "verbose":
			cfg.Verbose = flags.Verbose
		case "max-diff-bytes":
			cfg.MaxDiffBytes = flags.MaxDiffBytes
		}
	})
	if cfg.MaxDiffBytes < 0 {
		return config{}, fmt.Errorf("max diff bytes must not be negative, got %d", cfg.MaxDiffBytes)
	}
	cfg.DryRun = flags.DryRun
	cfg.TagAliases = tagAliases.values
	cfg.FunctionAliases = functionAliases.values
	return cfg, nil
}

// splitList splits a comma or space separated list, dropping empty items.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func printSummary(out *log.Logger, s *translations.Summary) {
	out.Printf("Locale: %s (%s)", s.Locale, s.LocalizationDir)
	if s.SiteVersion != "" {
		out.Printf("Site version: %s", s.SiteVersion)
	}
	if s.CacheHits > 0 {
		out.Printf("Files scanned: %d (%d from cache)", s.FilesScanned, s.CacheHits)
	} else {
		out.Printf("Files scanned: %d", s.FilesScanned)
	}
	out.Printf("Entries extracted: %d", s.EntriesExtracted)
	out.Printf("Entries appended: %d, preserved: %d, overridden: %d, untouched: %d",
		s.Appended, s.Preserved, s.Overridden, s.Untouched)
	if s.Conflicts > 0 || s.Warnings > 0 {
		out.Printf("Conflicts: %d, warnings: %d", s.Conflicts, s.Warnings)
	}
	out.Printf("Catalogs written: %d, unchanged: %d, skipped: %d, dry-run: %d",
		s.Count(catalog.StatusWritten), s.Count(catalog.StatusUnchanged),
		s.Count(catalog.StatusSkippedEmpty), s.Count(catalog.StatusDryRun))
	for _, r := range s.Results {
		out.Printf("  %-30s %-14s %d entries", r.Domain.Name, r.Status, r.Entries)
	}
}
