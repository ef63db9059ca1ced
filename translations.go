// Package translationsplus extracts translatable strings from a site's
// JavaScript and TypeScript sources and merges them into the translation
// catalogs already on disk, without ever destroying human-curated
// translations.
//
// Two source forms are recognized, along with any configured aliases:
//
//	translate({id: 'home.title', message: 'Welcome', description: 'Hero title'})
//	<Translate id="home.tagline">Fast and simple</Translate>
//
// Catalogs use the Docusaurus code.json layout:
//
//	{
//	  "home.title": {
//	    "message": "Welcome",
//	    "description": "Hero title"
//	  }
//	}
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    translations "github.com/bondowe/translationsplus"
//	)
//
//	func main() {
//	    summary, err := translations.WriteTranslations(context.Background(), "./website", translations.Options{
//	        Locale:        "fr",
//	        MessagePrefix: "(fr) ",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Printf("%d new entries", summary.Appended)
//	}
package translationsplus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bondowe/translationsplus/internal/catalog"
	"github.com/bondowe/translationsplus/internal/extract"
	"github.com/bondowe/translationsplus/internal/i18n"
	"github.com/bondowe/translationsplus/internal/plugin"
	"github.com/bondowe/translationsplus/internal/site"
	"github.com/bondowe/translationsplus/internal/telemetry"
)

type (
	// Entry is one catalog entry.
	Entry = catalog.Entry
	// Plugin is a source of translation data. See the plugin capability
	// interfaces for the optional behavior a plugin may provide.
	Plugin = plugin.Plugin
	// Capability is a set of optional plugin features.
	Capability = plugin.Capability
	// ContentLoader loads plugin content.
	ContentLoader = plugin.ContentLoader
	// TranslationFilesProvider returns plugin translation files.
	TranslationFilesProvider = plugin.TranslationFilesProvider
	// DefaultCodeMessagesProvider returns fallback code messages.
	DefaultCodeMessagesProvider = plugin.DefaultCodeMessagesProvider
	// SourcePathsProvider lists extra paths to scan.
	SourcePathsProvider = plugin.SourcePathsProvider
	// TranslationFile is one plugin-owned catalog.
	TranslationFile = plugin.TranslationFile
	// WriteResult reports what happened to one catalog.
	WriteResult = catalog.WriteResult
	// Translator resolves translated messages at render time.
	Translator = i18n.Translator
	// ScanCache memoises per-file scan results across runs.
	ScanCache = extract.Cache

	// Options configures a WriteTranslations run.
	Options struct {
		// Locale defaults to the site default locale.
		Locale string
		// ConfigPath overrides the site config file lookup.
		ConfigPath string
		// Override replaces messages and descriptions already on disk.
		Override bool
		// MessagePrefix is prepended to newly added messages.
		MessagePrefix string
		// TagAliases are extra component names treated like Translate. Nil
		// means DefaultTagAliases.
		TagAliases []string
		// FunctionAliases are extra function names treated like translate.
		FunctionAliases []string
		// DryRun prints diffs to Out, default os.Stdout, instead of writing.
		// Diffs are printed in Results order once every catalog is merged.
		DryRun bool
		Out    io.Writer
		// MaxDiffBytes omits dry-run diffs of larger catalogs. 0 means no limit.
		MaxDiffBytes int
		// ScanCache is reused across runs, typically one per locale of the
		// same site. Nil means a fresh cache per run.
		ScanCache *ScanCache
		// Plugins are initialized after the plugins declared in the site
		// config.
		Plugins []Plugin
		// ExtraSourcePaths are scanned in addition to the site source dirs.
		ExtraSourcePaths []string
		Concurrency      int
		Logger           *slog.Logger
	}

	// Summary reports what a run did.
	Summary struct {
		Locale           string
		LocalizationDir  string
		SiteVersion      string
		FilesScanned     int
		CacheHits        int
		EntriesExtracted int
		Appended         int
		Preserved        int
		Overridden       int
		Untouched        int
		Conflicts        int
		Warnings         int
		UnusedDefaults   []string
		// Results are ordered with the code catalog first, then plugin files
		// in plugin order.
		Results []WriteResult
	}

	// WriteError is returned when some catalogs could not be written. The
	// other catalogs were still processed.
	WriteError struct {
		Domains []string
		Err     error
	}

	domainJob struct {
		domain catalog.Domain
		// entries are the extracted entries for the domain. fallback only
		// applies to the code catalog.
		entries  []catalog.Entry
		fallback map[string]string
		err      error
	}
)

// Plugin capabilities.
const (
	CapLoadContent         = plugin.CapLoadContent
	CapTranslationFiles    = plugin.CapTranslationFiles
	CapDefaultCodeMessages = plugin.CapDefaultCodeMessages
	CapSourcePaths         = plugin.CapSourcePaths
)

// Errors returned by WriteTranslations. Use errors.Is to test for them.
var (
	ErrUnknownLocale  = site.ErrUnknownLocale
	ErrSiteRoot       = site.ErrSiteRoot
	ErrConfig         = site.ErrConfig
	ErrInvalidAlias   = extract.ErrInvalidAlias
	ErrPluginInit     = plugin.ErrPluginInit
	ErrInvalidCatalog = catalog.ErrInvalidCatalog
)

// NewScanCache returns a cache holding up to size file results.
func NewScanCache(size int) (*ScanCache, error) {
	return extract.NewCache(size)
}

// DefaultTagAliases are used when Options.TagAliases is nil.
//
//nolint:gochecknoglobals // read-only defaults
var DefaultTagAliases = []string{"TranslatedMarkdown"}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %d catalog(s) [%s]: %v", len(e.Domains), strings.Join(e.Domains, ", "), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Count returns the number of catalogs that ended with status.
func (s *Summary) Count(status catalog.WriteStatus) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// WriteTranslations scans the site at siteDir and writes the merged code and
// plugin catalogs of the selected locale.
//
// Configuration problems, an unknown locale, an unreadable site directory and
// plugin failures abort the run before anything is written. Failures of
// individual catalogs are collected into a *WriteError once every catalog was
// attempted; the returned summary is valid in that case.
func WriteTranslations(ctx context.Context, siteDir string, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tagAliases := opts.TagAliases
	if tagAliases == nil {
		tagAliases = DefaultTagAliases
	}
	aliases, err := extract.NewAliasConfig(tagAliases, opts.FunctionAliases)
	if err != nil {
		return nil, err
	}

	s, err := site.Load(siteDir, opts.ConfigPath, opts.Locale)
	if err != nil {
		return nil, err
	}
	logger = logger.With("locale", s.Locale)
	logger.Debug("site loaded",
		"dir", s.Dir, "config", s.ConfigPath, "version", s.Version, "localizationDir", s.LocalizationDir)

	plugins := append(plugin.FromConfig(s), opts.Plugins...)
	inits, err := plugin.Init(plugins, s.Dir, logger)
	if err != nil {
		return nil, err
	}

	res, err := scanSources(ctx, s, inits, aliases, opts, logger)
	if err != nil {
		return nil, err
	}

	defaults, err := plugin.DefaultCodeMessages(ctx, inits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPluginInit, err)
	}
	unused := plugin.UnusedDefaults(defaults, res.Entries)
	if len(unused) > 0 {
		logger.Warn("default code messages are not used by any source", "ids", unused)
	}

	jobs := []domainJob{{domain: s.CodeDomain(), entries: res.Entries, fallback: defaults}}
	jobs = append(jobs, pluginJobs(ctx, s, inits)...)

	summary := &Summary{
		Locale:           s.Locale,
		LocalizationDir:  s.LocalizationDir,
		SiteVersion:      s.Version,
		FilesScanned:     res.FilesScanned,
		CacheHits:        res.CacheHits,
		EntriesExtracted: len(res.Entries),
		Conflicts:        len(res.Conflicts),
		Warnings:         len(res.Diagnostics),
		UnusedDefaults:   unused,
	}
	err = writeDomains(ctx, jobs, summary, opts, logger)
	return summary, err
}

func scanSources(
	ctx context.Context,
	s *site.Site,
	inits []*plugin.Initialized,
	aliases extract.AliasConfig,
	opts Options,
	logger *slog.Logger,
) (*extract.Result, error) {
	defer telemetry.ObservePhase("scan")()

	roots := s.SourcePaths()
	for _, ip := range inits {
		roots = append(roots, ip.SourcePaths()...)
	}
	for _, p := range opts.ExtraSourcePaths {
		roots = append(roots, s.Resolve(p))
	}
	files, err := site.GlobSourceFiles(roots)
	if err != nil {
		return nil, fmt.Errorf("error listing source files: %w", err)
	}

	scanOpts := []extract.ScannerOption{extract.WithLogger(logger), extract.WithConcurrency(opts.Concurrency)}
	if opts.ScanCache != nil {
		scanOpts = append(scanOpts, extract.WithCache(opts.ScanCache))
	}
	scanner, err := extract.NewScanner(aliases, scanOpts...)
	if err != nil {
		return nil, err
	}
	res, err := scanner.Scan(ctx, files)
	if err != nil {
		return nil, err
	}

	telemetry.FilesScannedTotal.Add(float64(res.FilesScanned))
	telemetry.EntriesExtractedTotal.Add(float64(len(res.Entries)))
	telemetry.ScanCacheHitsTotal.Add(float64(res.CacheHits))
	telemetry.ScanIssuesTotal.WithLabelValues("diagnostic").Add(float64(len(res.Diagnostics)))
	telemetry.ScanIssuesTotal.WithLabelValues("conflict").Add(float64(len(res.Conflicts)))
	logger.Info("sources scanned", "files", res.FilesScanned, "entries", len(res.Entries), "cacheHits", res.CacheHits)
	return res, nil
}

// pluginJobs collects the translation files of every plugin. Plugins are
// queried concurrently; a failing plugin only fails its own domain.
func pluginJobs(ctx context.Context, s *site.Site, inits []*plugin.Initialized) []domainJob {
	perPlugin := make([][]domainJob, len(inits))

	var g errgroup.Group
	for i, ip := range inits {
		if !ip.Capabilities().Has(plugin.CapTranslationFiles) {
			continue
		}
		g.Go(func() error {
			files, err := ip.TranslationFiles(ctx)
			if err != nil {
				perPlugin[i] = []domainJob{{domain: catalog.Domain{Name: ip.String()}, err: err}}
				return nil
			}
			for _, f := range files {
				d, err := s.PluginDomain(ip.Name(), ip.ID(), f.Path)
				if err != nil {
					d.Name = ip.String() + "/" + f.Path
				}
				perPlugin[i] = append(perPlugin[i], domainJob{domain: d, entries: f.Content, err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	var jobs []domainJob
	for _, js := range perPlugin {
		jobs = append(jobs, js...)
	}
	return jobs
}

// writeDomains merges and writes every domain concurrently. Each domain maps
// to exactly one file; a second domain for the same file fails.
func writeDomains(ctx context.Context, jobs []domainJob, summary *Summary, opts Options, logger *slog.Logger) error {
	defer telemetry.ObservePhase("write")()

	seen := make(map[string]string, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		if j.err != nil || j.domain.Path == "" {
			continue
		}
		if other, dup := seen[j.domain.Path]; dup {
			j.err = fmt.Errorf("%s: same file as %s", j.domain.Path, other)
			continue
		}
		seen[j.domain.Path] = j.domain.Name
	}

	policy := catalog.Policy{Override: opts.Override, MessagePrefix: opts.MessagePrefix}
	writer := &catalog.Writer{DryRun: opts.DryRun, MaxDiffBytes: opts.MaxDiffBytes, Logger: logger}
	results := make([]WriteResult, len(jobs))
	stats := make([]catalog.MergeStats, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(max(opts.Concurrency, 1) * 2)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = WriteResult{Domain: j.domain}
			if j.err != nil {
				errs[i] = j.err
				return nil
			}
			existing, err := catalog.Load(j.domain.Path)
			if err != nil {
				errs[i] = err
				return nil
			}
			merged, st := catalog.Merge(existing, j.entries, j.fallback, policy)
			stats[i] = st
			if results[i], err = writer.Write(ctx, j.domain, merged); err != nil {
				results[i] = WriteResult{Domain: j.domain}
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var printErr error
	if opts.DryRun {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		for i := range results {
			if results[i].Diff == "" {
				continue
			}
			if _, err := io.WriteString(out, results[i].Diff); err != nil {
				printErr = fmt.Errorf("error printing diff for %s: %w", results[i].Domain.Path, err)
				break
			}
		}
	}

	var (
		failed []string
		joined []error
	)
	for i, j := range jobs {
		name := j.domain.Name
		if errs[i] != nil {
			failed = append(failed, name)
			joined = append(joined, fmt.Errorf("%s: %w", name, errs[i]))
			telemetry.CatalogWritesTotal.WithLabelValues("failed").Inc()
			logger.Error("error writing catalog", "domain", name, "error", errs[i])
			continue
		}
		st := stats[i]
		summary.Appended += st.Appended
		summary.Preserved += st.Preserved
		summary.Overridden += st.Overridden
		summary.Untouched += len(st.Untouched)
		summary.Results = append(summary.Results, results[i])
		recordMerge(name, st)
		telemetry.CatalogWritesTotal.WithLabelValues(results[i].Status.String()).Inc()

		if len(st.Untouched) > 0 {
			logger.Warn("catalog has ids that no source declares anymore, maybe you should remove them",
				"domain", name, "ids", st.Untouched)
		}
		logger.Info("catalog processed", "domain", name, "status", results[i].Status.String(),
			"entries", results[i].Entries, "new", st.Appended)
	}

	if len(joined) > 0 {
		return &WriteError{Domains: failed, Err: errors.Join(joined...)}
	}
	return printErr
}

func recordMerge(domain string, st catalog.MergeStats) {
	telemetry.MergeEntriesTotal.WithLabelValues(domain, "appended").Add(float64(st.Appended))
	telemetry.MergeEntriesTotal.WithLabelValues(domain, "preserved").Add(float64(st.Preserved))
	telemetry.MergeEntriesTotal.WithLabelValues(domain, "overridden").Add(float64(st.Overridden))
	telemetry.MergeEntriesTotal.WithLabelValues(domain, "untouched").Add(float64(len(st.Untouched)))
}

// NewTranslator loads the code catalogs of every locale of the site at
// siteDir for render-time lookups.
func NewTranslator(siteDir, configPath string, logger *slog.Logger) (*Translator, error) {
	dir, err := site.RealPath(siteDir)
	if err != nil {
		return nil, err
	}
	cfg, _, err := site.LoadConfig(dir, configPath)
	if err != nil {
		return nil, err
	}
	locales := make(map[string]string, len(cfg.I18n.Locales))
	for _, l := range cfg.I18n.Locales {
		locales[cfg.LocalePath(l)] = l
	}
	return i18n.New(i18n.Config{
		FS:      os.DirFS(filepath.Join(dir, cfg.I18n.Path)),
		Locales: locales,
		Logger:  logger,
	})
}
