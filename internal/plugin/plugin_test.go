package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/bondowe/translationsplus/internal/catalog"
	"github.com/bondowe/translationsplus/internal/site"
)

type basePlugin struct {
	name, id string
	caps     Capability
}

func (p basePlugin) Name() string             { return p.name }
func (p basePlugin) ID() string               { return p.id }
func (p basePlugin) Capabilities() Capability { return p.caps }

type defaultsPlugin struct {
	basePlugin
	msgs  map[string]string
	delay time.Duration
	err   error
}

func (p defaultsPlugin) DefaultCodeMessages(ctx context.Context) (map[string]string, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.msgs, p.err
}

type filesPlugin struct {
	basePlugin
	loaded bool
}

func (p *filesPlugin) LoadContent(context.Context) (any, error) {
	p.loaded = true
	return "content", nil
}

func (p *filesPlugin) TranslationFiles(_ context.Context, content any) ([]TranslationFile, error) {
	s, _ := content.(string)
	return []TranslationFile{{Path: "current", Content: []catalog.Entry{{ID: "k", Message: s}}}}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func initPlugins(t *testing.T, plugins []Plugin, siteDir string) []*Initialized {
	t.Helper()
	inits, err := Init(plugins, siteDir, quiet())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return inits
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		c    Capability
		want string
	}{
		{c: 0, want: "none"},
		{c: CapSourcePaths, want: "sourcePaths"},
		{c: CapLoadContent | CapTranslationFiles, want: "loadContent|translationFiles"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestInit(t *testing.T) {
	plugins := []Plugin{
		basePlugin{name: "plain"},
		defaultsPlugin{basePlugin: basePlugin{name: "theme", caps: CapDefaultCodeMessages}},
		&filesPlugin{basePlugin: basePlugin{name: "docs", id: "community", caps: CapLoadContent | CapTranslationFiles}},
	}

	got := initPlugins(t, plugins, t.TempDir())
	if len(got) != 3 {
		t.Fatalf("Expected 3 plugins, got %d", len(got))
	}
	if got[0].ID() != DefaultID {
		t.Errorf("Expected id %q, got %q", DefaultID, got[0].ID())
	}
	if got[0].String() != "plain" {
		t.Errorf("Expected plain, got %q", got[0].String())
	}
	if got[2].String() != "docs-community" {
		t.Errorf("Expected docs-community, got %q", got[2].String())
	}
	if got[0].Package.Kind != site.PackageLocal {
		t.Errorf("Expected local package, got %q", got[0].Package.Kind)
	}
}

func TestInitFailures(t *testing.T) {
	tests := []struct {
		name    string
		plugins []Plugin
	}{
		{
			name:    "declared capability not implemented",
			plugins: []Plugin{basePlugin{name: "liar", caps: CapDefaultCodeMessages}},
		},
		{
			name: "duplicate name and id",
			plugins: []Plugin{
				basePlugin{name: "docs", id: "default"},
				basePlugin{name: "docs"},
			},
		},
		{
			name:    "missing name",
			plugins: []Plugin{basePlugin{}},
		},
		{
			name:    "nil plugin",
			plugins: []Plugin{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Init(tt.plugins, t.TempDir(), quiet()); !errors.Is(err, ErrPluginInit) {
				t.Errorf("Expected ErrPluginInit, got %v", err)
			}
		})
	}
}

func TestInitIgnoresUndeclaredInterfaces(t *testing.T) {
	p := defaultsPlugin{basePlugin: basePlugin{name: "quiet"}, msgs: map[string]string{"a": "A"}}
	got := initPlugins(t, []Plugin{p}, t.TempDir())

	msgs, err := DefaultCodeMessages(context.Background(), got)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected no messages from an undeclared capability, got %v", msgs)
	}
}

func TestDefaultCodeMessagesLastWins(t *testing.T) {
	plugins := []Plugin{
		defaultsPlugin{
			basePlugin: basePlugin{name: "first", caps: CapDefaultCodeMessages},
			msgs:       map[string]string{"shared": "from first", "only.first": "1"},
		},
		defaultsPlugin{
			basePlugin: basePlugin{name: "second", caps: CapDefaultCodeMessages},
			msgs:       map[string]string{"shared": "from second"},
			delay:      20 * time.Millisecond,
		},
		basePlugin{name: "none"},
	}
	inits := initPlugins(t, plugins, t.TempDir())

	got, err := DefaultCodeMessages(context.Background(), inits)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expected := map[string]string{"shared": "from second", "only.first": "1"}
	if !maps.Equal(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestDefaultCodeMessagesError(t *testing.T) {
	boom := errors.New("boom")
	plugins := []Plugin{
		defaultsPlugin{basePlugin: basePlugin{name: "ok", caps: CapDefaultCodeMessages}, msgs: map[string]string{"a": "A"}},
		defaultsPlugin{basePlugin: basePlugin{name: "bad", caps: CapDefaultCodeMessages}, err: boom},
	}
	inits := initPlugins(t, plugins, t.TempDir())

	if _, err := DefaultCodeMessages(context.Background(), inits); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestUnusedDefaults(t *testing.T) {
	defaults := map[string]string{"used": "U", "z.unused": "Z", "a.unused": "A"}
	extracted := []catalog.Entry{{ID: "used", Message: "U"}, {ID: "other"}}

	expected := []string{"a.unused", "z.unused"}
	if got := UnusedDefaults(defaults, extracted); !slices.Equal(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if got := UnusedDefaults(nil, extracted); len(got) != 0 {
		t.Errorf("Expected no unused defaults, got %v", got)
	}
}

func TestTranslationFilesLoadsContentFirst(t *testing.T) {
	p := &filesPlugin{basePlugin: basePlugin{name: "docs", caps: CapLoadContent | CapTranslationFiles}}
	inits := initPlugins(t, []Plugin{p}, t.TempDir())

	files, err := inits[0].TranslationFiles(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !p.loaded {
		t.Error("Expected content to be loaded before translation files")
	}
	expected := []TranslationFile{{Path: "current", Content: []catalog.Entry{{ID: "k", Message: "content"}}}}
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("Expected %+v, got %+v", expected, files)
	}
}

func TestDeclarative(t *testing.T) {
	siteDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(siteDir, "package.json"), []byte(`{"name": "site"}`), 0o600); err != nil {
		t.Fatalf("Failed to write package.json: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(siteDir, "plugins", "blog"), 0o755); err != nil {
		t.Fatalf("Failed to create plugin dir: %v", err)
	}

	s := &site.Site{Dir: siteDir, Config: site.Config{Plugins: []site.PluginConfig{
		{
			Name:        "blog",
			Path:        "plugins/blog",
			SourcePaths: []string{"blog-src", "/abs/theme"},
			TranslationFiles: []site.TranslationFileConfig{{
				Path: "options",
				Content: map[string]site.EntryConfig{
					"title":       {Message: "Blog", Description: "Blog title"},
					"description": {Message: "News"},
				},
			}},
			DefaultCodeMessages: map[string]string{"theme.blog.next": "Next"},
		},
		{Name: "empty"},
	}}}

	plugins := FromConfig(s)
	if len(plugins) != 2 {
		t.Fatalf("Expected 2 plugins, got %d", len(plugins))
	}
	if expected := CapSourcePaths | CapLoadContent | CapTranslationFiles | CapDefaultCodeMessages; plugins[0].Capabilities() != expected {
		t.Errorf("Expected %s, got %s", expected, plugins[0].Capabilities())
	}
	if plugins[1].Capabilities() != 0 {
		t.Errorf("Expected no capabilities, got %s", plugins[1].Capabilities())
	}

	inits := initPlugins(t, plugins, siteDir)
	if inits[0].Package.Kind != site.PackageProject {
		t.Errorf("Expected project package, got %q", inits[0].Package.Kind)
	}
	if inits[1].Package.Kind != site.PackageLocal {
		t.Errorf("Expected local package, got %q", inits[1].Package.Kind)
	}
	if expected := []string{filepath.Join(siteDir, "blog-src"), "/abs/theme"}; !slices.Equal(inits[0].SourcePaths(), expected) {
		t.Errorf("Expected source paths %v, got %v", expected, inits[0].SourcePaths())
	}
	if got := inits[1].SourcePaths(); got != nil {
		t.Errorf("Expected nil source paths, got %v", got)
	}

	files, err := inits[0].TranslationFiles(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expected := []TranslationFile{{Path: "options", Content: []catalog.Entry{
		{ID: "description", Message: "News"},
		{ID: "title", Message: "Blog", Description: "Blog title"},
	}}}
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("Expected %+v, got %+v", expected, files)
	}

	msgs, err := DefaultCodeMessages(context.Background(), inits)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !maps.Equal(msgs, map[string]string{"theme.blog.next": "Next"}) {
		t.Errorf("Expected blog default messages, got %v", msgs)
	}
}
