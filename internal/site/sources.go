package site

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//nolint:gochecknoglobals // read-only lookup tables
var (
	// SourceExtensions are the file extensions that may hold translatable
	// strings.
	SourceExtensions = map[string]struct{}{".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}}

	excludedDirs = map[string]struct{}{"node_modules": {}}
)

// GlobSourceFiles returns the translatable source files under paths, sorted
// and without duplicates. Each path may be a file or a directory; missing
// paths are ignored. Type declaration files, node_modules and hidden
// directories are skipped.
func GlobSourceFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			if isSourceFile(abs) {
				add(abs)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != abs && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && isSourceFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// SourcePaths resolves the configured source directories against the site
// directory.
func (s *Site) SourcePaths() []string {
	out := make([]string, 0, len(s.Config.SourceDirs))
	for _, d := range s.Config.SourceDirs {
		out = append(out, s.Resolve(d))
	}
	return out
}

// Resolve makes path absolute relative to the site directory.
func (s *Site) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Dir, path)
}

func isSourceFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".d.ts") {
		return false
	}
	_, ok := SourceExtensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

func skipDir(name string) bool {
	if _, ok := excludedDirs[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".")
}
