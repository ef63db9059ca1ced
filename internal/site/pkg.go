package site

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

const packageJSON = "package.json"

// PackageKind classifies where a plugin comes from.
type PackageKind string

const (
	// PackageProject is a plugin living in the site itself.
	PackageProject PackageKind = "project"
	// PackagePackage is a plugin distributed as its own package.
	PackagePackage PackageKind = "package"
	// PackageLocal is a plugin outside of any package.
	PackageLocal PackageKind = "local"
)

// Package identifies the package a plugin belongs to.
type Package struct {
	Kind    PackageKind
	Name    string
	Version string
}

func (p Package) String() string {
	switch {
	case p.Kind != PackagePackage:
		return string(p.Kind)
	case p.Version != "":
		return p.Name + "@" + p.Version
	default:
		return p.Name
	}
}

// ResolvePackage walks up from path, a plugin entry file or directory,
// looking for the nearest package.json. Finding the site's own package.json
// means the plugin is part of the project.
func ResolvePackage(path, siteDir string) Package {
	dir := filepath.Clean(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		manifest := filepath.Join(dir, packageJSON)
		if info, err := os.Lstat(manifest); err == nil && info.Mode().IsRegular() {
			if dir == siteDir {
				return Package{Kind: PackageProject}
			}
			name, version := readPackageJSON(manifest)
			return Package{Kind: PackagePackage, Name: name, Version: version}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Package{Kind: PackageLocal}
		}
		dir = parent
	}
}

// LoadVersion returns the version of the site package, if any.
func LoadVersion(siteDir string) (string, bool) {
	manifest := filepath.Join(siteDir, packageJSON)
	if _, err := os.Stat(manifest); err != nil {
		return "", false
	}
	_, version := readPackageJSON(manifest)
	return version, version != ""
}

func readPackageJSON(path string) (string, string) {
	data, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(data) {
		return "", ""
	}
	res := gjson.GetManyBytes(data, "name", "version")
	return res[0].String(), res[1].String()
}
