// Package extract statically scans JavaScript and TypeScript sources (with or
// without JSX) for translatable strings.
//
// Two forms are recognized:
//
//	translate({id: 'home.title', message: 'Welcome', description: 'Hero title'})
//	<Translate id="home.tagline" description="Hero tagline">Fast and simple</Translate>
//
// The recognized function and component names are configured with an
// AliasConfig; `translate` and `Translate` are always recognized.
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// BuiltinComponent is the JSX tag always treated as a translate component.
	BuiltinComponent = "Translate"
	// BuiltinFunction is the function always treated as a translate call.
	BuiltinFunction = "translate"
)

// ErrInvalidAlias is returned for alias names that are not valid identifiers.
var ErrInvalidAlias = errors.New("invalid alias")

// AliasConfig lists the extra component and function names recognized on top
// of the built-in ones. It is immutable once built.
type AliasConfig struct {
	components map[string]struct{}
	functions  map[string]struct{}
}

// NewAliasConfig validates and builds an AliasConfig.
// Component names may be dotted member names such as `UI.Translate`.
func NewAliasConfig(componentNames, functionNames []string) (AliasConfig, error) {
	cfg := AliasConfig{
		components: map[string]struct{}{BuiltinComponent: {}},
		functions:  map[string]struct{}{BuiltinFunction: {}},
	}
	for _, raw := range componentNames {
		name := strings.TrimSpace(raw)
		if !isMemberName(name) {
			return AliasConfig{}, fmt.Errorf("%w: component name %q", ErrInvalidAlias, raw)
		}
		cfg.components[name] = struct{}{}
	}
	for _, raw := range functionNames {
		name := strings.TrimSpace(raw)
		if !isIdentifier(name) {
			return AliasConfig{}, fmt.Errorf("%w: function name %q", ErrInvalidAlias, raw)
		}
		cfg.functions[name] = struct{}{}
	}
	return cfg, nil
}

// DefaultAliasConfig recognizes only the built-in names.
func DefaultAliasConfig() AliasConfig {
	cfg, _ := NewAliasConfig(nil, nil)
	return cfg
}

// IsComponent reports whether name is a recognized translate component.
func (a AliasConfig) IsComponent(name string) bool {
	if name == BuiltinComponent {
		return true
	}
	_, ok := a.components[name]
	return ok
}

// IsFunction reports whether name is a recognized translate function.
func (a AliasConfig) IsFunction(name string) bool {
	if name == BuiltinFunction {
		return true
	}
	_, ok := a.functions[name]
	return ok
}

// ComponentNames returns all recognized component names, sorted.
func (a AliasConfig) ComponentNames() []string {
	if a.components == nil {
		return []string{BuiltinComponent}
	}
	return sortedKeys(a.components)
}

// FunctionNames returns all recognized function names, sorted.
func (a AliasConfig) FunctionNames() []string {
	if a.functions == nil {
		return []string{BuiltinFunction}
	}
	return sortedKeys(a.functions)
}

// key identifies the configuration in scan cache keys.
func (a AliasConfig) key() string {
	return strings.Join(a.ComponentNames(), ",") + "|" + strings.Join(a.FunctionNames(), ",")
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == 0 && !isIdentStart(c) {
			return false
		}
		if !isIdentPart(c) {
			return false
		}
	}
	return true
}

func isMemberName(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !isIdentifier(part) {
			return false
		}
	}
	return true
}
