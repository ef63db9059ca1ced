package plugin

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bondowe/translationsplus/internal/catalog"
)

// DefaultCodeMessages asks every plugin with CapDefaultCodeMessages for its
// default messages and unions them. Plugins are queried concurrently; when
// several define an id, the one initialized last wins. Any plugin error fails
// the whole lookup.
func DefaultCodeMessages(ctx context.Context, plugins []*Initialized) (map[string]string, error) {
	results := make([]map[string]string, len(plugins))

	g, gctx := errgroup.WithContext(ctx)
	for i, ip := range plugins {
		if ip.defaults == nil {
			continue
		}
		g.Go(func() error {
			msgs, err := ip.defaults.DefaultCodeMessages(gctx)
			if err != nil {
				return fmt.Errorf("plugin %s: error loading default code messages: %w", ip, err)
			}
			results[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]string)
	for _, msgs := range results {
		for id, msg := range msgs {
			merged[id] = msg
		}
	}
	return merged, nil
}

// UnusedDefaults returns the ids of defaults that no extracted entry uses,
// sorted.
func UnusedDefaults(defaults map[string]string, extracted []catalog.Entry) []string {
	used := make(map[string]struct{}, len(extracted))
	for _, e := range extracted {
		used[e.ID] = struct{}{}
	}
	var unused []string
	for id := range defaults {
		if _, ok := used[id]; !ok {
			unused = append(unused, id)
		}
	}
	sort.Strings(unused)
	return unused
}
