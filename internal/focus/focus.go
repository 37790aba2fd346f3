// Package focus selects the part of a traceability graph around a query.
package focus

import (
	"sort"
	"strings"

	"github.com/phobologic/traceguide/internal/model"
)

// ByID returns a new Graph containing items whose identifier contains substr
// (case-insensitive), the items they link to or are linked from, and the
// edges that touch a matched item.
func ByID(g *model.Graph, substr string) *model.Graph {
	lower := strings.ToLower(substr)
	return around(g, func(it *model.Item) bool {
		return strings.Contains(strings.ToLower(it.ID), lower)
	})
}

// ByPath returns a new Graph containing items defined in files whose path
// contains substr (case-insensitive), plus their direct neighbours.
func ByPath(g *model.Graph, substr string) *model.Graph {
	lower := strings.ToLower(substr)
	return around(g, func(it *model.Item) bool {
		return strings.Contains(strings.ToLower(it.Source), lower)
	})
}

func around(g *model.Graph, match func(*model.Item) bool) *model.Graph {
	matched := make(map[string]struct{})
	for i := range g.Items {
		if match(&g.Items[i]) {
			matched[g.Items[i].ID] = struct{}{}
		}
	}

	keep := make(map[string]struct{}, len(matched))
	forward := make(map[string][]string)
	for id := range matched {
		keep[id] = struct{}{}
		for _, to := range g.Forward[id] {
			keep[to] = struct{}{}
		}
		for _, from := range g.Backward[id] {
			keep[from] = struct{}{}
		}
	}

	for from, tos := range g.Forward {
		_, fromOK := matched[from]
		for _, to := range tos {
			_, toOK := matched[to]
			if fromOK || toOK {
				forward[from] = append(forward[from], to)
			}
		}
	}

	var items []model.Item
	for i := range g.Items {
		if _, ok := keep[g.Items[i].ID]; ok {
			items = append(items, g.Items[i])
		}
	}

	backward := make(map[string][]string)
	for from, tos := range forward {
		for _, to := range tos {
			backward[to] = append(backward[to], from)
		}
	}
	for to := range backward {
		sort.Strings(backward[to])
	}

	return &model.Graph{
		Items:    items,
		Forward:  forward,
		Backward: backward,
		Orphans: model.Orphans{
			RequirementsNoLinks: filter(g.Orphans.RequirementsNoLinks, keep),
			ScenariosNoReq:      filter(g.Orphans.ScenariosNoReq, keep),
			ComponentsNoReq:     filter(g.Orphans.ComponentsNoReq, keep),
			DecisionsNoReq:      filter(g.Orphans.DecisionsNoReq, keep),
			TestsNoReq:          filter(g.Orphans.TestsNoReq, keep),
		},
	}
}

func filter(ids []string, keep map[string]struct{}) []string {
	var out []string
	for _, id := range ids {
		if _, ok := keep[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
