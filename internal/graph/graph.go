// Package graph builds the reference graph from an index and computes
// requirement coverage metrics over it.
package graph

import (
	"sort"

	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
)

// Category is a requirement link target scored by its own metric.
type Category struct {
	Metric string
	Class  ident.Class
}

// Categories are the per-class requirement metrics, in validation order
// after the overall metric.
var Categories = []Category{
	{model.MetricDesign, ident.Design},
	{model.MetricDecision, ident.Decision},
	{model.MetricScenario, ident.Scenario},
	{model.MetricTest, ident.Test},
}

// rawMetrics are per-class shares of items with any forward reference.
var rawMetrics = []struct {
	key   string
	class ident.Class
}{
	{"str", ident.Stakeholder},
	{model.MetricRawReq, ident.Requirement},
	{"arc", ident.Component},
	{"adr", ident.Decision},
	{"des", ident.Design},
	{"qa", ident.Scenario},
	{"test", ident.Test},
}

// Compute derives the graph snapshot from an index. The index is not
// modified.
func Compute(idx *model.Index) *model.Graph {
	items := make([]model.Item, len(idx.Items))
	copy(items, idx.Items)

	forward := make(map[string][]string, len(items))
	for _, it := range items {
		forward[it.ID] = sortedCopy(it.References)
	}
	backward := Invert(forward)

	g := &model.Graph{
		Items:    items,
		Forward:  forward,
		Backward: backward,
		Metrics:  make(map[string]model.Coverage),
	}

	var reqs []string
	for _, it := range items {
		if ident.ClassOf(it.ID) == ident.Requirement {
			reqs = append(reqs, it.ID)
		}
	}

	for _, rm := range rawMetrics {
		g.Metrics[rm.key] = rawCoverage(items, forward, rm.class)
	}

	overall := linkCoverage(reqs, func(r string) model.LinkDetail {
		return model.LinkDetail{
			ForwardRefs: filter(forward[r], notRequirement),
			ReverseRefs: filter(backward[r], notRequirement),
		}
	})
	overall.Definition = "requirements with at least one link to a non-requirement artifact"
	overall.Inference = "forward reference or reverse reference"
	g.Metrics[model.MetricRequirement] = overall

	for _, cat := range Categories {
		c := linkCoverage(reqs, func(r string) model.LinkDetail {
			return Symmetric(forward, backward, r, cat.Class)
		})
		c.Definition = "requirements linked to at least one " + cat.Class.String() + " artifact"
		c.Inference = "forward reference or reverse reference"
		g.Metrics[cat.Metric] = c
	}

	bySource := sourceIndex(idx.Sources)
	design := g.Metrics[model.MetricDesign].Details
	src := linkCoverage(reqs, func(r string) model.LinkDetail {
		direct := bySource[r]
		var propagated []string
		d := design[r]
		for _, des := range append(append([]string(nil), d.ForwardRefs...), d.ReverseRefs...) {
			propagated = append(propagated, bySource[des]...)
		}
		return model.LinkDetail{
			ForwardRefs:    []string{},
			ReverseRefs:    sortedCopy(direct),
			PropagatedRefs: without(uniqueSorted(propagated), direct),
		}
	})
	src.Definition = "requirements referenced from source, directly or through a linked design element"
	src.Inference = "reverse reference or one-hop design propagation"
	g.Metrics[model.MetricSource] = src

	g.Orphans = orphans(items, reqs, forward, backward, overall)
	return g
}

// Invert returns the structural inverse of forward: y is in result[x] iff x
// is in forward[y]. Every forward key is present in the result, and every
// list is sorted and duplicate-free.
func Invert(forward map[string][]string) map[string][]string {
	set := make(map[string]map[string]struct{}, len(forward))
	for src := range forward {
		if _, ok := set[src]; !ok {
			set[src] = make(map[string]struct{})
		}
	}
	for src, targets := range forward {
		for _, t := range targets {
			if _, ok := set[t]; !ok {
				set[t] = make(map[string]struct{})
			}
			set[t][src] = struct{}{}
		}
	}

	backward := make(map[string][]string, len(set))
	for id, srcs := range set {
		list := make([]string, 0, len(srcs))
		for s := range srcs {
			list = append(list, s)
		}
		sort.Strings(list)
		backward[id] = list
	}
	return backward
}

// Symmetric returns the links from requirement r to artifacts of class c:
// identifiers of that class r references, and artifacts of that class that
// reference r.
func Symmetric(forward, backward map[string][]string, r string, c ident.Class) model.LinkDetail {
	is := func(id string) bool { return ident.ClassOf(id) == c }
	return model.LinkDetail{
		ForwardRefs: filter(forward[r], is),
		ReverseRefs: filter(backward[r], is),
	}
}

func linkCoverage(reqs []string, link func(string) model.LinkDetail) model.Coverage {
	c := model.Coverage{
		Total:   len(reqs),
		Details: make(map[string]model.LinkDetail, len(reqs)),
		Groups:  make(map[string]model.GroupCoverage),
	}
	groups := make(map[ident.Subtype]*model.GroupCoverage)
	for _, st := range ident.Subtypes() {
		groups[st] = &model.GroupCoverage{}
	}

	for _, r := range reqs {
		d := link(r)
		c.Details[r] = d
		grp := groups[ident.RequirementSubtype(r)]
		grp.Total++
		if d.Linked() {
			c.WithLinks++
			grp.WithLinks++
		}
	}

	c.CoveragePct = model.Percent(c.WithLinks, c.Total)
	for st, grp := range groups {
		grp.CoveragePct = model.Percent(grp.WithLinks, grp.Total)
		c.Groups[string(st)] = *grp
	}
	return c
}

func rawCoverage(items []model.Item, forward map[string][]string, class ident.Class) model.Coverage {
	var c model.Coverage
	for _, it := range items {
		if ident.ClassOf(it.ID) != class {
			continue
		}
		c.Total++
		if len(forward[it.ID]) > 0 {
			c.WithLinks++
		}
	}
	c.CoveragePct = model.Percent(c.WithLinks, c.Total)
	c.Definition = class.String() + " items with at least one forward reference"
	return c
}

func orphans(items []model.Item, reqs []string, forward, backward map[string][]string, overall model.Coverage) model.Orphans {
	linked := make(map[string]bool)
	for _, r := range reqs {
		for _, id := range forward[r] {
			linked[id] = true
		}
		for _, id := range backward[r] {
			linked[id] = true
		}
	}

	o := model.Orphans{
		RequirementsNoLinks: []string{},
		ScenariosNoReq:      []string{},
		ComponentsNoReq:     []string{},
		DecisionsNoReq:      []string{},
		TestsNoReq:          []string{},
	}
	for _, r := range reqs {
		if !overall.Details[r].Linked() {
			o.RequirementsNoLinks = append(o.RequirementsNoLinks, r)
		}
	}
	for _, it := range items {
		if linked[it.ID] {
			continue
		}
		switch ident.ClassOf(it.ID) {
		case ident.Scenario:
			o.ScenariosNoReq = append(o.ScenariosNoReq, it.ID)
		case ident.Component:
			o.ComponentsNoReq = append(o.ComponentsNoReq, it.ID)
		case ident.Decision:
			o.DecisionsNoReq = append(o.DecisionsNoReq, it.ID)
		case ident.Test:
			o.TestsNoReq = append(o.TestsNoReq, it.ID)
		}
	}
	for _, list := range [][]string{o.RequirementsNoLinks, o.ScenariosNoReq, o.ComponentsNoReq, o.DecisionsNoReq, o.TestsNoReq} {
		sort.Strings(list)
	}
	return o
}

// sourceIndex maps each referenced identifier to the source artifacts
// ("SRC:path") that reference it.
func sourceIndex(sources []model.SourceArtifact) map[string][]string {
	out := make(map[string][]string)
	for _, s := range sources {
		for _, ref := range s.References {
			out[ref] = append(out[ref], model.SourcePrefix+s.Path)
		}
	}
	for id, list := range out {
		out[id] = uniqueSorted(list)
	}
	return out
}

func notRequirement(id string) bool { return ident.ClassOf(id) != ident.Requirement }

func filter(ids []string, keep func(string) bool) []string {
	out := []string{}
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func uniqueSorted(ids []string) []string {
	out := sortedCopy(ids)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

func without(ids, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[d] = true
	}
	return filter(ids, func(id string) bool { return !skip[id] })
}
