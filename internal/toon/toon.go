// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a traceability graph into TOON format. root names the
// project the graph was built from.
func Encode(root string, g *model.Graph) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(root)))

	var itemRows [][]string
	for i := range g.Items {
		it := &g.Items[i]
		itemRows = append(itemRows, []string{
			it.ID,
			ident.ClassOf(it.ID).String(),
			it.Title,
			it.Source,
			fmt.Sprintf("%d", it.Line),
		})
	}
	parts = append(parts, formatTabular("items", []string{"id", "class", "title", "source", "line"}, itemRows))

	var linkRows [][]string
	for _, from := range sortedKeys(g.Forward) {
		for _, to := range g.Forward[from] {
			linkRows = append(linkRows, []string{from, to})
		}
	}
	parts = append(parts, formatTabular("links", []string{"from", "to"}, linkRows))

	var covRows [][]string
	for _, name := range sortedKeys(g.Metrics) {
		c := g.Metrics[name]
		covRows = append(covRows, []string{
			name,
			fmt.Sprintf("%d", c.WithLinks),
			fmt.Sprintf("%d", c.Total),
			fmt.Sprintf("%.2f", c.CoveragePct),
		})
	}
	parts = append(parts, formatTabular("coverage", []string{"metric", "linked", "total", "pct"}, covRows))

	var orphanRows [][]string
	for _, o := range []struct {
		kind string
		ids  []string
	}{
		{"requirement", g.Orphans.RequirementsNoLinks},
		{"scenario", g.Orphans.ScenariosNoReq},
		{"component", g.Orphans.ComponentsNoReq},
		{"decision", g.Orphans.DecisionsNoReq},
		{"test", g.Orphans.TestsNoReq},
	} {
		for _, id := range o.ids {
			orphanRows = append(orphanRows, []string{o.kind, id})
		}
	}
	if len(orphanRows) > 0 {
		parts = append(parts, formatTabular("orphans", []string{"kind", "id"}, orphanRows))
	}

	return strings.Join(parts, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
