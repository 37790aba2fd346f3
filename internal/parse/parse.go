// Package parse extracts comment text from source files using tree-sitter.
package parse

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/traceguide/internal/model"
)

// CommentLines parses a source file and returns the text of every captured
// comment, split into numbered lines. Comments sharing a line are joined
// with a space. The parser must be created for the correct language.
func CommentLines(ctx context.Context, parser *sitter.Parser, query *sitter.Query, source []byte) ([]model.Line, error) {
	if len(source) == 0 {
		return nil, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	byLine := make(map[int][]string)
	seen := make(map[uint32]bool)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		for _, c := range match.Captures {
			// Nested patterns can capture the same node twice.
			if seen[c.Node.StartByte()] {
				continue
			}
			seen[c.Node.StartByte()] = true

			start := int(c.Node.StartPoint().Row) + 1
			text := string(source[c.Node.StartByte():c.Node.EndByte()])
			for i, part := range strings.Split(text, "\n") {
				part = strings.TrimRight(part, "\r")
				if strings.TrimSpace(part) == "" {
					continue
				}
				byLine[start+i] = append(byLine[start+i], part)
			}
		}
	}

	lines := make([]model.Line, 0, len(byLine))
	for n, parts := range byLine {
		lines = append(lines, model.Line{Number: n, Text: strings.Join(parts, " ")})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Number < lines[j].Number })
	return lines, nil
}

// AllLines splits text into numbered lines, for files without a grammar.
func AllLines(text string) []model.Line {
	parts := strings.Split(text, "\n")
	lines := make([]model.Line, 0, len(parts))
	for i, p := range parts {
		lines = append(lines, model.Line{Number: i + 1, Text: strings.TrimRight(p, "\r")})
	}
	return lines
}
