// Package index reads a discovered corpus and folds per-file extraction
// results into the identifier index.
package index

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/discover"
	"github.com/phobologic/traceguide/internal/extract"
	"github.com/phobologic/traceguide/internal/lang"
	"github.com/phobologic/traceguide/internal/model"
	"github.com/phobologic/traceguide/internal/parse"
)

type job struct {
	entry discover.FileEntry
	kind  extract.Kind
}

type parserPair struct {
	parser *sitter.Parser
	query  *sitter.Query
}

// Read loads every corpus file into a blob. Files that cannot be read,
// are too large, or are not valid UTF-8 are skipped with an advisory.
// Blobs come back in corpus order: documents, then tests, then sources.
func Read(ctx context.Context, root string, corpus *discover.Corpus, cfg *config.Config, logger *slog.Logger) ([]extract.Blob, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var jobs []job
	for _, e := range corpus.Documents {
		jobs = append(jobs, job{e, extract.Document})
	}
	for _, e := range corpus.Tests {
		jobs = append(jobs, job{e, extract.TestSource})
	}
	for _, e := range corpus.Sources {
		jobs = append(jobs, job{e, extract.Source})
	}
	if len(jobs) == 0 {
		return nil, nil, nil
	}

	numWorkers := cfg.Jobs
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	blobs := make([]extract.Blob, len(jobs))
	ok := make([]bool, len(jobs))
	advisories := make([][]string, len(jobs))

	work := make(chan int, len(jobs))
	for i := range jobs {
		work <- i
	}
	close(work)

	g, gCtx := errgroup.WithContext(ctx)
	for range numWorkers {
		g.Go(func() error {
			// Each goroutine gets its own parsers
			parsers := make(map[string]*parserPair)

			for idx := range work {
				if err := gCtx.Err(); err != nil {
					return err
				}
				j := jobs[idx]
				blob, advs, read := readOne(gCtx, root, j, cfg, parsers)
				blobs[idx], ok[idx], advisories[idx] = blob, read, advs
				logger.Debug("read file", slog.String("path", j.entry.Path), slog.String("kind", j.kind.String()), slog.Bool("ok", read))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("reading corpus: %w", err)
	}

	var out []extract.Blob
	var advs []string
	for i := range jobs {
		advs = append(advs, advisories[i]...)
		if ok[i] {
			out = append(out, blobs[i])
		}
	}
	return out, advs, nil
}

func readOne(ctx context.Context, root string, j job, cfg *config.Config, parsers map[string]*parserPair) (extract.Blob, []string, bool) {
	abs := filepath.Join(root, filepath.FromSlash(j.entry.Path))

	if cfg.MaxFileSize > 0 {
		if fi, err := os.Stat(abs); err == nil && fi.Size() > cfg.MaxFileSize {
			return extract.Blob{}, []string{fmt.Sprintf("%s: skipped (>%d bytes)", j.entry.Path, cfg.MaxFileSize)}, false
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return extract.Blob{}, []string{fmt.Sprintf("%s: unreadable: %v", j.entry.Path, err)}, false
	}
	if !utf8.Valid(data) {
		return extract.Blob{}, []string{fmt.Sprintf("%s: skipped (not valid UTF-8)", j.entry.Path)}, false
	}
	data = stripBOM(data)

	blob := extract.Blob{Path: j.entry.Path, Kind: j.kind, Text: string(data)}

	wantComments := (j.kind == extract.TestSource && cfg.Tests.CommentsOnly) ||
		(j.kind == extract.Source && cfg.Sources.CommentsOnly)
	if !wantComments || j.entry.Language == "" {
		return blob, nil, true
	}

	pp, found := parsers[j.entry.Language]
	if !found {
		l := lang.Languages[j.entry.Language]
		q, err := l.GetCommentQuery()
		if err != nil {
			return blob, []string{fmt.Sprintf("failed to compile query for %s: %v", j.entry.Language, err)}, true
		}
		pp = &parserPair{parser: l.NewParser(), query: q}
		parsers[j.entry.Language] = pp
	}

	lines, err := parse.CommentLines(ctx, pp.parser, pp.query, data)
	if err != nil {
		// Fall back to scanning every line.
		return blob, []string{fmt.Sprintf("%s: failed to parse: %v", j.entry.Path, err)}, true
	}
	if lines == nil {
		lines = []model.Line{}
	}
	blob.Comments = lines
	return blob, nil, true
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}

// Build extracts every blob and folds the contributions into an index.
// Blobs are ordered documents, tests, sources and by path within each kind
// before folding, so the first definition of an identifier in that order
// wins regardless of the order blobs were supplied in. Build is pure.
func Build(blobs []extract.Blob, ex *extract.Extractor) (*model.Index, []string) {
	sorted := make([]extract.Blob, len(blobs))
	copy(sorted, blobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return sorted[i].Path < sorted[j].Path
	})

	contribs := make([]extract.Contribution, len(sorted))
	for i, b := range sorted {
		contribs[i] = ex.Extract(b)
	}
	return Fold(contribs)
}

// Fold merges contributions in order. The first definition of an
// identifier becomes the item; later definitions only increment its
// duplicate count, and their references are discarded.
func Fold(contribs []extract.Contribution) (*model.Index, []string) {
	idx := &model.Index{
		Items:        []model.Item{},
		DuplicateIDs: []string{},
	}
	definedIn := make(map[string]string)
	counts := make(map[string]int)
	var advisories []string

	for _, c := range contribs {
		advisories = append(advisories, c.Advisories...)
		if c.Skipped {
			continue
		}
		for _, d := range c.Definitions {
			if first, dup := definedIn[d.ID]; dup {
				if counts[d.ID] == 0 {
					counts[d.ID] = 1
					idx.DuplicateIDs = append(idx.DuplicateIDs, d.ID)
				}
				counts[d.ID]++
				advisories = append(advisories, fmt.Sprintf("duplicate definition of %s in %s (keeping %s)", d.ID, location(c.Path, d.Line), first))
				continue
			}
			definedIn[d.ID] = location(c.Path, d.Line)
			refs := d.References
			if refs == nil {
				refs = []string{}
			}
			idx.Items = append(idx.Items, model.Item{
				ID:          d.ID,
				Title:       d.Title,
				Source:      c.Path,
				Line:        d.Line,
				References:  refs,
				Fingerprint: d.Fingerprint,
			})
		}
		if c.Source != nil {
			idx.Sources = append(idx.Sources, *c.Source)
		}
	}

	if len(counts) > 0 {
		idx.DuplicateCounts = counts
	}
	return idx, advisories
}

func location(path string, line int) string {
	if line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d", path, line)
}
