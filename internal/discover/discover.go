// Package discover finds the documents, test sources and implementation
// sources of a traceability corpus.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/lang"
)

// FileEntry represents a discovered file.
type FileEntry struct {
	Path     string // Slash-separated, relative to the corpus root
	Language string // tree-sitter language name, "" for documents and unsupported files
}

// Corpus is the classified file set, each list in lexicographic path order.
type Corpus struct {
	Documents []FileEntry
	Tests     []FileEntry
	Sources   []FileEntry
	// Excluded lists files that matched a document, test or source rule but
	// were removed as guidance or templates.
	Excluded []string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
	"vendor":        {},
	"third_party":   {},
}

type rule struct {
	dirs []string
	exts map[string]struct{}
}

func newRule(dirs, exts []string) rule {
	r := rule{exts: make(map[string]struct{}, len(exts))}
	for _, d := range dirs {
		r.dirs = append(r.dirs, strings.Trim(filepath.ToSlash(d), "/"))
	}
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.exts[strings.ToLower(e)] = struct{}{}
	}
	return r
}

func (r rule) matches(rel string) bool {
	if _, ok := r.exts[strings.ToLower(path.Ext(rel))]; !ok {
		return false
	}
	for _, d := range r.dirs {
		if d == "." || d == "" || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}

// Files discovers and classifies the corpus under root. Generated output
// directories named in cfg are never scanned.
func Files(root string, cfg *config.Config) (*Corpus, error) {
	docs := newRule(cfg.Docs.Dirs, cfg.Docs.Extensions)
	tests := newRule(cfg.Tests.Dirs, cfg.Tests.Extensions)
	sources := newRule(cfg.Sources.Dirs, cfg.Sources.Extensions)

	generated := []string{
		strings.Trim(filepath.ToSlash(cfg.Output.Dir), "/"),
		strings.Trim(filepath.ToSlash(cfg.Output.Reports), "/"),
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	corpus := &Corpus{}

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			for _, g := range generated {
				if g != "" && g != "." && rel == g {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		var list *[]FileEntry
		switch {
		case docs.matches(rel):
			list = &corpus.Documents
		case tests.matches(rel):
			list = &corpus.Tests
		case sources.matches(rel):
			list = &corpus.Sources
			if IsTestFile(rel) {
				list = &corpus.Tests
			}
		default:
			return nil
		}

		if Excluded(rel, cfg.Exclude) {
			corpus.Excluded = append(corpus.Excluded, rel)
			return nil
		}

		entry := FileEntry{Path: rel}
		if list != &corpus.Documents {
			entry.Language = lang.ForExtension(strings.ToLower(path.Ext(rel)))
		}
		*list = append(*list, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, list := range [][]FileEntry{corpus.Documents, corpus.Tests, corpus.Sources} {
		sort.Slice(list, func(i, j int) bool {
			return list[i].Path < list[j].Path
		})
	}
	sort.Strings(corpus.Excluded)

	return corpus, nil
}

// Excluded reports whether rel is a guidance or template file: it matches
// an exclusion glob, its name contains an excluded fragment, or it is a
// README.
func Excluded(rel string, ex config.ExcludeConfig) bool {
	name := strings.ToLower(path.Base(rel))
	if strings.HasPrefix(name, "readme") {
		return true
	}
	for _, frag := range ex.NameContains {
		if frag != "" && strings.Contains(name, strings.ToLower(frag)) {
			return true
		}
	}
	for _, g := range ex.Globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// IsTestFile reports whether a source path follows a test naming
// convention, so tests kept beside the code they exercise are scanned as
// test sources.
func IsTestFile(rel string) bool {
	for _, part := range strings.Split(path.Dir(rel), "/") {
		switch part {
		case "tests", "test", "__tests__", "spec":
			return true
		}
	}
	name := path.Base(rel)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	switch {
	case strings.HasSuffix(stem, "_test"), strings.HasSuffix(stem, "_spec"):
		return true
	case strings.HasPrefix(stem, "test_"):
		return true
	case strings.HasSuffix(stem, ".test"), strings.HasSuffix(stem, ".spec"):
		return true
	case strings.HasSuffix(stem, "Test") && stem != "Test":
		return true
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
