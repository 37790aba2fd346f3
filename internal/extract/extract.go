// Package extract recognizes identifier definitions and references in a
// single text blob. It holds no state across blobs: each call returns a
// Contribution that the index builder folds into the corpus index.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/traceguide/internal/config"
	"github.com/phobologic/traceguide/internal/ident"
	"github.com/phobologic/traceguide/internal/model"
	"github.com/phobologic/traceguide/internal/parse"
)

// Kind says which scan policy applies to a blob.
type Kind int

const (
	// Document is a governance document: front matter plus line definitions.
	Document Kind = iota
	// TestSource is scanned leniently for test identifiers.
	TestSource
	// Source is scanned only for design and requirement references.
	Source
)

func (k Kind) String() string {
	switch k {
	case Document:
		return "document"
	case TestSource:
		return "test"
	case Source:
		return "source"
	}
	return "unknown"
}

// Blob is one file's text tagged with its slash-separated path.
type Blob struct {
	Path string
	Kind Kind
	Text string
	// Comments holds the comment lines of a parsed source file. It is nil
	// when no grammar was available for the file.
	Comments []model.Line
}

// Candidate is a definition found in a blob.
type Candidate struct {
	ID          string
	Title       string
	Line        int
	References  []string
	Fingerprint string
}

// Contribution is everything one blob adds to the index.
type Contribution struct {
	Path        string
	Kind        Kind
	Definitions []Candidate
	Source      *model.SourceArtifact
	// Skipped is set for guidance files and blobs whose extraction failed.
	Skipped    bool
	Advisories []string
}

// Extractor applies the configured extraction policy. It is safe for
// concurrent use.
type Extractor struct {
	placeholders        []*regexp.Regexp
	annotation          *regexp.Regexp
	guidance            map[string]bool
	testsCommentsOnly   bool
	sourcesCommentsOnly bool
	strict              bool
}

// New compiles an Extractor from cfg.
func New(cfg *config.Config) (*Extractor, error) {
	e := &Extractor{
		guidance:            make(map[string]bool),
		testsCommentsOnly:   cfg.Tests.CommentsOnly,
		sourcesCommentsOnly: cfg.Sources.CommentsOnly,
		strict:              cfg.StrictIDs,
	}
	for _, p := range cfg.Placeholders {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling placeholder %q: %w", p, err)
		}
		e.placeholders = append(e.placeholders, re)
	}
	if len(cfg.Tests.Annotations) > 0 {
		quoted := make([]string, len(cfg.Tests.Annotations))
		for i, a := range cfg.Tests.Annotations {
			quoted[i] = regexp.QuoteMeta(a)
		}
		e.annotation = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\s*:\s*(.*)`)
	}
	for _, s := range cfg.Exclude.SpecTypes {
		e.guidance[strings.ToLower(s)] = true
	}
	return e, nil
}

// Extract scans one blob. A panic inside extraction is recovered and
// reported as an advisory on a skipped contribution.
func (e *Extractor) Extract(b Blob) (c Contribution) {
	defer func() {
		if r := recover(); r != nil {
			c = Contribution{
				Path:       b.Path,
				Kind:       b.Kind,
				Skipped:    true,
				Advisories: []string{fmt.Sprintf("%s: extraction failed: %v", b.Path, r)},
			}
		}
	}()

	switch b.Kind {
	case TestSource:
		return e.extractTests(b)
	case Source:
		return e.extractSource(b)
	}
	return e.extractDocument(b)
}

// StripPlaceholders removes template sentinel identifiers from text.
func (e *Extractor) StripPlaceholders(text string) string {
	for _, re := range e.placeholders {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

func (e *Extractor) extractDocument(b Blob) Contribution {
	c := Contribution{Path: b.Path, Kind: Document}
	text := e.StripPlaceholders(b.Text)
	stem := fileStem(b.Path)

	fm, bodyStart, err := frontMatter(text)
	if err != nil {
		c.Advisories = append(c.Advisories, fmt.Sprintf("%s: malformed front matter, using key:value fallback: %v", b.Path, err))
	}
	if st := fmString(fm, "specType"); st != "" && e.guidance[strings.ToLower(st)] {
		c.Skipped = true
		return c
	}

	seen := make(map[string]bool)
	primary := fmString(fm, "id")
	if primary != "" {
		if _, ok := ident.Parse(primary); ok {
			title := fmString(fm, "title")
			if title == "" {
				title = stem
			}
			c.Definitions = append(c.Definitions, newCandidate(primary, title, 0, text))
			seen[primary] = true
		} else {
			c.Advisories = append(c.Advisories, fmt.Sprintf("%s: front matter id %q is not an identifier", b.Path, primary))
		}
	}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		if i < bodyStart {
			continue
		}
		raw = strings.TrimRight(raw, "\r")
		line := strings.TrimSpace(strings.Trim(raw, "# "))
		id, ok := ident.AtLineStart(line)
		if !ok || seen[id] {
			continue
		}
		// Test items are authoritative only in test sources.
		if ident.ClassOf(id) == ident.Test {
			continue
		}
		seen[id] = true
		title := strings.Trim(line[len(id):], " -:,")
		if title == "" {
			title = stem
		}
		c.Definitions = append(c.Definitions, newCandidate(id, title, i+1, raw))
	}

	if e.strict {
		for _, d := range c.Definitions {
			if parsed, _ := ident.Parse(d.ID); !parsed.Conforms() {
				c.Advisories = append(c.Advisories, fmt.Sprintf("%s: %s does not follow the %s naming scheme", location(b.Path, d.Line), d.ID, parsed.Class))
			}
		}
	}
	return c
}

func (e *Extractor) extractTests(b Blob) Contribution {
	c := Contribution{Path: b.Path, Kind: TestSource}
	stem := fileStem(b.Path)

	lines := b.Comments
	if !e.testsCommentsOnly || lines == nil {
		lines = parse.AllLines(b.Text)
	}

	var pending []string
	for _, l := range lines {
		text := e.StripPlaceholders(l.Text)
		if e.annotation != nil {
			// The same line may also carry the test id it annotates.
			if m := e.annotation.FindStringSubmatch(text); m != nil {
				pending = ident.FindClass(m[1], ident.Requirement)
			}
		}
		tids := ident.FindClass(text, ident.Test)
		if len(tids) == 0 {
			continue
		}
		refs := uniqueSorted(append(append([]string(nil), pending...), ident.FindClass(text, ident.Requirement)...), "")
		for _, tid := range tids {
			c.Definitions = append(c.Definitions, Candidate{
				ID:          tid,
				Title:       stem,
				Line:        l.Number,
				References:  refs,
				Fingerprint: Fingerprint(tid + text),
			})
		}
		pending = nil
	}
	c.Source = e.sourceArtifact(b.Path, lines)
	return c
}

func (e *Extractor) extractSource(b Blob) Contribution {
	c := Contribution{Path: b.Path, Kind: Source}

	lines := b.Comments
	if !e.sourcesCommentsOnly || lines == nil {
		lines = parse.AllLines(b.Text)
	}

	c.Source = e.sourceArtifact(b.Path, lines)
	return c
}

// sourceArtifact collects the design and requirement references in lines.
// Test sources count as source artifacts too. It returns nil when there
// are none.
func (e *Extractor) sourceArtifact(path string, lines []model.Line) *model.SourceArtifact {
	var refs []string
	for _, l := range lines {
		for _, tok := range ident.FindAll(e.StripPlaceholders(l.Text)) {
			switch ident.ClassOf(tok) {
			case ident.Design, ident.Requirement:
				refs = append(refs, tok)
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return &model.SourceArtifact{Path: path, References: uniqueSorted(refs, "")}
}

func newCandidate(id, title string, line int, scope string) Candidate {
	return Candidate{
		ID:          id,
		Title:       title,
		Line:        line,
		References:  uniqueSorted(ident.FindAll(scope), id),
		Fingerprint: Fingerprint(scope),
	}
}

// Fingerprint returns a short content hash of a text scope.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// uniqueSorted returns the sorted set of ids, without self. The result is
// never nil so that empty reference sets serialize as [].
func uniqueSorted(ids []string, self string) []string {
	set := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == self || set[id] {
			continue
		}
		set[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func location(p string, line int) string {
	if line == 0 {
		return p
	}
	return fmt.Sprintf("%s:%d", p, line)
}

func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n`)

// frontMatter parses a leading YAML block. It returns the metadata, the
// zero-based index of the first body line, and a parse error when the block
// was not valid YAML (the metadata then comes from a lenient key:value
// split).
func frontMatter(text string) (map[string]any, int, error) {
	m := frontMatterRe.FindStringSubmatchIndex(text)
	if m == nil {
		return nil, 0, nil
	}
	block := text[m[2]:m[3]]
	bodyStart := strings.Count(text[:m[1]], "\n")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return lenientFrontMatter(block), bodyStart, err
	}
	return fm, bodyStart, nil
}

func lenientFrontMatter(block string) map[string]any {
	fm := make(map[string]any)
	for _, line := range strings.Split(block, "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			fm[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return fm
}

func fmString(fm map[string]any, key string) string {
	v, ok := fm[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
