package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phobologic/traceguide/internal/config"
)

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiscoverClassifies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "02-requirements/b.md", "REQ-F-002")
	writeFile(t, dir, "02-requirements/a.md", "REQ-F-001")
	writeFile(t, dir, "04-design/components.md", "DES-C-001")
	writeFile(t, dir, "tests/login_test.cpp", "// TEST-LOGIN-001")
	writeFile(t, dir, "src/session.cpp", "// DES-C-001")
	writeFile(t, dir, "src/session_test.py", "# TEST-SESSION-001")
	writeFile(t, dir, "notes.txt", "REQ-F-009")

	corpus, err := Files(dir, config.Default())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if want := []string{"02-requirements/a.md", "02-requirements/b.md", "04-design/components.md"}; !equal(paths(corpus.Documents), want) {
		t.Errorf("Documents = %v, want %v", paths(corpus.Documents), want)
	}
	if want := []string{"src/session_test.py", "tests/login_test.cpp"}; !equal(paths(corpus.Tests), want) {
		t.Errorf("Tests = %v, want %v", paths(corpus.Tests), want)
	}
	if want := []string{"src/session.cpp"}; !equal(paths(corpus.Sources), want) {
		t.Errorf("Sources = %v, want %v", paths(corpus.Sources), want)
	}

	if corpus.Tests[1].Language != "cpp" {
		t.Errorf("language = %q, want cpp", corpus.Tests[1].Language)
	}
	if corpus.Documents[0].Language != "" {
		t.Errorf("document language = %q, want empty", corpus.Documents[0].Language)
	}
}

func TestDiscoverExcludesGuidance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "02-requirements/REQ-F-001.md", "x")
	writeFile(t, dir, "02-requirements/README.md", "x")
	writeFile(t, dir, "02-requirements/user-story-template.md", "x")
	writeFile(t, dir, "02-requirements/spec-kit-templates/req.md", "x")
	writeFile(t, dir, "02-requirements/requirements-spec.md", "x")

	corpus, err := Files(dir, config.Default())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if want := []string{"02-requirements/REQ-F-001.md"}; !equal(paths(corpus.Documents), want) {
		t.Errorf("Documents = %v, want %v", paths(corpus.Documents), want)
	}
	if len(corpus.Excluded) != 4 {
		t.Errorf("Excluded = %v, want 4 entries", corpus.Excluded)
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/main.py", "pass")
	writeFile(t, dir, "node_modules/pkg.js", "pass")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")
	writeFile(t, dir, "build/spec-index.json", "{}")
	writeFile(t, dir, "build/gen.cpp", "// REQ-F-001")

	corpus, err := Files(dir, config.Default())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if want := []string{"src/main.py"}; !equal(paths(corpus.Sources), want) {
		t.Errorf("Sources = %v, want %v", paths(corpus.Sources), want)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "src/a.go", "package a")
	writeFile(t, dir, "generated/b.go", "package b")

	corpus, err := Files(dir, config.Default())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if want := []string{"src/a.go"}; !equal(paths(corpus.Sources), want) {
		t.Errorf("Sources = %v, want %v", paths(corpus.Sources), want)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/real.py", "pass")

	err := os.Symlink(filepath.Join(dir, "src", "real.py"), filepath.Join(dir, "src", "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	corpus, err := Files(dir, config.Default())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if want := []string{"src/real.py"}; !equal(paths(corpus.Sources), want) {
		t.Errorf("Sources = %v, want %v", paths(corpus.Sources), want)
	}
}

func TestExcluded(t *testing.T) {
	t.Parallel()

	ex := config.Default().Exclude
	cases := []struct {
		path string
		want bool
	}{
		{"02-requirements/REQ-F-001.md", false},
		{"02-requirements/ADR-template.md", true},
		{"02-requirements/Readme.md", true},
		{"docs/guide.md", true},
		{"03-architecture/spec-kit-templates/arc.md", true},
		{"03-architecture/architecture-spec.md", true},
		{".github/copilot-instructions.md", true},
	}
	for _, tc := range cases {
		if got := Excluded(tc.path, ex); got != tc.want {
			t.Errorf("Excluded(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		want bool
	}{
		{"tests/test_scenes.py", true},
		{"spec/models/user_spec.rb", true},
		{"src/__tests__/foo.js", true},
		{"src/test/java/FooTest.java", true},
		{"internal/graph/graph_test.go", true},
		{"test_helpers.py", true},
		{"foo.test.js", true},
		{"foo.spec.ts", true},
		{"src/session.cpp", false},
		{"internal/graph/graph.go", false},
		{"testing_utils.go", false},
		{"Test.java", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			got := IsTestFile(tc.path)
			if got != tc.want {
				t.Errorf("IsTestFile(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
