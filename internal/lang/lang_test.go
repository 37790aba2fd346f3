package lang

import (
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".go", "go"},
		{".cpp", "cpp"},
		{".hpp", "cpp"},
		{".h", "c"},
		{".ts", "typescript"},
		{".md", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"go", "python", "ruby", "c", "cpp", "javascript", "typescript"} {
		l, ok := Languages[name]
		if !ok {
			t.Errorf("%s language not registered", name)
			continue
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s language is nil", name)
		}
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	p := Languages["cpp"].NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestGetCommentQuery(t *testing.T) {
	t.Parallel()

	for name, l := range Languages {
		q, err := l.GetCommentQuery()
		if err != nil {
			t.Fatalf("GetCommentQuery(%s): %v", name, err)
		}
		if q == nil {
			t.Fatalf("%s query is nil", name)
		}
	}
}
