package lang

import (
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

func init() {
	Languages["c"] = &Language{
		Name:       "c",
		Extensions: []string{".c", ".h"},
		lang:       c.GetLanguage(),
	}
	// Headers default to C; C++ comment syntax is a superset for our purposes.
	Languages["cpp"] = &Language{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		lang:       cpp.GetLanguage(),
	}
}
