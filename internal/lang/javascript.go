package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	Languages["javascript"] = &Language{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs"},
		lang:       javascript.GetLanguage(),
	}
	Languages["typescript"] = &Language{
		Name:       "typescript",
		Extensions: []string{".ts"},
		lang:       typescript.GetLanguage(),
	}
}
