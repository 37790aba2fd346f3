// Package ident defines the identifier grammar shared by extraction and
// metrics: class prefix, optional four-letter category, discriminator.
package ident

import (
	"regexp"
	"strings"
)

// Class is the artifact class an identifier belongs to.
type Class int

const (
	Unknown Class = iota
	Stakeholder
	Requirement
	Decision
	Component
	Design
	Scenario
	Test
)

var classPrefixes = []struct {
	prefix string
	class  Class
}{
	{"StR", Stakeholder},
	{"REQ", Requirement},
	{"ADR", Decision},
	{"ARC", Component},
	{"DES", Design},
	{"QA", Scenario},
	{"TEST", Test},
}

// Prefix returns the textual class prefix ("REQ", "ADR", ...).
func (c Class) Prefix() string {
	for _, p := range classPrefixes {
		if p.class == c {
			return p.prefix
		}
	}
	return ""
}

func (c Class) String() string {
	switch c {
	case Stakeholder:
		return "stakeholder"
	case Requirement:
		return "requirement"
	case Decision:
		return "decision"
	case Component:
		return "component"
	case Design:
		return "design"
	case Scenario:
		return "scenario"
	case Test:
		return "test"
	}
	return "unknown"
}

// Classes lists every known class in prefix order.
func Classes() []Class {
	out := make([]Class, len(classPrefixes))
	for i, p := range classPrefixes {
		out[i] = p.class
	}
	return out
}

// ID is a parsed identifier.
type ID struct {
	Raw           string
	Class         Class
	Prefix        string
	Category      string // optional four-letter infix, "" when absent
	Discriminator string
}

var (
	// Tokens outside TEST are upper-case; test discriminators allow mixed
	// case (TEST-UNIT-ChannelStatusConstants).
	tokenRe     = regexp.MustCompile(`\b(?:(?:StR|REQ|ARC|ADR|QA|DES)-[A-Z0-9][A-Z0-9-]*|TEST-[A-Za-z0-9][A-Za-z0-9_-]*)`)
	lineStartRe = regexp.MustCompile(`^(?:(?:StR|REQ|ARC|ADR|QA|DES)-[A-Z0-9][A-Z0-9-]*|TEST-[A-Za-z0-9][A-Za-z0-9_-]*)`)
	categoryRe  = regexp.MustCompile(`^[A-Z]{4}$`)
	upperDiscRe = regexp.MustCompile(`^[A-Z0-9](?:[A-Z0-9-]*[A-Z0-9])?$`)
	testDiscRe  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]*[A-Za-z0-9])?$`)

	functionalRe    = regexp.MustCompile(`^REQ-(?:[A-Z]{4}-)?F-`)
	nonFunctionalRe = regexp.MustCompile(`^REQ-(?:[A-Z]{4}-)?NF-`)
)

// ClassOf returns the class of s judged by its prefix alone.
func ClassOf(s string) Class {
	for _, p := range classPrefixes {
		if strings.HasPrefix(s, p.prefix+"-") {
			return p.class
		}
	}
	return Unknown
}

// Parse parses s as a complete identifier. It reports false when s is not
// exactly one identifier.
func Parse(s string) (ID, bool) {
	class := ClassOf(s)
	if class == Unknown {
		return ID{}, false
	}
	prefix := class.Prefix()
	rest := s[len(prefix)+1:]

	discRe := upperDiscRe
	if class == Test {
		discRe = testDiscRe
	}
	if !discRe.MatchString(rest) {
		return ID{}, false
	}

	id := ID{Raw: s, Class: class, Prefix: prefix, Discriminator: rest}
	if head, tail, ok := strings.Cut(rest, "-"); ok && categoryRe.MatchString(head) && tail != "" {
		id.Category = head
		id.Discriminator = tail
	}
	return id, true
}

// FindAll returns every identifier token in text, in order of appearance.
// Duplicates are kept.
func FindAll(text string) []string {
	var out []string
	for _, loc := range tokenRe.FindAllStringIndex(text, -1) {
		// Same rule as AtLineStart: a token glued to word characters is not
		// an identifier.
		if loc[1] < len(text) && isWordByte(text[loc[1]]) {
			continue
		}
		if tok := trimToken(text[loc[0]:loc[1]]); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// FindClass returns the identifiers of class c in text.
func FindClass(text string, c Class) []string {
	var out []string
	for _, tok := range FindAll(text) {
		if ClassOf(tok) == c {
			out = append(out, tok)
		}
	}
	return out
}

// AtLineStart returns the identifier that opens line, if any.
func AtLineStart(line string) (string, bool) {
	tok := lineStartRe.FindString(line)
	if tok == "" {
		return "", false
	}
	// A token glued to more word characters is not an identifier.
	if rest := line[len(tok):]; rest != "" && isWordByte(rest[0]) {
		return "", false
	}
	tok = trimToken(tok)
	return tok, tok != ""
}

func trimToken(tok string) string {
	tok = strings.TrimRight(tok, "-_")
	if _, ok := Parse(tok); !ok {
		return ""
	}
	return tok
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Subtype splits requirements into reporting groups.
type Subtype string

const (
	Functional    Subtype = "functional"
	NonFunctional Subtype = "non_functional"
	Other         Subtype = "other"
)

// Subtypes lists requirement groups in report order.
func Subtypes() []Subtype { return []Subtype{Functional, NonFunctional, Other} }

// RequirementSubtype classifies a requirement identifier. Non-requirements
// report Other.
func RequirementSubtype(id string) Subtype {
	switch {
	case functionalRe.MatchString(id):
		return Functional
	case nonFunctionalRe.MatchString(id):
		return NonFunctional
	}
	return Other
}

// DesignKind is the design element flavour: "C" component, "I" interface,
// "D" data. It returns "" for anything else.
func DesignKind(id string) string {
	if ClassOf(id) != Design || len(id) < 6 || id[5] != '-' {
		return ""
	}
	switch k := id[4:5]; k {
	case "C", "I", "D":
		return k
	}
	return ""
}

var strictShapes = map[Class]*regexp.Regexp{
	Stakeholder: regexp.MustCompile(`^StR-(?:[A-Z]{4}-)?(?:[A-Z]+-)?\d{3}$`),
	Requirement: regexp.MustCompile(`^REQ-(?:[A-Z]{4}-)?(?:(?:F|NF)-(?:[A-Z]+-)?|(?:[A-Z]+-)+)\d{3}$`),
	Decision:    regexp.MustCompile(`^ADR-(?:[A-Z]{4}-)?\d{3}$`),
	Component:   regexp.MustCompile(`^ARC-C-(?:[A-Z]{4}-)?\d{3}$`),
	Scenario:    regexp.MustCompile(`^QA-SC-(?:[A-Z]{4}-)?\d{3}$`),
	Test:        regexp.MustCompile(`^TEST-(?:[A-Z]{4}-)?[A-Za-z0-9-]+$`),
	Design:      regexp.MustCompile(`^DES-[CID]-\d{3}$`),
}

// Conforms reports whether id follows the typed taxonomy for its class
// (three-digit numeric tail for everything but tests).
func (id ID) Conforms() bool {
	re, ok := strictShapes[id.Class]
	return ok && re.MatchString(id.Raw)
}
