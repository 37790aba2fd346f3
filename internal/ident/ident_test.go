package ident

import (
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		ok       bool
		class    Class
		category string
		disc     string
	}{
		{"REQ-F-001", true, Requirement, "", "F-001"},
		{"REQ-AUTH-F-001", true, Requirement, "AUTH", "F-001"},
		{"StR-CORE-001", true, Stakeholder, "CORE", "001"},
		{"ADR-INFRA-001", true, Decision, "", "INFRA-001"},
		{"ARC-C-002", true, Component, "", "C-002"},
		{"DES-I-004", true, Design, "", "I-004"},
		{"QA-SC-010", true, Scenario, "", "SC-010"},
		{"TEST-LOGIN-001", true, Test, "", "LOGIN-001"},
		{"TEST-UNIT-ChannelStatusConstants", true, Test, "UNIT", "ChannelStatusConstants"},
		{"TEST-login_flow", true, Test, "", "login_flow"},
		{"REQ-", false, Unknown, "", ""},
		{"REQ-f-001", false, Unknown, "", ""},
		{"REQ-F-001-", false, Unknown, "", ""},
		{"FOO-001", false, Unknown, "", ""},
		{"STR-001", false, Unknown, "", ""},
		{"", false, Unknown, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			id, ok := Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if !ok {
				return
			}
			if id.Raw != tt.in || id.Class != tt.class || id.Category != tt.category || id.Discriminator != tt.disc {
				t.Errorf("Parse(%q) = %+v", tt.in, id)
			}
			if id.Prefix != tt.class.Prefix() {
				t.Errorf("Prefix = %q, want %q", id.Prefix, tt.class.Prefix())
			}
		})
	}
}

func TestFindAll(t *testing.T) {
	t.Parallel()

	got := FindAll("See REQ-F-001, ADR-002 and REQ-F-001. Also DES-C-001- and XREQ-F-009 and TEST-LOGIN-001.")
	want := []string{"REQ-F-001", "ADR-002", "REQ-F-001", "DES-C-001", "TEST-LOGIN-001"}
	if !slices.Equal(got, want) {
		t.Errorf("FindAll = %v, want %v", got, want)
	}
}

func TestFindAllRejectsGluedTokens(t *testing.T) {
	t.Parallel()

	text := "see REQ-F-001abc and REQ-F-002"
	got := FindAll(text)
	want := []string{"REQ-F-002"}
	if !slices.Equal(got, want) {
		t.Errorf("FindAll = %v, want %v", got, want)
	}
	if _, ok := AtLineStart("REQ-F-001abc"); ok {
		t.Error("AtLineStart accepted a glued token")
	}
}

func TestFindClass(t *testing.T) {
	t.Parallel()

	got := FindClass("TEST-A-1 verifies REQ-F-001 via DES-C-001 and REQ-NF-002", Requirement)
	want := []string{"REQ-F-001", "REQ-NF-002"}
	if !slices.Equal(got, want) {
		t.Errorf("FindClass = %v, want %v", got, want)
	}
}

func TestAtLineStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"REQ-F-001: Login works", "REQ-F-001", true},
		{"ADR-001 - Use JSON", "ADR-001", true},
		{"DES-C-001", "DES-C-001", true},
		{"REQ-F-001abc", "", false},
		{"See REQ-F-001", "", false},
		{"| REQ-F-001 |", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := AtLineStart(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AtLineStart(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequirementSubtype(t *testing.T) {
	t.Parallel()

	tests := map[string]Subtype{
		"REQ-F-001":       Functional,
		"REQ-AUTH-F-001":  Functional,
		"REQ-NF-002":      NonFunctional,
		"REQ-AUTH-NF-002": NonFunctional,
		"REQ-SEC-001":     Other,
		"ADR-001":         Other,
	}
	for id, want := range tests {
		if got := RequirementSubtype(id); got != want {
			t.Errorf("RequirementSubtype(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestDesignKind(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"DES-C-001": "C",
		"DES-I-002": "I",
		"DES-D-003": "D",
		"DES-X-001": "",
		"DES-001":   "",
		"REQ-F-001": "",
	}
	for id, want := range tests {
		if got := DesignKind(id); got != want {
			t.Errorf("DesignKind(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestConforms(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"REQ-F-001":       true,
		"REQ-AUTH-NF-002": true,
		"REQ-SEC-001":     true,
		"REQ-F-1":         false,
		"ADR-001":         true,
		"ADR-INFRA-001":   false,
		"ARC-C-002":       true,
		"ARC-002":         false,
		"QA-SC-010":       true,
		"DES-C-001":       true,
		"DES-001":         false,
		"StR-001":         true,
		"TEST-LOGIN-001":  true,
	}
	for raw, want := range tests {
		id, ok := Parse(raw)
		if !ok {
			t.Fatalf("Parse(%q) failed", raw)
		}
		if got := id.Conforms(); got != want {
			t.Errorf("Conforms(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestClassOrder(t *testing.T) {
	t.Parallel()

	classes := Classes()
	if len(classes) != 7 || classes[0] != Stakeholder || classes[6] != Test {
		t.Errorf("Classes() = %v", classes)
	}
	if Unknown.String() != "unknown" || Scenario.String() != "scenario" {
		t.Error("unexpected class names")
	}
}
