package parse

import (
	"testing"

	"github.com/coregx/esregex/ir"
)

func mustParse(t *testing.T, pattern string, flags ir.Flags) ir.Regex {
	t.Helper()
	re, err := Parse(pattern, flags)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", pattern, err)
	}
	return re
}

func TestParseLiteral(t *testing.T) {
	re := mustParse(t, "abc", ir.Flags{})
	cat, ok := re.Root.(ir.Cat)
	if !ok {
		t.Fatalf("expected Cat root, got %#v", re.Root)
	}
	if len(cat.Children) != 4 { // a, b, c, Goal
		t.Fatalf("expected 4 children, got %d", len(cat.Children))
	}
}

func TestParseAlternation(t *testing.T) {
	re := mustParse(t, "a|b", ir.Flags{})
	cat := re.Root.(ir.Cat)
	if _, ok := cat.Children[0].(ir.Alt); !ok {
		t.Fatalf("expected Alt, got %#v", cat.Children[0])
	}
}

func TestParseCaptureGroup(t *testing.T) {
	re := mustParse(t, "(a)(?<x>b)", ir.Flags{})
	cat := re.Root.(ir.Cat)
	if _, ok := cat.Children[0].(ir.CaptureGroup); !ok {
		t.Fatalf("expected CaptureGroup, got %#v", cat.Children[0])
	}
	if _, ok := cat.Children[1].(ir.NamedCaptureGroup); !ok {
		t.Fatalf("expected NamedCaptureGroup, got %#v", cat.Children[1])
	}
}

func TestParseBackreference(t *testing.T) {
	re := mustParse(t, "(a)\\1", ir.Flags{})
	cat := re.Root.(ir.Cat)
	br, ok := cat.Children[1].(ir.BackRef)
	if !ok || br.Group != 1 {
		t.Fatalf("expected BackRef{Group:1}, got %#v", cat.Children[1])
	}
}

func TestParseNamedBackreference(t *testing.T) {
	re := mustParse(t, "(?<x>a)\\k<x>", ir.Flags{})
	cat := re.Root.(ir.Cat)
	if _, ok := cat.Children[1].(ir.BackRef); !ok {
		t.Fatalf("expected BackRef, got %#v", cat.Children[1])
	}
}

func TestParseQuantifier(t *testing.T) {
	re := mustParse(t, "a{2,5}", ir.Flags{})
	cat := re.Root.(ir.Cat)
	loop, ok := cat.Children[0].(ir.Loop)
	if !ok || loop.Quant.Min != 2 || loop.Quant.Max != 5 {
		t.Fatalf("expected Loop{2,5}, got %#v", cat.Children[0])
	}
}

func TestParseLazyQuantifier(t *testing.T) {
	re := mustParse(t, "a+?", ir.Flags{})
	cat := re.Root.(ir.Cat)
	loop := cat.Children[0].(ir.Loop)
	if loop.Quant.Greedy {
		t.Fatalf("expected non-greedy loop")
	}
}

func TestParseLookahead(t *testing.T) {
	re := mustParse(t, "a(?=b)", ir.Flags{})
	cat := re.Root.(ir.Cat)
	la, ok := cat.Children[1].(ir.LookaroundAssertion)
	if !ok || la.Backwards || la.Negate {
		t.Fatalf("expected positive forward lookaround, got %#v", cat.Children[1])
	}
}

func TestParseLookbehindReversesContents(t *testing.T) {
	re := mustParse(t, "(?<=ab)c", ir.Flags{})
	cat := re.Root.(ir.Cat)
	la := cat.Children[0].(ir.LookaroundAssertion)
	inner := la.Contents.(ir.Cat)
	if inner.Children[0].(ir.Char).C != 'b' || inner.Children[1].(ir.Char).C != 'a' {
		t.Fatalf("expected reversed contents [b,a], got %#v", inner.Children)
	}
}

func TestParseBracketClass(t *testing.T) {
	re := mustParse(t, "[a-z]", ir.Flags{})
	cat := re.Root.(ir.Cat)
	b, ok := cat.Children[0].(ir.Bracket)
	if !ok {
		t.Fatalf("expected Bracket, got %#v", cat.Children[0])
	}
	if !b.Contents.Matches('m') || b.Contents.Matches('M') {
		t.Fatalf("expected [a-z] to match 'm' but not 'M'")
	}
}

func TestParseClassSetIntersection(t *testing.T) {
	re := mustParse(t, `[\d&&[0-3]]`, ir.Flags{UnicodeSets: true})
	cat := re.Root.(ir.Cat)
	b, ok := cat.Children[0].(ir.Bracket)
	if !ok {
		t.Fatalf("expected Bracket, got %#v", cat.Children[0])
	}
	if !b.Contents.Matches('2') {
		t.Fatalf("expected [\\d&&[0-3]] to match '2'")
	}
	if b.Contents.Matches('5') {
		t.Fatalf("expected [\\d&&[0-3]] not to match '5'")
	}
	if b.Contents.Matches('a') {
		t.Fatalf("expected [\\d&&[0-3]] not to match 'a'")
	}
}

func TestParseClassSetSubtraction(t *testing.T) {
	re := mustParse(t, `[\d--[4-6]]`, ir.Flags{UnicodeSets: true})
	cat := re.Root.(ir.Cat)
	b, ok := cat.Children[0].(ir.Bracket)
	if !ok {
		t.Fatalf("expected Bracket, got %#v", cat.Children[0])
	}
	if b.Contents.Matches('5') {
		t.Fatalf("expected [\\d--[4-6]] not to match '5'")
	}
	if !b.Contents.Matches('2') || !b.Contents.Matches('9') {
		t.Fatalf("expected [\\d--[4-6]] to match '2' and '9'")
	}
}

func TestParseClassSetNestedUnion(t *testing.T) {
	re := mustParse(t, `[[a-c][x-z]]`, ir.Flags{UnicodeSets: true})
	cat := re.Root.(ir.Cat)
	b, ok := cat.Children[0].(ir.Bracket)
	if !ok {
		t.Fatalf("expected Bracket, got %#v", cat.Children[0])
	}
	if !b.Contents.Matches('b') || !b.Contents.Matches('y') {
		t.Fatalf("expected [[a-c][x-z]] to match 'b' and 'y'")
	}
	if b.Contents.Matches('m') {
		t.Fatalf("expected [[a-c][x-z]] not to match 'm'")
	}
}

func TestParseClassStringDisjunction(t *testing.T) {
	re := mustParse(t, `[\q{a|b|c}]`, ir.Flags{UnicodeSets: true})
	cat := re.Root.(ir.Cat)
	b, ok := cat.Children[0].(ir.Bracket)
	if !ok {
		t.Fatalf("expected Bracket, got %#v", cat.Children[0])
	}
	if !b.Contents.Matches('a') || !b.Contents.Matches('b') || !b.Contents.Matches('c') {
		t.Fatalf("expected [\\q{a|b|c}] to match 'a', 'b', 'c'")
	}
	if b.Contents.Matches('d') {
		t.Fatalf("expected [\\q{a|b|c}] not to match 'd'")
	}
}

func TestParseClassStringDisjunctionMultiCharRejected(t *testing.T) {
	if _, err := Parse(`[\q{ab|cd}]`, ir.Flags{UnicodeSets: true}); err == nil {
		t.Fatalf("expected error for multi-character \\q{...} alternative")
	}
}

func TestParseInvalidQuantifierOrder(t *testing.T) {
	if _, err := Parse("a{5,2}", ir.Flags{}); err == nil {
		t.Fatalf("expected error for reversed quantifier range")
	}
}

func TestParseUnbalancedParen(t *testing.T) {
	if _, err := Parse("(a", ir.Flags{}); err == nil {
		t.Fatalf("expected error for unbalanced parenthesis")
	}
}

func TestParseDuplicateGroupName(t *testing.T) {
	if _, err := Parse("(?<x>a)(?<x>b)", ir.Flags{}); err == nil {
		t.Fatalf("expected error for duplicate capture group name")
	}
}

func TestParseUnicodeEscape(t *testing.T) {
	re := mustParse(t, "\\u0041", ir.Flags{})
	cat := re.Root.(ir.Cat)
	if cat.Children[0].(ir.Char).C != 'A' {
		t.Fatalf("expected 'A', got %#v", cat.Children[0])
	}
}

func TestParseSurrogatePairEscape(t *testing.T) {
	re := mustParse(t, "\\uD83D\\uDE00", ir.Flags{Unicode: true})
	cat := re.Root.(ir.Cat)
	if cat.Children[0].(ir.Char).C != 0x1F600 {
		t.Fatalf("expected combined surrogate pair to form U+1F600, got %#v", cat.Children[0])
	}
}

func TestParseUnicodePropertyEscape(t *testing.T) {
	re := mustParse(t, "\\p{Lu}", ir.Flags{Unicode: true})
	cat := re.Root.(ir.Cat)
	b := cat.Children[0].(ir.Bracket)
	if !b.Contents.Matches('A') || b.Contents.Matches('a') {
		t.Fatalf("expected \\p{Lu} to match 'A' but not 'a'")
	}
}
