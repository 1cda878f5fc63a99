package esregex

import (
	"reflect"
	"testing"
)

// End-to-end scenarios from the specification's TESTABLE PROPERTIES section.

func TestFindDigitRun(t *testing.T) {
	re := MustCompile(`\d+`, "")
	loc := re.FindStringIndex("Price: $123")
	if loc == nil || loc[0] != 8 || loc[1] != 11 {
		t.Fatalf("expected [8,11), got %v", loc)
	}
	if got := re.FindString("Price: $123"); got != "123" {
		t.Fatalf("expected %q, got %q", "123", got)
	}
}

func TestFindTwoWordGroups(t *testing.T) {
	re := MustCompile(`(\w+)\s+(\w+)`, "")
	groups := re.FindStringSubmatchIndex("hello world")
	want := []int{0, 11, 0, 5, 6, 11}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("expected %v, got %v", want, groups)
	}
}

func TestFindLookbehind(t *testing.T) {
	re := MustCompile(`(?<=efg)..`, "")
	loc := re.FindStringIndex("abcdefghijk123456")
	if loc == nil || loc[0] != 7 || loc[1] != 9 {
		t.Fatalf("expected [7,9), got %v", loc)
	}
	if got := re.FindString("abcdefghijk123456"); got != "hi" {
		t.Fatalf("expected %q, got %q", "hi", got)
	}
}

func TestFindNegativeLookbehindAtStart(t *testing.T) {
	re := MustCompile(`(?<!abc)\w\w\w`, "")
	if got := re.FindString("abcdef"); got != "abc" {
		t.Fatalf("expected %q, got %q", "abc", got)
	}
}

func TestFindAllMultilineAnchors(t *testing.T) {
	re := MustCompile(`^\d`, "m")
	matches := re.FindAllString("aaa\n789\r\nccc\r\n345", -1)
	want := []string{"7", "3"}
	if !reflect.DeepEqual(matches, want) {
		t.Fatalf("expected %v, got %v", want, matches)
	}
}

func TestFindNonCaptureAltWithEndAnchor(t *testing.T) {
	re := MustCompile(`(?:a|bc)g$`, "")
	loc := re.FindStringIndex("zimbcg")
	if loc == nil || loc[0] != 3 || loc[1] != 6 {
		t.Fatalf("expected [3,6), got %v", loc)
	}
}

func TestFindAllMultilineCapturesAroundCR(t *testing.T) {
	re := MustCompile(`(a*)^(a*)$`, "m")
	loc := re.FindStringSubmatchIndex("aa\raaa")
	want := []int{0, 2, 0, 0, 0, 2}
	if !reflect.DeepEqual(loc, want) {
		t.Fatalf("expected %v, got %v", want, loc)
	}
}

func TestMatchAndMatchString(t *testing.T) {
	re := MustCompile(`hello`, "i")
	if !re.MatchString("HELLO world") {
		t.Fatalf("expected case-insensitive match")
	}
	if re.MatchString("goodbye world") {
		t.Fatalf("expected no match")
	}
}

func TestFindAllNonOverlapping(t *testing.T) {
	re := MustCompile(`ab`, "")
	matches := re.FindAllString("ababab", -1)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(matches), matches)
	}
}

func TestFindAllLimit(t *testing.T) {
	re := MustCompile(`a`, "")
	matches := re.FindAllString("aaaa", 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestFindSubmatchUnmatchedGroup(t *testing.T) {
	re := MustCompile(`(a)|(b)`, "")
	groups := re.FindStringSubmatch("b")
	if len(groups) != 3 || groups[0] != "b" || groups[1] != "" || groups[2] != "b" {
		t.Fatalf("unexpected groups: %#v", groups)
	}
	idx := re.FindStringSubmatchIndex("b")
	if idx[2] != -1 || idx[3] != -1 {
		t.Fatalf("expected unmatched group to be [-1,-1], got [%d,%d]", idx[2], idx[3])
	}
}

func TestBackreference(t *testing.T) {
	re := MustCompile(`(\w+) \1`, "")
	if !re.MatchString("echo echo") {
		t.Fatalf("expected backreference match")
	}
	if re.MatchString("echo foxtrot") {
		t.Fatalf("expected no backreference match")
	}
}

func TestNamedCaptureGroupIndex(t *testing.T) {
	re := MustCompile(`(?<year>\d{4})-(?<month>\d{2})`, "")
	if idx := re.SubexpIndex("year"); idx != 1 {
		t.Fatalf("expected year at index 1, got %d", idx)
	}
	if idx := re.SubexpIndex("month"); idx != 2 {
		t.Fatalf("expected month at index 2, got %d", idx)
	}
	if idx := re.SubexpIndex("nope"); idx != -1 {
		t.Fatalf("expected -1 for unknown group, got %d", idx)
	}
}

func TestNumSubexp(t *testing.T) {
	re := MustCompile(`(\w+)@(\w+)\.(\w+)`, "")
	if re.NumSubexp() != 3 {
		t.Fatalf("expected 3 subexpressions, got %d", re.NumSubexp())
	}
}

func TestStringReturnsPattern(t *testing.T) {
	re := MustCompile(`\d{3}-\d{4}`, "")
	if re.String() != `\d{3}-\d{4}` {
		t.Fatalf("expected pattern text, got %q", re.String())
	}
}

func TestCompileInvalidPatternReturnsError(t *testing.T) {
	_, err := Compile(`(unbalanced`, "")
	if err == nil {
		t.Fatalf("expected a compile error")
	}
	var ce *CompileError
	if ok := asCompileError(err, &ce); !ok {
		t.Fatalf("expected a *CompileError, got %T", err)
	}
	if ce.Pattern != "(unbalanced" {
		t.Fatalf("expected Pattern to be preserved, got %q", ce.Pattern)
	}
}

func asCompileError(err error, target **CompileError) bool {
	ce, ok := err.(*CompileError)
	if ok {
		*target = ce
	}
	return ok
}

func TestMustCompilePanicsOnInvalidPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustCompile to panic")
		}
	}()
	MustCompile(`a{5,2}`, "")
}

func TestQuantifierMinGreaterThanMaxIsParseError(t *testing.T) {
	if _, err := Compile(`a{5,2}`, ""); err == nil {
		t.Fatalf("expected a parse error for {min>max}")
	}
}

func TestDotAllFlag(t *testing.T) {
	without := MustCompile(`a.b`, "")
	if without.MatchString("a\nb") {
		t.Fatalf("expected '.' without dot_all to not match newline")
	}
	withDotAll := MustCompile(`a.b`, "s")
	if !withDotAll.MatchString("a\nb") {
		t.Fatalf("expected '.' with dot_all to match newline")
	}
}

func TestWordBoundaryMissingNeighbourIsNonWord(t *testing.T) {
	re := MustCompile(`\bcat`, "")
	if !re.MatchString("cat") {
		t.Fatalf("expected match at start of input (no left neighbour)")
	}
}

func TestEmptyMatchAdvancesByOneCodePoint(t *testing.T) {
	re := MustCompile(`a*`, "")
	matches := re.FindAllStringIndex("bbb", -1)
	if len(matches) != 4 {
		t.Fatalf("expected 4 zero-width matches over 3 non-'a' bytes, got %d: %v", len(matches), matches)
	}
}
