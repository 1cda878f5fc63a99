package unicodeset

import "testing"

func TestLookupGeneralCategory(t *testing.T) {
	s, err := Lookup("Lu", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Contains('A') || s.Contains('a') {
		t.Fatalf("expected Lu to contain 'A' but not 'a'")
	}
}

func TestLookupScript(t *testing.T) {
	s, err := Lookup("Script", "Greek")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Contains('α') {
		t.Fatalf("expected Greek script to contain alpha")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("NotAProperty", ""); err == nil {
		t.Fatalf("expected error for unknown property")
	}
}
