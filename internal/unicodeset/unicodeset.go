// Package unicodeset adapts the standard library's unicode range tables
// into cpset.Set values, so the parser can resolve \p{...}/\P{...} property
// escapes without carrying a generated property database of its own.
//
// The reference implementation resolves these against a table baked in at
// build time from the Unicode Character Database; this translation instead
// walks unicode.RangeTable (itself derived from the UCD at Go-toolchain
// build time), trading a fixed table for the one already inside the
// standard library.
package unicodeset

import (
	"fmt"
	"unicode"

	"github.com/coregx/esregex/cpset"
)

// Lookup resolves a \p{Name} or \p{Key=Value} property escape to a code
// point set. Supported forms: General_Category (gc), Script (sc/script),
// Script_Extensions (scx), a bare binary property name, and the
// general-category value alone (e.g. \p{Lu}).
func Lookup(key, value string) (*cpset.Set, error) {
	if value == "" {
		if rt, ok := unicode.Categories[key]; ok {
			return fromRangeTable(rt), nil
		}
		if rt, ok := unicode.Scripts[key]; ok {
			return fromRangeTable(rt), nil
		}
		if rt, ok := unicode.Properties[key]; ok {
			return fromRangeTable(rt), nil
		}
		return nil, fmt.Errorf("unicodeset: unknown property %q", key)
	}
	switch key {
	case "General_Category", "gc":
		if rt, ok := unicode.Categories[value]; ok {
			return fromRangeTable(rt), nil
		}
	case "Script", "sc", "Script_Extensions", "scx":
		if rt, ok := unicode.Scripts[value]; ok {
			return fromRangeTable(rt), nil
		}
	}
	return nil, fmt.Errorf("unicodeset: unknown property %s=%s", key, value)
}

// fromRangeTable flattens a unicode.RangeTable's R16/R32 entries into a
// cpset.Set, expanding each run's stride.
func fromRangeTable(rt *unicode.RangeTable) *cpset.Set {
	s := cpset.New()
	for _, r := range rt.R16 {
		addStride(s, uint32(r.Lo), uint32(r.Hi), uint32(r.Stride))
	}
	for _, r := range rt.R32 {
		addStride(s, r.Lo, r.Hi, r.Stride)
	}
	return s
}

func addStride(s *cpset.Set, lo, hi, stride uint32) {
	if stride <= 1 {
		s.Add(cpset.Interval{First: lo, Last: hi})
		return
	}
	for cp := lo; cp <= hi; cp += stride {
		s.AddOne(cp)
	}
}
