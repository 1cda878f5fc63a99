package parse

import (
	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/ir"
)

// characterClassType distinguishes the three ES character-class escapes
// (\d, \s, \w) so one bracket-building helper can serve all of them in
// either polarity.
type characterClassType int

const (
	classDigits characterClassType = iota
	classSpaces
	classWords
)

func digitsSet() *cpset.Set {
	s := cpset.New()
	s.Add(cpset.Interval{First: '0', Last: '9'})
	return s
}

func wordCharsSet() *cpset.Set {
	s := cpset.New()
	s.Add(cpset.Interval{First: '0', Last: '9'})
	s.Add(cpset.Interval{First: 'A', Last: 'Z'})
	s.Add(cpset.Interval{First: 'a', Last: 'z'})
	s.AddOne('_')
	return s
}

// whitespaceIntervals is the ES WhiteSpace production, plus the
// LineTerminator production (\s also matches line terminators).
var whitespaceIntervals = []cpset.Interval{
	{First: 0x9, Last: 0x9},
	{First: 0xB, Last: 0xC},
	{First: 0x20, Last: 0x20},
	{First: 0xA0, Last: 0xA0},
	{First: 0x1680, Last: 0x1680},
	{First: 0x2000, Last: 0x200A},
	{First: 0x202F, Last: 0x202F},
	{First: 0x205F, Last: 0x205F},
	{First: 0x3000, Last: 0x3000},
	{First: 0xFEFF, Last: 0xFEFF},
}

var lineTerminatorIntervals = []cpset.Interval{
	{First: 0xA, Last: 0xA},
	{First: 0xD, Last: 0xD},
	{First: 0x2028, Last: 0x2029},
}

func spacesSet() *cpset.Set {
	s := cpset.New()
	for _, iv := range whitespaceIntervals {
		s.Add(iv)
	}
	for _, iv := range lineTerminatorIntervals {
		s.Add(iv)
	}
	return s
}

// codePointsFromClass returns the code point set for a character class
// escape in the requested polarity. ES9 21.2.2.12.
func codePointsFromClass(ct characterClassType, positive bool) *cpset.Set {
	var cps *cpset.Set
	switch ct {
	case classDigits:
		cps = digitsSet()
	case classWords:
		cps = wordCharsSet()
	case classSpaces:
		cps = spacesSet()
	}
	if !positive {
		cps = cps.Inverted()
	}
	return cps
}

func makeBracketClass(ct characterClassType, positive bool) ir.Node {
	return ir.Bracket{Contents: cpset.Bracket{Invert: false, CPS: codePointsFromClass(ct, positive)}}
}
