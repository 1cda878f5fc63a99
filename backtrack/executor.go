package backtrack

import (
	"github.com/coregx/esregex/bytesearch"
	"github.com/coregx/esregex/input"
	"github.com/coregx/esregex/insn"
	"github.com/coregx/esregex/simd"
)

// CaptureRange is one capture group's matched byte range within the
// subject passed to Executor, or Matched=false if the group never
// participated in the match.
type CaptureRange struct {
	Start, End int
	Matched    bool
}

// Match is one successful match attempt: its overall range plus every
// capture group's range, indexed the same way insn.CompiledRegex numbers
// them (0-based).
type Match struct {
	Start, End int
	Captures   []CaptureRange
}

// Executor runs a compiled pattern's prefix-search loop: it repeatedly asks
// the start predicate where the next candidate position is, attempts a full
// match there, and on failure advances by one position and retries.
type Executor struct {
	re *insn.CompiledRegex
}

// NewExecutor returns an Executor for re.
func NewExecutor(re *insn.CompiledRegex) *Executor {
	return &Executor{re: re}
}

// multiSequenceSearcher adapts an ahocorasick automaton to bytesearch.Searcher.
type multiSequenceSearcher struct {
	m insn.MultiSequence
}

func (s multiSequenceSearcher) FindIn(haystack []byte) (int, bool) {
	match := s.m.Automaton.Find(haystack, 0)
	if match == nil {
		return 0, false
	}
	return match.Start, true
}

// findInAt finds the next candidate start position at or after at, in the
// vein of bytesearch.Searcher but offset into the haystack. It reuses
// Searcher.FindIn by slicing, translating the returned index back to an
// absolute offset.
func findInAt(s bytesearch.Searcher, haystack []byte, at int) (int, bool) {
	i, ok := s.FindIn(haystack[at:])
	if !ok {
		return 0, false
	}
	return at + i, true
}

// prefixSearcher returns the concrete byte searcher for the compiled
// pattern's start predicate.
func (e *Executor) prefixSearcher() bytesearch.Searcher {
	switch p := e.re.StartPred.(type) {
	case insn.Arbitrary:
		return bytesearch.EmptyString{}
	case insn.ByteSeqN:
		switch len(p.Bytes) {
		case 0:
			return bytesearch.EmptyString{}
		case 1:
			return bytesearch.ByteSeq1{B: p.Bytes[0]}
		default:
			return bytesearch.ByteSeq{Bytes: p.Bytes}
		}
	case insn.ByteSetN:
		switch len(p.Bytes) {
		case 2:
			return bytesearch.ByteSet2{B1: p.Bytes[0], B2: p.Bytes[1]}
		case 3:
			return bytesearch.ByteSet3{B1: p.Bytes[0], B2: p.Bytes[1], B3: p.Bytes[2]}
		default:
			return bytesearch.ByteSet4{B1: p.Bytes[0], B2: p.Bytes[1], B3: p.Bytes[2], B4: p.Bytes[3]}
		}
	case insn.ByteBracket:
		bm := p.Bitmap
		return &bm
	case insn.MultiSequence:
		return multiSequenceSearcher{m: p}
	default:
		return bytesearch.EmptyString{}
	}
}

// newCursor picks the indexer appropriate for haystack: AsciiInput if every
// byte is ASCII, Utf8Input otherwise. The all-ASCII check runs through
// simd.IsASCII, which is SIMD-accelerated on AMD64 and SWAR-accelerated
// elsewhere, since this check runs once per Executor call over the whole
// haystack and a byte-by-byte loop here would give away the AsciiInput
// fast path's own reason for existing.
func newCursor(haystack []byte) input.Cursor {
	if simd.IsASCII(haystack) {
		return input.NewForwardCursor(input.NewAsciiInput(haystack))
	}
	return input.NewForwardCursor(input.NewUtf8Input(haystack))
}

// NextMatch searches haystack for the next match starting at or after
// start, returning ok=false if none exists.
func (e *Executor) NextMatch(haystack []byte, start int) (Match, bool) {
	c := newCursor(haystack)
	searcher := e.prefixSearcher()
	nextStart := start

	for nextStart <= len(haystack) {
		candidate, found := findInAt(searcher, haystack, nextStart)
		if !found {
			return Match{}, false
		}

		m := newMatcher(e.re)
		endPos, ok := m.tryAtPos(0, input.Position(candidate), c)
		if ok {
			return buildMatch(m, candidate, int(endPos)), true
		}

		next, ok := c.Idx.IndexAfterInc(input.Position(candidate))
		if !ok {
			return Match{}, false
		}
		nextStart = int(next)
	}
	return Match{}, false
}

// AllMatches returns every non-overlapping match in haystack, in order.
func (e *Executor) AllMatches(haystack []byte) []Match {
	var out []Match
	c := newCursor(haystack)
	pos := 0
	for pos <= len(haystack) {
		m, ok := e.NextMatch(haystack, pos)
		if !ok {
			break
		}
		out = append(out, m)
		if m.End == m.Start {
			next, ok := c.Idx.IndexAfterInc(input.Position(m.End))
			if !ok {
				break
			}
			pos = int(next)
		} else {
			pos = m.End
		}
	}
	return out
}

func buildMatch(m *matcher, start, end int) Match {
	caps := make([]CaptureRange, len(m.s.groups))
	for i, g := range m.s.groups {
		if s, e, ok := g.AsRange(); ok {
			caps[i] = CaptureRange{Start: int(s), End: int(e), Matched: true}
		}
	}
	return Match{Start: start, End: end, Captures: caps}
}
