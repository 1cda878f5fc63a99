// Package insn defines the bytecode the emitter produces and the backtrack
// matcher executes: a flat instruction list plus a start predicate used to
// skip ahead to the first position a match could possibly begin.
//
// The reference implementation monomorphizes ByteSeq/ByteSet instructions
// over fixed-size arrays ([u8; 1] through [u8; 16]) to avoid a heap
// allocation per instruction. Go slices already carry a length and incur
// one allocation regardless of instruction shape, so this translation
// collapses all of those into a single ByteSeq{Bytes []byte} variant (see
// the insn entry in DESIGN.md). A ByteSeq instruction holds a literal run of
// any length; no size ceiling applies to it.
package insn

import (
	"github.com/coregx/ahocorasick"

	"github.com/coregx/esregex/bytesearch"
	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/ir"
)

// MaxByteSeqLength is the longest literal run a ByteSeqN start predicate
// carries in full (see package startpredicate).
const MaxByteSeqLength = 16

// MaxByteSetLength bounds a ByteSet2/3/4 instruction.
const MaxByteSetLength = 4

// MaxCharSetLength bounds a CharSet instruction; also the largest
// case-insensitive fold-closure the optimizer will leave unexpanded.
const MaxCharSetLength = 4

// JumpTarget is an absolute index into a CompiledRegex's Insns.
type JumpTarget uint32

// LoopFields parameterises an EnterLoop instruction.
type LoopFields struct {
	LoopID   uint32
	MinIters uint32
	MaxIters uint32
	Greedy   bool
	Exit     JumpTarget
}

// Insn is a closed tagged union of bytecode instructions, the same sealed
// sum-type idiom as ir.Node.
type Insn interface {
	insnNode()
}

type insnBase struct{}

func (insnBase) insnNode() {}

// Goal marks a successful match.
type Goal struct{ insnBase }

// Char matches a single code point.
type Char struct {
	insnBase
	C uint32
}

// CharICase matches a single code point case-insensitively (C is already
// folded).
type CharICase struct {
	insnBase
	C uint32
}

// StartOfLine matches '^'.
type StartOfLine struct{ insnBase }

// EndOfLine matches '$'.
type EndOfLine struct{ insnBase }

// MatchAny matches any code point, line terminators included.
type MatchAny struct{ insnBase }

// MatchAnyExceptLineTerminator matches any code point except a line
// terminator.
type MatchAnyExceptLineTerminator struct{ insnBase }

// EnterLoop begins a loop from outside it.
type EnterLoop struct {
	insnBase
	Fields LoopFields
}

// LoopAgain re-enters a loop at Begin.
type LoopAgain struct {
	insnBase
	Begin JumpTarget
}

// Loop1CharBody attempts [Min,Max] repetitions of the single-char-matcher
// instruction immediately following this one.
type Loop1CharBody struct {
	insnBase
	MinIters, MaxIters uint32
	Greedy             bool
}

// Jump unconditionally sets the instruction pointer to Target.
type Jump struct {
	insnBase
	Target JumpTarget
}

// Alt tries the next instruction first; on failure, jumps to Secondary.
type Alt struct {
	insnBase
	Secondary JumpTarget
}

// BeginCaptureGroup records the current position as the start of group ID.
type BeginCaptureGroup struct {
	insnBase
	ID uint32
}

// EndCaptureGroup records the current position as the end of group ID.
type EndCaptureGroup struct {
	insnBase
	ID uint32
}

// ResetCaptureGroup clears group ID back to unmatched.
type ResetCaptureGroup struct {
	insnBase
	ID uint32
}

// BackRef matches the text previously captured by group Group.
type BackRef struct {
	insnBase
	Group uint32
	ICase bool
}

// Bracket matches the next code point against Contents.
type Bracket struct {
	insnBase
	Contents cpset.Bracket
}

// AsciiBracket is a 128-bit bitmap bracket specialised for ASCII-only
// patterns.
type AsciiBracket struct {
	insnBase
	Bitmap bytesearch.AsciiBitmap
}

// Lookahead runs a zero-width forward assertion whose body starts at the
// next instruction; matching resumes at Continuation afterwards.
type Lookahead struct {
	insnBase
	Negate               bool
	StartGroup, EndGroup uint32
	Continuation         JumpTarget
}

// Lookbehind runs a zero-width backward assertion whose body starts at the
// next instruction; matching resumes at Continuation afterwards.
type Lookbehind struct {
	insnBase
	Negate               bool
	StartGroup, EndGroup uint32
	Continuation         JumpTarget
}

// WordBoundary matches (or, if Invert, fails on) a \w/\W transition.
type WordBoundary struct {
	insnBase
	Invert bool
}

// CharSet matches any of up to MaxCharSetLength code points.
type CharSet struct {
	insnBase
	Chars []uint32
}

// ByteSet matches any of 2-4 raw bytes.
type ByteSet struct {
	insnBase
	Bytes []byte
}

// ByteSeq matches a literal run of raw bytes of any length.
type ByteSeq struct {
	insnBase
	Bytes []byte
}

// JustFail never matches; produced for an empty ByteSet or CharSet.
type JustFail struct{ insnBase }

// StartPredicate is a concrete, resolved prefix filter the matcher's
// prefix-search loop uses to skip ahead to the next position a match could
// begin.
type StartPredicate interface {
	startPredicateNode()
}

type startPredicateBase struct{}

func (startPredicateBase) startPredicateNode() {}

// Arbitrary means no useful prefix filter exists; every position must be
// tried.
type Arbitrary struct{ startPredicateBase }

// ByteSeqN looks for a short literal byte run.
type ByteSeqN struct {
	startPredicateBase
	Bytes []byte
}

// ByteSetN looks for any of 2-4 specific bytes.
type ByteSetN struct {
	startPredicateBase
	Bytes []byte
}

// ByteBracket looks for any byte matching a 256-bit bitmap.
type ByteBracket struct {
	startPredicateBase
	Bitmap bytesearch.ByteBitmap
}

// MultiSequence looks for any of several literal byte runs via a shared
// Aho-Corasick automaton; not present in the reference implementation (see
// SPEC_FULL.md's domain-stack wiring for github.com/coregx/ahocorasick).
// It fires for a top-level alternation of three or more distinct literal
// branches, where the reference's pairwise disjunction would collapse to a
// coarse byte-set predicate after the first two.
type MultiSequence struct {
	startPredicateBase
	Automaton *ahocorasick.Automaton
}

// CompiledRegex is the output of package emit and the input package
// backtrack executes.
type CompiledRegex struct {
	Insns             []Insn
	StartPred         StartPredicate
	Loops             uint32
	Groups            uint32
	NamedGroupIndices map[string]uint32
	Flags             ir.Flags
}
