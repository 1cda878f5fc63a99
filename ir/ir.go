// Package ir defines the intermediate-representation tree the parser
// produces, the optimizer rewrites, and the emitter lowers to bytecode.
//
// Node is a closed tagged union: every concrete type below is the only
// implementer of the unexported marker method, so a type switch over Node
// is exhaustive by construction, the same "sum type via sealed interface"
// idiom the rest of this codebase uses for tagged variants (e.g. the
// bytecode's own Insn union in package insn).
package ir

import (
	"math"

	"github.com/coregx/esregex/cpset"
)

// Unbounded marks a Quantifier.Max with no upper bound ({n,}).
const Unbounded = math.MaxUint32

// Node is any IR tree node.
type Node interface {
	irNode()
}

type node struct{}

func (node) irNode() {}

// Empty matches the empty string.
type Empty struct{ node }

// Goal is the terminal success marker appended at the root by the parser.
type Goal struct{ node }

// Char matches the single code point C. If ICase is true, C is already
// folded (so the emitted instruction compares against folded input too).
type Char struct {
	node
	C     uint32
	ICase bool
}

// ByteSequence matches a literal run of bytes (formed by the optimizer from
// case-sensitive literal characters).
type ByteSequence struct {
	node
	Bytes []byte
}

// ByteSet matches any one of up to 4 bytes.
type ByteSet struct {
	node
	Bytes []byte
}

// CharSet matches any one of up to 4 code points.
type CharSet struct {
	node
	Chars []uint32
}

// Cat is an ordered concatenation of children.
type Cat struct {
	node
	Children []Node
}

// Alt tries Left before Right; Left has priority.
type Alt struct {
	node
	Left, Right Node
}

// MatchAny matches any one code point, including line terminators.
type MatchAny struct{ node }

// MatchAnyExceptLineTerminator matches any one code point that is not a
// line terminator (the semantics of '.' without the dot_all flag).
type MatchAnyExceptLineTerminator struct{ node }

// AnchorType distinguishes ^ from $.
type AnchorType int

const (
	StartOfLine AnchorType = iota
	EndOfLine
)

// Anchor is a zero-width line anchor.
type Anchor struct {
	node
	Type AnchorType
}

// WordBoundary is a zero-width assertion on a word/non-word transition.
type WordBoundary struct {
	node
	Invert bool
}

// Bracket matches a single code point per cpset.Bracket's semantics.
type Bracket struct {
	node
	Contents cpset.Bracket
}

// CaptureGroup numbers and reports the range matched by Child.
type CaptureGroup struct {
	node
	Child Node
	ID    uint32
}

// NamedCaptureGroup is a CaptureGroup that also carries a source name.
type NamedCaptureGroup struct {
	node
	Child Node
	ID    uint32
	Name  string
}

// BackRef matches the text previously captured by group Group (1-based).
type BackRef struct {
	node
	Group uint32
	ICase bool
}

// LookaroundAssertion is a zero-width assertion that runs Contents without
// consuming input, in the requested direction; captures within
// [StartGroup,EndGroup) persist if the match succeeds and is not negated.
type LookaroundAssertion struct {
	node
	Negate, Backwards         bool
	StartGroup, EndGroup      uint32
	Contents                  Node
}

// Quantifier is a loop's iteration bounds and greediness.
type Quantifier struct {
	Min, Max uint32
	Greedy   bool
}

// Loop is a quantified body with zero or more enclosed capture groups.
type Loop struct {
	node
	Loopee                     Node
	Quant                      Quantifier
	EnclosedStart, EnclosedEnd uint32
}

// Loop1CharBody is a Loop whose body is known to consume exactly one code
// point and which encloses no capture groups; produced by the optimizer's
// promote1CharLoops pass.
type Loop1CharBody struct {
	node
	Loopee Node
	Quant  Quantifier
}

// Regex is the root container: the IR tree plus the flags it was parsed
// under.
type Regex struct {
	Root  Node
	Flags Flags
}

// Flags records the ES regex flag letters.
type Flags struct {
	ICase       bool
	Multiline   bool
	DotAll      bool
	Unicode     bool
	UnicodeSets bool
	NoOpt       bool
}

// MakeAlwaysFails returns a node that can never match: an empty,
// non-inverted bracket. MatchAlwaysFails recognizes this shape.
func MakeAlwaysFails() Node {
	return Bracket{Contents: cpset.Bracket{Invert: false, CPS: cpset.New()}}
}

// MatchAlwaysFails reports whether n is (or is equivalent to) the
// always-fails node produced by MakeAlwaysFails.
func MatchAlwaysFails(n Node) bool {
	switch v := n.(type) {
	case Bracket:
		return !v.Contents.Invert && v.Contents.CPS.Len() == 0
	case CharSet:
		return len(v.Chars) == 0
	case ByteSet:
		return len(v.Bytes) == 0
	default:
		return false
	}
}

// IsEmpty reports whether n is the Empty node.
func IsEmpty(n Node) bool {
	_, ok := n.(Empty)
	return ok
}

// IsCat reports whether n is a Cat node.
func IsCat(n Node) bool {
	_, ok := n.(Cat)
	return ok
}

// MatchesExactlyOneChar reports whether n is guaranteed to consume exactly
// one code point on any successful match: the precondition for
// promote1CharLoops to turn a Loop into a Loop1CharBody.
func MatchesExactlyOneChar(n Node) bool {
	switch n.(type) {
	case Char, CharSet, Bracket, MatchAny, MatchAnyExceptLineTerminator:
		return true
	default:
		return false
	}
}

// ContainsCaptureGroups reports whether n (or any descendant) is a
// CaptureGroup or NamedCaptureGroup; used to guard optimizer passes that
// would otherwise disturb user-visible group numbering.
func ContainsCaptureGroups(n Node) bool {
	found := false
	Walk(n, func(child Node, _ bool) {
		switch child.(type) {
		case CaptureGroup, NamedCaptureGroup:
			found = true
		}
	})
	return found
}

// Walk visits every node in the tree in postorder (children before
// parents), calling visit with whether the node lies within a backward
// lookaround's contents.
func Walk(n Node, visit func(n Node, inLookbehind bool) ) {
	walk(n, false, visit)
}

func walk(n Node, inLookbehind bool, visit func(Node, bool)) {
	switch v := n.(type) {
	case Cat:
		for _, c := range v.Children {
			walk(c, inLookbehind, visit)
		}
	case Alt:
		walk(v.Left, inLookbehind, visit)
		walk(v.Right, inLookbehind, visit)
	case CaptureGroup:
		walk(v.Child, inLookbehind, visit)
	case NamedCaptureGroup:
		walk(v.Child, inLookbehind, visit)
	case Loop:
		walk(v.Loopee, inLookbehind, visit)
	case Loop1CharBody:
		walk(v.Loopee, inLookbehind, visit)
	case LookaroundAssertion:
		walk(v.Contents, inLookbehind || v.Backwards, visit)
	}
	visit(n, inLookbehind)
}

// Transform rebuilds the tree in postorder, replacing each node with
// rewrite(children-already-rewritten-node, inLookbehind). This is the
// primary tool both the optimizer (one rewrite per pass) and the parser's
// lookbehind finalisation step (reversing Cat children) are built on.
func Transform(n Node, rewrite func(n Node, inLookbehind bool) Node) Node {
	return transform(n, false, rewrite)
}

func transform(n Node, inLookbehind bool, rewrite func(Node, bool) Node) Node {
	switch v := n.(type) {
	case Cat:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = transform(c, inLookbehind, rewrite)
		}
		v.Children = children
		return rewrite(v, inLookbehind)
	case Alt:
		v.Left = transform(v.Left, inLookbehind, rewrite)
		v.Right = transform(v.Right, inLookbehind, rewrite)
		return rewrite(v, inLookbehind)
	case CaptureGroup:
		v.Child = transform(v.Child, inLookbehind, rewrite)
		return rewrite(v, inLookbehind)
	case NamedCaptureGroup:
		v.Child = transform(v.Child, inLookbehind, rewrite)
		return rewrite(v, inLookbehind)
	case Loop:
		v.Loopee = transform(v.Loopee, inLookbehind, rewrite)
		return rewrite(v, inLookbehind)
	case Loop1CharBody:
		v.Loopee = transform(v.Loopee, inLookbehind, rewrite)
		return rewrite(v, inLookbehind)
	case LookaroundAssertion:
		v.Contents = transform(v.Contents, inLookbehind || v.Backwards, rewrite)
		return rewrite(v, inLookbehind)
	default:
		return rewrite(n, inLookbehind)
	}
}
