// Package startpredicate computes a fast prefix filter for a compiled
// pattern: a cheap test that rules out most positions before the full
// backtracking matcher is asked to try them there.
//
// compute walks the IR bottom-up building an AbstractStartPredicate (no
// predicate yet committed to a concrete shape); resolve then picks the
// smallest concrete insn.StartPredicate variant that represents it.
package startpredicate

import (
	"github.com/coregx/ahocorasick"

	"github.com/coregx/esregex/bytesearch"
	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/insn"
	"github.com/coregx/esregex/ir"
)

// minMultiSequenceBranches is the smallest top-level alternation width
// worth handing to an Aho-Corasick automaton instead of the reference's
// pairwise byte-set disjunction (which loses literal-run information after
// the first merge).
const minMultiSequenceBranches = 3

// utf8FirstByte returns the first byte of cp's UTF-8 encoding.
func utf8FirstByte(cp uint32) byte {
	switch {
	case cp < 0x80:
		return byte(cp)
	case cp < 0x800:
		return byte(cp>>6&0x1F) | 0b1100_0000
	case cp < 0x10000:
		return byte(cp>>12&0x0F) | 0b1110_0000
	default:
		return byte(cp>>18&0x07) | 0b1111_0000
	}
}

// cpsToFirstByteBitmap builds a bitmap of every possible first UTF-8 byte
// of any code point in cps.
func cpsToFirstByteBitmap(cps *cpset.Set) *bytesearch.ByteBitmap {
	bm := &bytesearch.ByteBitmap{}
	for _, iv := range cps.Intervals() {
		lo, hi := utf8FirstByte(iv.First), utf8FirstByte(iv.Last)
		for b := int(lo); b <= int(hi); b++ {
			bm.Set(byte(b))
		}
	}
	return bm
}

// abstractKind tags an abstractPredicate's shape.
type abstractKind int

const (
	abstractArbitrary abstractKind = iota
	abstractSequence
	abstractSet
)

// abstractPredicate is the not-yet-resolved shape of a start predicate,
// built bottom-up over the IR tree.
type abstractPredicate struct {
	kind abstractKind
	seq  []byte
	set  *bytesearch.ByteBitmap
}

var arbitrary = &abstractPredicate{kind: abstractArbitrary}

func sequenceOf(b []byte) *abstractPredicate {
	return &abstractPredicate{kind: abstractSequence, seq: b}
}

func setOf(bm *bytesearch.ByteBitmap) *abstractPredicate {
	return &abstractPredicate{kind: abstractSet, set: bm}
}

// disjunction combines two predicates so the result matches whatever either
// side would have matched: a shared literal prefix if both are sequences
// with one, otherwise a byte set.
func disjunction(x, y *abstractPredicate) *abstractPredicate {
	if x.kind == abstractArbitrary || y.kind == abstractArbitrary {
		return arbitrary
	}
	if x.kind == abstractSequence && y.kind == abstractSequence {
		n := 0
		for n < len(x.seq) && n < len(y.seq) && x.seq[n] == y.seq[n] {
			n++
		}
		if n > 0 {
			return sequenceOf(x.seq[:n])
		}
		bm := &bytesearch.ByteBitmap{}
		bm.Set(x.seq[0])
		bm.Set(y.seq[0])
		return setOf(bm)
	}
	if x.kind == abstractSet && y.kind == abstractSet {
		merged := *x.set
		merged.Union(y.set)
		return setOf(&merged)
	}
	if x.kind == abstractSet && y.kind == abstractSequence {
		merged := *x.set
		merged.Set(y.seq[0])
		return setOf(&merged)
	}
	// x is Sequence, y is Set.
	merged := *y.set
	merged.Set(x.seq[0])
	return setOf(&merged)
}

// resolve picks a concrete insn.StartPredicate for an abstractPredicate.
func (p *abstractPredicate) resolve() insn.StartPredicate {
	switch p.kind {
	case abstractSequence:
		switch {
		case len(p.seq) == 0:
			return insn.Arbitrary{}
		case len(p.seq) <= insn.MaxByteSeqLength:
			return insn.ByteSeqN{Bytes: append([]byte{}, p.seq...)}
		default:
			return insn.ByteSeqN{Bytes: append([]byte{}, p.seq[:4]...)}
		}
	case abstractSet:
		switch p.set.Count() {
		case 0:
			return insn.Arbitrary{}
		case 1:
			return insn.ByteSeqN{Bytes: []byte{firstSetByte(p.set)}}
		case 2:
			return insn.ByteSetN{Bytes: twoSetBytes(p.set)}
		default:
			return insn.ByteBracket{Bitmap: *p.set}
		}
	default:
		return insn.Arbitrary{}
	}
}

func firstSetByte(bm *bytesearch.ByteBitmap) byte {
	for b := 0; b < 256; b++ {
		if bm.Contains(byte(b)) {
			return byte(b)
		}
	}
	return 0
}

func twoSetBytes(bm *bytesearch.ByteBitmap) []byte {
	var out []byte
	for b := 0; b < 256 && len(out) < 2; b++ {
		if bm.Contains(byte(b)) {
			out = append(out, byte(b))
		}
	}
	return out
}

// compute returns the abstract predicate for n, or nil if n is a lookaround
// assertion or a Cat made only of them (imposing no positional constraint at
// all). Anchors and word boundaries yield arbitrary, not nil.
func compute(n ir.Node) *abstractPredicate {
	switch v := n.(type) {
	case ir.ByteSequence:
		return sequenceOf(v.Bytes)
	case ir.ByteSet:
		bm := &bytesearch.ByteBitmap{}
		for _, b := range v.Bytes {
			bm.Set(b)
		}
		return setOf(bm)
	case ir.Empty, ir.Goal, ir.BackRef:
		return arbitrary
	case ir.CharSet:
		bm := &bytesearch.ByteBitmap{}
		for _, c := range v.Chars {
			bm.Set(utf8FirstByte(c))
		}
		return setOf(bm)
	case ir.Char:
		return arbitrary
	case ir.Cat:
		for _, c := range v.Children {
			if p := compute(c); p != nil {
				return p
			}
		}
		return nil
	case ir.MatchAny, ir.MatchAnyExceptLineTerminator:
		return arbitrary
	case ir.Anchor, ir.WordBoundary:
		return arbitrary
	case ir.CaptureGroup:
		return compute(v.Child)
	case ir.NamedCaptureGroup:
		return compute(v.Child)
	case ir.LookaroundAssertion:
		return nil
	case ir.Loop:
		if v.Quant.Min > 0 {
			return compute(v.Loopee)
		}
		return arbitrary
	case ir.Loop1CharBody:
		if v.Quant.Min > 0 {
			return compute(v.Loopee)
		}
		return arbitrary
	case ir.Alt:
		x, y := compute(v.Left), compute(v.Right)
		if x != nil && y != nil {
			return disjunction(x, y)
		}
		return arbitrary
	case ir.Bracket:
		cps := v.Contents.CPS
		if v.Contents.Invert {
			cps = cps.Inverted()
		}
		return setOf(cpsToFirstByteBitmap(cps))
	default:
		return arbitrary
	}
}

// collectAltLiteralSequences flattens a right-associated chain of Alt nodes
// (the shape parse.makeAlt builds) into its branch list, provided every
// branch begins with a non-empty literal ByteSequence. Returns nil if any
// branch doesn't qualify.
func collectAltLiteralSequences(n ir.Node) [][]byte {
	var branches []ir.Node
	cur := n
	for {
		alt, ok := cur.(ir.Alt)
		if !ok {
			branches = append(branches, cur)
			break
		}
		branches = append(branches, alt.Left)
		cur = alt.Right
	}
	if len(branches) < minMultiSequenceBranches {
		return nil
	}
	out := make([][]byte, len(branches))
	for i, b := range branches {
		lit := leadingLiteral(b)
		if lit == nil {
			return nil
		}
		out[i] = lit
	}
	return out
}

// leadingLiteral returns the literal bytes a branch must start with, or nil
// if the branch doesn't begin with one (a ByteSequence, or a Cat whose
// first child is one).
func leadingLiteral(n ir.Node) []byte {
	switch v := n.(type) {
	case ir.ByteSequence:
		if len(v.Bytes) == 0 {
			return nil
		}
		return v.Bytes
	case ir.Cat:
		if len(v.Children) == 0 {
			return nil
		}
		return leadingLiteral(v.Children[0])
	default:
		return nil
	}
}

// effectiveRoot strips the trailing ir.Goal sentinel that parse.Parse
// always appends as the last child of the root ir.Cat, which decat never
// removes since ir.IsEmpty only matches
// Empty, not Goal. Without this, collectAltLiteralSequences always sees the
// wrapping Cat rather than a top-level ir.Alt chain.
func effectiveRoot(n ir.Node) ir.Node {
	cat, ok := n.(ir.Cat)
	if !ok {
		return n
	}
	children := cat.Children
	if len(children) > 0 {
		if _, ok := children[len(children)-1].(ir.Goal); ok {
			children = children[:len(children)-1]
		}
	}
	switch len(children) {
	case 0:
		return ir.Empty{}
	case 1:
		return children[0]
	default:
		return ir.Cat{Children: children}
	}
}

// PredicateForRegex returns the resolved start predicate for re.
func PredicateForRegex(re ir.Regex) insn.StartPredicate {
	if lits := collectAltLiteralSequences(effectiveRoot(re.Root)); lits != nil {
		builder := ahocorasick.NewBuilder()
		for _, lit := range lits {
			builder.AddPattern(lit)
		}
		if automaton, err := builder.Build(); err == nil {
			return insn.MultiSequence{Automaton: automaton}
		}
	}
	p := compute(re.Root)
	if p == nil {
		return insn.Arbitrary{}
	}
	return p.resolve()
}
