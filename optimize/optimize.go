// Package optimize rewrites an IR tree into an equivalent but faster-to-run
// shape: literal folding, loop unrolling, bracket simplification,
// case-insensitive character unfolding, and single-character-loop
// promotion.
//
// Optimize runs simplifyBrackets once, then loops the remaining passes to a
// fix point: each full pass over the tree either changes something (loop
// again) or doesn't (done). Every pass preserves the match set of the
// pattern over every input; see DESIGN.md for the per-pass grounding.
package optimize

import (
	"unicode/utf8"

	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/fold"
	"github.com/coregx/esregex/ir"
)

// MaxCharSetLength bounds the CharSet node the optimizer will produce.
const MaxCharSetLength = 4

// LoopUnrollThreshold is the largest Quantifier.Min an unquantified loop
// will be unrolled for.
const LoopUnrollThreshold = 5

// Optimize rewrites r.Root to a fix point and returns the rewritten regex.
// If r.Flags.NoOpt is set, the tree is returned unchanged (the spec's
// escape hatch for debugging/benchmarking comparisons).
func Optimize(r ir.Regex) ir.Regex {
	if r.Flags.NoOpt {
		return r
	}
	root := simplifyBrackets(r.Root)
	for {
		changed := false
		root, changed = applyAll(root, r.Flags)
		if !changed {
			break
		}
	}
	return ir.Regex{Root: root, Flags: r.Flags}
}

func applyAll(root ir.Node, flags ir.Flags) (ir.Node, bool) {
	anyChanged := false
	passes := []func(ir.Node, ir.Flags) (ir.Node, bool){
		decat,
		removeEmpties,
		propagateEarlyFails,
		unfoldICaseChars,
		unrollLoops,
		promote1CharLoops,
		formLiteralBytes,
	}
	for _, pass := range passes {
		var changed bool
		root, changed = pass(root, flags)
		anyChanged = anyChanged || changed
	}
	return root, anyChanged
}

// simplifyBrackets reduces a non-inverted Bracket with few code points to a
// CharSet, and inverts a Bracket whose complement has fewer intervals (a
// smaller AsciiBracket/Bracket table entry downstream). Run once: it is not
// part of the fix-point loop because repeated inversion would oscillate.
func simplifyBrackets(root ir.Node) ir.Node {
	return ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		b, ok := n.(ir.Bracket)
		if !ok {
			return n
		}
		if !b.Contents.Invert && b.Contents.CPS.CountCodePoints() <= MaxCharSetLength {
			chars := make([]uint32, 0, MaxCharSetLength)
			for _, iv := range b.Contents.CPS.Intervals() {
				for cp := iv.First; cp <= iv.Last; cp++ {
					chars = append(chars, cp)
					if cp == cpset.CodePointMax {
						break
					}
				}
			}
			if len(chars) > 0 {
				return ir.CharSet{Chars: chars}
			}
			return n
		}
		inv := b.Contents.CPS.Inverted()
		if inv.Len() < b.Contents.CPS.Len() {
			return ir.Bracket{Contents: cpset.Bracket{Invert: !b.Contents.Invert, CPS: inv}}
		}
		return n
	})
}

// decat flattens nested Cat nodes, drops Empty children, and unwraps
// single-element Cat into its sole child.
func decat(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		cat, ok := n.(ir.Cat)
		if !ok {
			return n
		}
		var flat []ir.Node
		for _, c := range cat.Children {
			if inner, ok := c.(ir.Cat); ok {
				flat = append(flat, inner.Children...)
				changed = true
				continue
			}
			if ir.IsEmpty(c) {
				changed = true
				continue
			}
			flat = append(flat, c)
		}
		if len(flat) == 1 {
			changed = true
			return flat[0]
		}
		if len(flat) == 0 {
			changed = true
			return ir.Empty{}
		}
		if len(flat) != len(cat.Children) {
			changed = true
		}
		return ir.Cat{Children: flat}
	})
	return out, changed
}

// removeEmpties drops Empty children of Cat (redundant with decat but kept
// distinct per the reference pass list), removes empty positive
// lookarounds, and removes loops whose body is Empty or whose maximum
// iteration count is zero, unless the loop encloses capture groups (whose
// numbering and reset behaviour must survive even when they can never
// iterate).
func removeEmpties(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		switch v := n.(type) {
		case ir.Cat:
			kept := make([]ir.Node, 0, len(v.Children))
			for _, c := range v.Children {
				if !ir.IsEmpty(c) {
					kept = append(kept, c)
				}
			}
			if len(kept) != len(v.Children) {
				changed = true
				return ir.Cat{Children: kept}
			}
			return n
		case ir.LookaroundAssertion:
			if !v.Negate && ir.IsEmpty(v.Contents) {
				changed = true
				return ir.Empty{}
			}
			return n
		case ir.Loop:
			encloses := v.EnclosedStart != v.EnclosedEnd
			if (ir.IsEmpty(v.Loopee) || v.Quant.Max == 0) && !encloses {
				changed = true
				return ir.Empty{}
			}
			return n
		default:
			return n
		}
	})
	return out, changed
}

// propagateEarlyFails replaces a Cat or Alt whose operands always fail with
// an always-fail node (Cat), or with the surviving operand (Alt, when
// exactly one side always fails). Skipped for any node containing capture
// groups, since replacing it would change user-visible group numbering.
func propagateEarlyFails(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		if ir.ContainsCaptureGroups(n) {
			return n
		}
		switch v := n.(type) {
		case ir.Cat:
			for _, c := range v.Children {
				if ir.MatchAlwaysFails(c) {
					changed = true
					return ir.MakeAlwaysFails()
				}
			}
			return n
		case ir.Alt:
			lFails := ir.MatchAlwaysFails(v.Left)
			rFails := ir.MatchAlwaysFails(v.Right)
			if lFails && rFails {
				changed = true
				return ir.MakeAlwaysFails()
			}
			if lFails {
				changed = true
				return v.Right
			}
			if rFails {
				changed = true
				return v.Left
			}
			return n
		default:
			return n
		}
	})
	return out, changed
}

// unfoldICaseChars replaces a case-insensitive single Char with the set of
// all code points folding to the same value: a CharSet when that set is
// small, a Bracket when it is large, or a plain (non-icase) Char when the
// fold closure is trivial.
func unfoldICaseChars(root ir.Node, flags ir.Flags) (ir.Node, bool) {
	if !flags.ICase {
		return root, false
	}
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		c, ok := n.(ir.Char)
		if !ok || !c.ICase {
			return n
		}
		s := cpset.New()
		s.AddOne(c.C)
		closure := fold.Closure(s)
		count := closure.CountCodePoints()
		changed = true
		if count == 1 {
			return ir.Char{C: c.C, ICase: false}
		}
		if count <= MaxCharSetLength {
			var chars []uint32
			for _, iv := range closure.Intervals() {
				for cp := iv.First; cp <= iv.Last; cp++ {
					chars = append(chars, cp)
					if cp == cpset.CodePointMax {
						break
					}
				}
			}
			return ir.CharSet{Chars: chars}
		}
		return ir.Bracket{Contents: cpset.Bracket{Invert: false, CPS: closure}}
	})
	return out, changed
}

// unrollLoops replicates a loop's body Min times (Min in [1,5], no enclosed
// captures) as a straight-line Cat, leaving a residual loop of {0,Max-Min}
// behind when further iterations remain possible.
func unrollLoops(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		loop, ok := n.(ir.Loop)
		if !ok {
			return n
		}
		if loop.EnclosedStart != loop.EnclosedEnd {
			return n
		}
		if loop.Quant.Min < 1 || loop.Quant.Min > LoopUnrollThreshold {
			return n
		}
		changed = true
		children := make([]ir.Node, loop.Quant.Min)
		for i := range children {
			children[i] = duplicate(loop.Loopee)
		}
		var residual ir.Node
		if loop.Quant.Max == ir.Unbounded {
			residual = ir.Loop{
				Loopee:        loop.Loopee,
				Quant:         ir.Quantifier{Min: 0, Max: ir.Unbounded, Greedy: loop.Quant.Greedy},
				EnclosedStart: loop.EnclosedStart, EnclosedEnd: loop.EnclosedEnd,
			}
		} else if loop.Quant.Max > loop.Quant.Min {
			residual = ir.Loop{
				Loopee:        loop.Loopee,
				Quant:         ir.Quantifier{Min: 0, Max: loop.Quant.Max - loop.Quant.Min, Greedy: loop.Quant.Greedy},
				EnclosedStart: loop.EnclosedStart, EnclosedEnd: loop.EnclosedEnd,
			}
		}
		if residual != nil {
			children = append(children, residual)
		}
		if len(children) == 1 {
			return children[0]
		}
		return ir.Cat{Children: children}
	})
	return out, changed
}

// duplicate deep-copies a capture-group-free subtree; callers must have
// already verified the subtree encloses no capture groups.
func duplicate(n ir.Node) ir.Node {
	switch v := n.(type) {
	case ir.Cat:
		children := make([]ir.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = duplicate(c)
		}
		return ir.Cat{Children: children}
	case ir.Alt:
		return ir.Alt{Left: duplicate(v.Left), Right: duplicate(v.Right)}
	case ir.Loop:
		return ir.Loop{Loopee: duplicate(v.Loopee), Quant: v.Quant, EnclosedStart: v.EnclosedStart, EnclosedEnd: v.EnclosedEnd}
	case ir.Loop1CharBody:
		return ir.Loop1CharBody{Loopee: duplicate(v.Loopee), Quant: v.Quant}
	case ir.LookaroundAssertion:
		return ir.LookaroundAssertion{
			Negate: v.Negate, Backwards: v.Backwards,
			StartGroup: v.StartGroup, EndGroup: v.EndGroup,
			Contents: duplicate(v.Contents),
		}
	default:
		return n
	}
}

// promote1CharLoops rewrites a capture-free Loop whose body matches exactly
// one code point into the specialised Loop1CharBody the matcher's SCM
// driver (package backtrack) executes without per-iteration backtrack-stack
// churn.
func promote1CharLoops(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := ir.Transform(root, func(n ir.Node, _ bool) ir.Node {
		loop, ok := n.(ir.Loop)
		if !ok {
			return n
		}
		if loop.EnclosedStart != loop.EnclosedEnd {
			return n
		}
		if !ir.MatchesExactlyOneChar(loop.Loopee) {
			return n
		}
		changed = true
		return ir.Loop1CharBody{Loopee: loop.Loopee, Quant: loop.Quant}
	})
	return out, changed
}

// formLiteralBytes replaces case-sensitive literal characters with their
// UTF-8 encoding (ByteSequence), replaces all-ASCII CharSets with ByteSet,
// and merges adjacent ByteSequence siblings within a Cat. Inside a backward
// lookaround's contents the Cat's children are already in reversed (parsed
// lookbehind) order, so the merge concatenates in the opposite direction to
// keep the resulting byte run in forward UTF-8 order (see DESIGN.md).
func formLiteralBytes(root ir.Node, _ ir.Flags) (ir.Node, bool) {
	changed := false
	out := formLiteralBytesRec(root, false, &changed)
	return out, changed
}

func formLiteralBytesRec(n ir.Node, inLookbehind bool, changed *bool) ir.Node {
	switch v := n.(type) {
	case ir.Cat:
		children := make([]ir.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = formLiteralBytesRec(c, inLookbehind, changed)
		}
		merged := mergeByteSequences(children, inLookbehind)
		if len(merged) != len(children) {
			*changed = true
		}
		if len(merged) == 1 {
			return merged[0]
		}
		return ir.Cat{Children: merged}
	case ir.Alt:
		return ir.Alt{
			Left:  formLiteralBytesRec(v.Left, inLookbehind, changed),
			Right: formLiteralBytesRec(v.Right, inLookbehind, changed),
		}
	case ir.CaptureGroup:
		v.Child = formLiteralBytesRec(v.Child, inLookbehind, changed)
		return v
	case ir.NamedCaptureGroup:
		v.Child = formLiteralBytesRec(v.Child, inLookbehind, changed)
		return v
	case ir.Loop:
		v.Loopee = formLiteralBytesRec(v.Loopee, inLookbehind, changed)
		return v
	case ir.Loop1CharBody:
		v.Loopee = formLiteralBytesRec(v.Loopee, inLookbehind, changed)
		return v
	case ir.LookaroundAssertion:
		v.Contents = formLiteralBytesRec(v.Contents, inLookbehind || v.Backwards, changed)
		return v
	case ir.Char:
		if v.ICase {
			return v
		}
		*changed = true
		buf := make([]byte, utf8.UTFMax)
		n := utf8.EncodeRune(buf, rune(v.C))
		return ir.ByteSequence{Bytes: buf[:n]}
	case ir.CharSet:
		allASCII := true
		for _, c := range v.Chars {
			if c > 127 {
				allASCII = false
				break
			}
		}
		if !allASCII || len(v.Chars) == 0 {
			return v
		}
		*changed = true
		bytes := make([]byte, len(v.Chars))
		for i, c := range v.Chars {
			bytes[i] = byte(c)
		}
		return ir.ByteSet{Bytes: bytes}
	default:
		return n
	}
}

func mergeByteSequences(children []ir.Node, inLookbehind bool) []ir.Node {
	var out []ir.Node
	for _, c := range children {
		bs, ok := c.(ir.ByteSequence)
		if !ok || len(out) == 0 {
			out = append(out, c)
			continue
		}
		prev, ok2 := out[len(out)-1].(ir.ByteSequence)
		if !ok2 {
			out = append(out, c)
			continue
		}
		var merged []byte
		if inLookbehind {
			merged = append(append(merged, bs.Bytes...), prev.Bytes...)
		} else {
			merged = append(append(merged, prev.Bytes...), bs.Bytes...)
		}
		out[len(out)-1] = ir.ByteSequence{Bytes: merged}
	}
	return out
}
