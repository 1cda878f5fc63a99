// Package emit lowers an optimized IR tree into the flat bytecode package
// insn defines: a single pass over the tree using an explicit work stack
// (rather than recursion) so continuation instructions — the ones a node
// can only fully parameterize after its children have been emitted, like a
// loop's exit target or an alternation's jump-past-primary target — get
// back-patched once the relevant subtree finishes.
package emit

import (
	"github.com/coregx/esregex/bytesearch"
	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/insn"
	"github.com/coregx/esregex/internal/conv"
	"github.com/coregx/esregex/ir"
	"github.com/coregx/esregex/startpredicate"
)

// work is the emitter's internal stack item: either a tree node still to be
// visited, or a continuation to run once everything pushed before it (later
// popped, since the stack is LIFO) has been emitted.
type work interface {
	isWork()
}

type workBase struct{}

func (workBase) isWork() {}

type workNode struct {
	workBase
	n ir.Node
}

type workLoopFinish struct {
	workBase
	loopInsn int
}

type workLookaroundFinish struct {
	workBase
	lookaroundInsn int
}

type workAltMiddle struct {
	workBase
	altInsn int
	right   ir.Node
}

type workAltFinish struct {
	workBase
	altInsn, jumpInsn int
}

type workEndCaptureGroup struct {
	workBase
	group uint32
}

// emitter holds the state threaded through a single emit pass.
type emitter struct {
	insns       []insn.Insn
	nextLoopID  uint32
	loops       uint32
	groups      uint32
	namedGroups map[string]uint32
}

func (e *emitter) next() insn.JumpTarget {
	return insn.JumpTarget(conv.IntToUint32(len(e.insns)))
}

func (e *emitter) push(i insn.Insn) insn.JumpTarget {
	idx := e.next()
	e.insns = append(e.insns, i)
	return idx
}

// bracketAsASCII returns a 128-bit bitmap for a non-inverted bracket whose
// contents lie entirely within ASCII, or ok=false otherwise. Inverted
// brackets are assumed to admit non-ASCII code points and are never
// specialized this way.
func bracketAsASCII(b cpset.Bracket) (bytesearch.AsciiBitmap, bool) {
	var bm bytesearch.AsciiBitmap
	if b.Invert {
		return bm, false
	}
	for _, iv := range b.CPS.Intervals() {
		if iv.Last >= 128 {
			return bm, false
		}
		for cp := iv.First; cp <= iv.Last; cp++ {
			bm.Set(byte(cp))
		}
	}
	return bm, true
}

// Emit lowers re into a runnable CompiledRegex.
func Emit(re ir.Regex) insn.CompiledRegex {
	e := &emitter{namedGroups: make(map[string]uint32)}
	e.emitNode(re.Root)

	return insn.CompiledRegex{
		Insns:             e.insns,
		StartPred:         startpredicate.PredicateForRegex(re),
		Loops:             e.loops,
		Groups:            e.groups,
		NamedGroupIndices: e.namedGroups,
		Flags:             re.Flags,
	}
}

func (e *emitter) emitNode(root ir.Node) {
	stack := []work{workNode{n: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch w := top.(type) {
		case workLoopFinish:
			e.push(insn.LoopAgain{Begin: insn.JumpTarget(w.loopInsn)})
			exit := e.next()
			fields := e.insns[w.loopInsn].(insn.EnterLoop)
			fields.Fields.Exit = exit
			e.insns[w.loopInsn] = fields

		case workLookaroundFinish:
			e.push(insn.Goal{})
			next := e.next()
			switch la := e.insns[w.lookaroundInsn].(type) {
			case insn.Lookahead:
				la.Continuation = next
				e.insns[w.lookaroundInsn] = la
			case insn.Lookbehind:
				la.Continuation = next
				e.insns[w.lookaroundInsn] = la
			}

		case workAltMiddle:
			jumpInsn := e.push(insn.Jump{Target: 0})
			stack = append(stack, workAltFinish{altInsn: w.altInsn, jumpInsn: int(jumpInsn)})
			stack = append(stack, workNode{n: w.right})

		case workAltFinish:
			exit := e.next()
			alt := e.insns[w.altInsn].(insn.Alt)
			// The right branch begins right after the jump instruction that
			// skips over it from the primary branch.
			alt.Secondary = insn.JumpTarget(w.jumpInsn) + 1
			e.insns[w.altInsn] = alt
			jump := e.insns[w.jumpInsn].(insn.Jump)
			jump.Target = exit
			e.insns[w.jumpInsn] = jump

		case workEndCaptureGroup:
			e.push(insn.EndCaptureGroup{ID: w.group})

		case workNode:
			e.emitOne(w.n, &stack)
		}
	}
}

func (e *emitter) emitOne(n ir.Node, stack *[]work) {
	switch v := n.(type) {
	case ir.Empty:
		// Contributes no instruction.

	case ir.Goal:
		e.push(insn.Goal{})

	case ir.Char:
		if v.ICase {
			e.push(insn.CharICase{C: v.C})
		} else {
			e.push(insn.Char{C: v.C})
		}

	case ir.Cat:
		for i := len(v.Children) - 1; i >= 0; i-- {
			*stack = append(*stack, workNode{n: v.Children[i]})
		}

	case ir.Alt:
		altInsn := e.push(insn.Alt{Secondary: 0})
		*stack = append(*stack, workAltMiddle{altInsn: int(altInsn), right: v.Right})
		*stack = append(*stack, workNode{n: v.Left})

	case ir.Bracket:
		if bm, ok := bracketAsASCII(v.Contents); ok {
			e.push(insn.AsciiBracket{Bitmap: bm})
		} else {
			e.push(insn.Bracket{Contents: v.Contents})
		}

	case ir.MatchAny:
		e.push(insn.MatchAny{})

	case ir.MatchAnyExceptLineTerminator:
		e.push(insn.MatchAnyExceptLineTerminator{})

	case ir.Anchor:
		switch v.Type {
		case ir.StartOfLine:
			e.push(insn.StartOfLine{})
		case ir.EndOfLine:
			e.push(insn.EndOfLine{})
		}

	case ir.Loop:
		loopID := e.nextLoopID
		e.nextLoopID++
		loopInsn := e.push(insn.EnterLoop{Fields: insn.LoopFields{
			LoopID:   loopID,
			MinIters: v.Quant.Min,
			MaxIters: v.Quant.Max,
			Greedy:   v.Quant.Greedy,
			Exit:     0,
		}})
		e.loops++
		for gid := v.EnclosedStart; gid < v.EnclosedEnd; gid++ {
			e.push(insn.ResetCaptureGroup{ID: gid})
		}
		*stack = append(*stack, workLoopFinish{loopInsn: int(loopInsn)})
		*stack = append(*stack, workNode{n: v.Loopee})

	case ir.Loop1CharBody:
		e.push(insn.Loop1CharBody{
			MinIters: v.Quant.Min,
			MaxIters: v.Quant.Max,
			Greedy:   v.Quant.Greedy,
		})
		*stack = append(*stack, workNode{n: v.Loopee})

	case ir.CaptureGroup:
		e.groups++
		e.push(insn.BeginCaptureGroup{ID: v.ID})
		*stack = append(*stack, workEndCaptureGroup{group: v.ID})
		*stack = append(*stack, workNode{n: v.Child})

	case ir.NamedCaptureGroup:
		e.groups++
		e.namedGroups[v.Name] = v.ID
		e.push(insn.BeginCaptureGroup{ID: v.ID})
		*stack = append(*stack, workEndCaptureGroup{group: v.ID})
		*stack = append(*stack, workNode{n: v.Child})

	case ir.LookaroundAssertion:
		var lookaroundInsn insn.JumpTarget
		if v.Backwards {
			lookaroundInsn = e.push(insn.Lookbehind{
				Negate:       v.Negate,
				StartGroup:   v.StartGroup,
				EndGroup:     v.EndGroup,
				Continuation: 0,
			})
		} else {
			lookaroundInsn = e.push(insn.Lookahead{
				Negate:       v.Negate,
				StartGroup:   v.StartGroup,
				EndGroup:     v.EndGroup,
				Continuation: 0,
			})
		}
		*stack = append(*stack, workLookaroundFinish{lookaroundInsn: int(lookaroundInsn)})
		*stack = append(*stack, workNode{n: v.Contents})

	case ir.WordBoundary:
		e.push(insn.WordBoundary{Invert: v.Invert})

	case ir.BackRef:
		e.push(insn.BackRef{Group: v.Group - 1, ICase: v.ICase})

	case ir.ByteSet:
		if len(v.Bytes) == 0 {
			e.push(insn.JustFail{})
		} else {
			e.push(insn.ByteSet{Bytes: append([]byte{}, v.Bytes...)})
		}

	case ir.CharSet:
		if len(v.Chars) == 0 {
			e.push(insn.JustFail{})
		} else {
			e.push(insn.CharSet{Chars: append([]uint32{}, v.Chars...)})
		}

	case ir.ByteSequence:
		if len(v.Bytes) == 0 {
			return
		}
		e.push(insn.ByteSeq{Bytes: append([]byte{}, v.Bytes...)})

	default:
		panic("emit: unhandled ir.Node type")
	}
}
