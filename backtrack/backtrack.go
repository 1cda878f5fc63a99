// Package backtrack implements the classical backtracking matcher: it
// executes the instruction list package emit produces against the indexer
// abstraction package input defines.
//
// A single match attempt is driven by trying every instruction in turn; any
// instruction that can fail pushes enough state onto an explicit backtrack
// stack to retry a different choice (the other branch of an Alt, fewer or
// more loop iterations, a different lookaround outcome) rather than
// recursing, so arbitrarily deep alternation/quantifier nesting doesn't
// grow the Go call stack.
package backtrack

import (
	"github.com/coregx/esregex/bytesearch"
	"github.com/coregx/esregex/input"
	"github.com/coregx/esregex/insn"
)

// LoopData tracks one loop's iteration count and the position it last
// entered the loop body at (used to reject zero-width iterations past the
// minimum, ES6 21.2.2.5.1 Note 4).
type LoopData struct {
	Iters uint32
	Entry input.Position
}

// GroupData is a capture group's matched range, tracked as two independent
// optional endpoints since a lookbehind only ever sets End first.
type GroupData struct {
	Start, End       input.Position
	StartSet, EndSet bool
}

// AsRange returns the group's matched range, or ok=false if either endpoint
// is still unset.
func (g GroupData) AsRange() (input.Position, input.Position, bool) {
	if g.StartSet && g.EndSet {
		return g.Start, g.End, true
	}
	return 0, 0, false
}

// state is the loop/group working memory for one match attempt.
type state struct {
	loops  []LoopData
	groups []GroupData
}

func newState(re *insn.CompiledRegex) state {
	return state{
		loops:  make([]LoopData, re.Loops),
		groups: make([]GroupData, re.Groups),
	}
}

// backtrackInsn is a closed tagged union of saved undo actions, the same
// sealed sum-type idiom used throughout this codebase (see insn.Insn).
type backtrackInsn interface {
	btNode()
}

type btBase struct{}

func (btBase) btNode() {}

type btExhausted struct{ btBase }

type btSetPosition struct {
	btBase
	IP  insn.JumpTarget
	Pos input.Position
}

type btSetLoopData struct {
	btBase
	ID   uint32
	Data LoopData
}

type btSetCaptureGroup struct {
	btBase
	ID   uint32
	Data GroupData
}

type btEnterNonGreedyLoop struct {
	btBase
	IP   insn.JumpTarget
	Data LoopData
}

type btGreedyLoop1Char struct {
	btBase
	Continuation insn.JumpTarget
	Min, Max     input.Position
}

type btNonGreedyLoop1Char struct {
	btBase
	Continuation insn.JumpTarget
	Min, Max     input.Position
}

// matcher drives one match attempt against a compiled pattern.
type matcher struct {
	re  *insn.CompiledRegex
	bts []backtrackInsn
	s   state
}

func newMatcher(re *insn.CompiledRegex) *matcher {
	return &matcher{
		re:  re,
		bts: []backtrackInsn{btExhausted{}},
		s:   newState(re),
	}
}

func (m *matcher) popBacktrack() {
	m.bts = m.bts[:len(m.bts)-1]
}

// prepareToEnterLoop saves data's prior state for backtracking, then
// advances it to reflect the loop being entered at pos.
func prepareToEnterLoop(bts *[]backtrackInsn, pos input.Position, fields insn.LoopFields, data *LoopData) {
	*bts = append(*bts, btSetLoopData{ID: fields.LoopID, Data: *data})
	data.Iters++
	data.Entry = pos
}

// runLoop decides whether to enter or skip a loop at ip, given its fields
// and the loop data already advanced by a prior EnterLoop/LoopAgain visit.
// Returns the next instruction to run, or ok=false if neither entering nor
// skipping is viable.
func (m *matcher) runLoop(fields insn.LoopFields, pos input.Position, ipv insn.JumpTarget) (insn.JumpTarget, bool) {
	data := &m.s.loops[fields.LoopID]
	iteration := data.Iters
	doTaken := iteration < fields.MaxIters
	doNotTaken := iteration >= fields.MinIters
	loopTakenIP := ipv + 1
	loopNotTakenIP := fields.Exit

	if data.Entry == pos && iteration > fields.MinIters {
		return 0, false
	}

	switch {
	case !doTaken && !doNotTaken:
		return 0, false
	case !doTaken && doNotTaken:
		return loopNotTakenIP, true
	case doTaken && !doNotTaken:
		prepareToEnterLoop(&m.bts, pos, fields, data)
		return loopTakenIP, true
	case !fields.Greedy:
		data.Entry = pos
		m.bts = append(m.bts, btEnterNonGreedyLoop{IP: ipv, Data: *data})
		return loopNotTakenIP, true
	default:
		m.bts = append(m.bts, btSetPosition{IP: loopNotTakenIP, Pos: pos})
		prepareToEnterLoop(&m.bts, pos, fields, data)
		return loopTakenIP, true
	}
}

// matchSingle matches the single-character-consuming instruction i,
// advancing pos on success. Shared between the main dispatch loop and
// runSCMLoop's iterate-without-saving-every-position fast path.
func matchSingle(i insn.Insn, c input.Cursor, pos *input.Position) bool {
	switch v := i.(type) {
	case insn.Char:
		e, ok := c.Next(pos)
		return ok && uint32(e) == v.C
	case insn.CharICase:
		e, ok := c.Next(pos)
		return ok && uint32(c.Idx.Fold(e)) == v.C
	case insn.CharSet:
		e, ok := c.Next(pos)
		return ok && containsU32(v.Chars, uint32(e))
	case insn.ByteSet:
		b, ok := c.NextByte(pos)
		return ok && containsByte(v.Bytes, b)
	case insn.ByteSeq:
		return c.TryMatchLit(pos, bytesearch.ByteSeq{Bytes: v.Bytes})
	case insn.AsciiBracket:
		b, ok := c.NextByte(pos)
		return ok && v.Bitmap.Contains(b)
	case insn.Bracket:
		e, ok := c.Next(pos)
		return ok && c.Idx.Bracket(v.Contents, e)
	case insn.MatchAny:
		_, ok := c.Next(pos)
		return ok
	case insn.MatchAnyExceptLineTerminator:
		e, ok := c.Next(pos)
		return ok && !c.Idx.IsLineTerminator(e)
	default:
		return false
	}
}

func containsU32(xs []uint32, x uint32) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsByte(xs []byte, x byte) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// runSCMLoop runs a Loop1CharBody: its body is known to consume exactly
// one element, so instead of saving a backtrack point per iteration it
// drives straight to the maximum (minimum, if lazy) extent once and
// remembers only the [min,max] range, backtracking a single element at a
// time from there.
func (m *matcher) runSCMLoop(minIters, maxIters uint32, pos *input.Position, c input.Cursor, ipv insn.JumpTarget, greedy bool) (insn.JumpTarget, bool) {
	body := m.re.Insns[ipv+1]
	cur := *pos
	for i := uint32(0); i < minIters; i++ {
		if !matchSingle(body, c, &cur) {
			return 0, false
		}
	}
	minPos := cur
	for i := uint32(0); i < maxIters-minIters; i++ {
		saved := cur
		if !matchSingle(body, c, &cur) {
			cur = saved
			break
		}
	}
	maxPos := cur

	continuation := ipv + 2
	if minPos != maxPos {
		if greedy {
			m.bts = append(m.bts, btGreedyLoop1Char{Continuation: continuation, Min: minPos, Max: maxPos})
		} else {
			m.bts = append(m.bts, btNonGreedyLoop1Char{Continuation: continuation, Min: minPos, Max: maxPos})
		}
	}
	if greedy {
		*pos = maxPos
	} else {
		*pos = minPos
	}
	return continuation, true
}

// runLookaround runs the zero-width assertion starting at ip against a
// throwaway backtrack stack, then restores or retains (start_group,
// end_group) depending on the outcome and negate.
func (m *matcher) runLookaround(ipv insn.JumpTarget, pos input.Position, c input.Cursor, startGroup, endGroup uint32, negate bool) bool {
	saved := append([]GroupData{}, m.s.groups[startGroup:endGroup]...)

	outerBts := m.bts
	m.bts = []backtrackInsn{btExhausted{}}
	_, matched := m.tryAtPos(ipv, pos, c)
	m.bts = outerBts

	if matched && !negate {
		for i, cg := range saved {
			m.bts = append(m.bts, btSetCaptureGroup{ID: startGroup + uint32(i), Data: cg})
		}
	} else {
		copy(m.s.groups[startGroup:endGroup], saved)
	}
	return matched != negate
}

// tryBacktrack pops and applies backtrack actions until one yields a new
// (ip, pos) to resume at, or the stack is exhausted.
func (m *matcher) tryBacktrack(ipv *insn.JumpTarget, pos *input.Position, c input.Cursor) bool {
	for {
		switch bt := m.bts[len(m.bts)-1].(type) {
		case btExhausted:
			return false

		case btSetPosition:
			*ipv = bt.IP
			*pos = bt.Pos
			m.popBacktrack()
			return true

		case btSetLoopData:
			m.s.loops[bt.ID] = bt.Data
			m.popBacktrack()

		case btSetCaptureGroup:
			m.s.groups[bt.ID] = bt.Data
			m.popBacktrack()

		case btEnterNonGreedyLoop:
			m.popBacktrack()
			*ipv = bt.IP + 1
			*pos = bt.Data.Entry
			fields := m.re.Insns[bt.IP].(insn.EnterLoop).Fields
			data := &m.s.loops[fields.LoopID]
			*data = bt.Data
			prepareToEnterLoop(&m.bts, *pos, fields, data)
			return true

		case btGreedyLoop1Char:
			if bt.Max == bt.Min {
				m.popBacktrack()
				continue
			}
			newMax := bt.Max
			c.RetreatByCharKnownValid(&newMax)
			*pos = newMax
			*ipv = bt.Continuation
			m.bts[len(m.bts)-1] = btGreedyLoop1Char{Continuation: bt.Continuation, Min: bt.Min, Max: newMax}
			return true

		case btNonGreedyLoop1Char:
			if bt.Max == bt.Min {
				m.popBacktrack()
				continue
			}
			newMin := bt.Min
			c.AdvanceByCharKnownValid(&newMin)
			*pos = newMin
			*ipv = bt.Continuation
			m.bts[len(m.bts)-1] = btNonGreedyLoop1Char{Continuation: bt.Continuation, Min: newMin, Max: bt.Max}
			return true
		}
	}
}

func backrefICase(start, end input.Position, pos *input.Position, c input.Cursor) bool {
	refIdx := c.Idx.SubInput(start, end)
	refCursor := input.Cursor{Idx: refIdx, Forward: c.Forward}
	var refPos input.Position
	if c.Forward {
		refPos = 0
	} else {
		refPos = end - start
	}
	for {
		c1, ok := refCursor.Next(&refPos)
		if !ok {
			return true
		}
		c2, ok := c.Next(pos)
		if !ok {
			return false
		}
		if uint32(c1) != uint32(c2) && uint32(c.Idx.Fold(c1)) != uint32(c.Idx.Fold(c2)) {
			return false
		}
	}
}

// tryAtPos attempts a match of m.re starting at (ip, pos), returning the
// end position on success.
func (m *matcher) tryAtPos(startIP insn.JumpTarget, startPos input.Position, c input.Cursor) (input.Position, bool) {
	re := m.re
	ipv := startIP
	pos := startPos

nextinsn:
	for {
	backtrack:
		for {
			switch v := re.Insns[ipv].(type) {
			case insn.WordBoundary:
				left, okL := c.Idx.PeekLeft(pos)
				right, okR := c.Idx.PeekRight(pos)
				prevW := okL && c.Idx.IsWordChar(left)
				currW := okR && c.Idx.IsWordChar(right)
				if (prevW != currW) != v.Invert {
					ipv++
					continue nextinsn
				}
				break backtrack

			case insn.StartOfLine:
				left, ok := c.Idx.PeekLeft(pos)
				if !ok || (re.Flags.Multiline && c.Idx.IsLineTerminator(left)) {
					ipv++
					continue nextinsn
				}
				break backtrack

			case insn.EndOfLine:
				right, ok := c.Idx.PeekRight(pos)
				if !ok || (re.Flags.Multiline && c.Idx.IsLineTerminator(right)) {
					ipv++
					continue nextinsn
				}
				break backtrack

			case insn.Jump:
				ipv = v.Target
				continue nextinsn

			case insn.BeginCaptureGroup:
				m.bts = append(m.bts, btSetCaptureGroup{ID: v.ID, Data: m.s.groups[v.ID]})
				if c.Forward {
					m.s.groups[v.ID].Start, m.s.groups[v.ID].StartSet = pos, true
				} else {
					m.s.groups[v.ID].End, m.s.groups[v.ID].EndSet = pos, true
				}
				ipv++
				continue nextinsn

			case insn.EndCaptureGroup:
				if c.Forward {
					m.s.groups[v.ID].End, m.s.groups[v.ID].EndSet = pos, true
				} else {
					m.s.groups[v.ID].Start, m.s.groups[v.ID].StartSet = pos, true
				}
				ipv++
				continue nextinsn

			case insn.ResetCaptureGroup:
				m.bts = append(m.bts, btSetCaptureGroup{ID: v.ID, Data: m.s.groups[v.ID]})
				m.s.groups[v.ID] = GroupData{}
				ipv++
				continue nextinsn

			case insn.BackRef:
				cg := m.s.groups[v.Group]
				matched := true
				if start, end, ok := cg.AsRange(); ok {
					if v.ICase {
						matched = backrefICase(start, end, &pos, c)
					} else {
						matched = c.SubrangeEq(&pos, start, end)
					}
				}
				if matched {
					ipv++
					continue nextinsn
				}
				break backtrack

			case insn.Lookahead:
				if m.runLookaround(ipv+1, pos, c.AsForward(), v.StartGroup, v.EndGroup, v.Negate) {
					ipv = v.Continuation
					continue nextinsn
				}
				break backtrack

			case insn.Lookbehind:
				if m.runLookaround(ipv+1, pos, c.AsBackward(), v.StartGroup, v.EndGroup, v.Negate) {
					ipv = v.Continuation
					continue nextinsn
				}
				break backtrack

			case insn.Alt:
				m.bts = append(m.bts, btSetPosition{IP: v.Secondary, Pos: pos})
				ipv++
				continue nextinsn

			case insn.EnterLoop:
				m.s.loops[v.Fields.LoopID].Iters = 0
				if next, ok := m.runLoop(v.Fields, pos, ipv); ok {
					ipv = next
					continue nextinsn
				}
				break backtrack

			case insn.LoopAgain:
				fields := re.Insns[v.Begin].(insn.EnterLoop).Fields
				if next, ok := m.runLoop(fields, pos, v.Begin); ok {
					ipv = next
					continue nextinsn
				}
				break backtrack

			case insn.Loop1CharBody:
				if next, ok := m.runSCMLoop(v.MinIters, v.MaxIters, &pos, c, ipv, v.Greedy); ok {
					ipv = next
					continue nextinsn
				}
				break backtrack

			case insn.Goal:
				m.bts = m.bts[:1]
				return pos, true

			case insn.JustFail:
				break backtrack

			default:
				if matchSingle(v, c, &pos) {
					ipv++
					continue nextinsn
				}
				break backtrack
			}
		}

		if m.tryBacktrack(&ipv, &pos, c) {
			continue nextinsn
		}
		return 0, false
	}
}
