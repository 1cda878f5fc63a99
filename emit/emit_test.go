package emit

import (
	"testing"

	"github.com/coregx/esregex/insn"
	"github.com/coregx/esregex/ir"
	"github.com/coregx/esregex/optimize"
	"github.com/coregx/esregex/parse"
)

func mustEmit(t *testing.T, pattern string, flags ir.Flags) insn.CompiledRegex {
	t.Helper()
	re, err := parse.Parse(pattern, flags)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", pattern, err)
	}
	re = optimize.Optimize(re)
	return Emit(re)
}

func TestEmitLiteralFormsByteSeq(t *testing.T) {
	cr := mustEmit(t, "abc", ir.Flags{})
	found := false
	for _, i := range cr.Insns {
		if bs, ok := i.(insn.ByteSeq); ok {
			if string(bs.Bytes) != "abc" {
				t.Fatalf("expected ByteSeq(abc), got %q", bs.Bytes)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a ByteSeq instruction, got %#v", cr.Insns)
	}
}

func TestEmitCaptureGroupBeginEnd(t *testing.T) {
	cr := mustEmit(t, "(a)", ir.Flags{})
	var begin, end bool
	for _, i := range cr.Insns {
		switch v := i.(type) {
		case insn.BeginCaptureGroup:
			if v.ID != 0 {
				t.Fatalf("expected group ID 0, got %d", v.ID)
			}
			begin = true
		case insn.EndCaptureGroup:
			if v.ID != 0 {
				t.Fatalf("expected group ID 0, got %d", v.ID)
			}
			end = true
		}
	}
	if !begin || !end {
		t.Fatalf("expected BeginCaptureGroup and EndCaptureGroup, got %#v", cr.Insns)
	}
	if cr.Groups != 1 {
		t.Fatalf("expected Groups=1, got %d", cr.Groups)
	}
}

func TestEmitNamedCaptureGroupRecorded(t *testing.T) {
	cr := mustEmit(t, "(?<x>a)", ir.Flags{})
	if id, ok := cr.NamedGroupIndices["x"]; !ok || id != 0 {
		t.Fatalf("expected NamedGroupIndices[x]=0, got %#v", cr.NamedGroupIndices)
	}
}

func TestEmitAltSecondaryTargetsRightBranch(t *testing.T) {
	cr := mustEmit(t, "a|bb", ir.Flags{})
	var alt insn.Alt
	found := false
	for _, i := range cr.Insns {
		if a, ok := i.(insn.Alt); ok {
			alt = a
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected an Alt instruction, got %#v", cr.Insns)
	}
	if int(alt.Secondary) >= len(cr.Insns) {
		t.Fatalf("Alt.Secondary %d out of range (len=%d)", alt.Secondary, len(cr.Insns))
	}
}

func TestEmitLoopExitIsBackpatched(t *testing.T) {
	cr := mustEmit(t, "a{2,5}b", ir.Flags{NoOpt: true})
	var loopIdx = -1
	for idx, i := range cr.Insns {
		if _, ok := i.(insn.EnterLoop); ok {
			loopIdx = idx
			break
		}
	}
	if loopIdx < 0 {
		t.Fatalf("expected an EnterLoop instruction, got %#v", cr.Insns)
	}
	fields := cr.Insns[loopIdx].(insn.EnterLoop).Fields
	if fields.Exit == 0 {
		t.Fatalf("expected EnterLoop.Fields.Exit to be backpatched, got 0")
	}
	if int(fields.Exit) > len(cr.Insns) {
		t.Fatalf("EnterLoop.Fields.Exit %d out of range (len=%d)", fields.Exit, len(cr.Insns))
	}
	if cr.Loops != 1 {
		t.Fatalf("expected Loops=1, got %d", cr.Loops)
	}
}

func TestEmitLookaheadContinuationBackpatched(t *testing.T) {
	cr := mustEmit(t, "a(?=b)", ir.Flags{})
	var laIdx = -1
	for idx, i := range cr.Insns {
		if _, ok := i.(insn.Lookahead); ok {
			laIdx = idx
			break
		}
	}
	if laIdx < 0 {
		t.Fatalf("expected a Lookahead instruction, got %#v", cr.Insns)
	}
	la := cr.Insns[laIdx].(insn.Lookahead)
	if int(la.Continuation) >= len(cr.Insns) {
		t.Fatalf("Lookahead.Continuation %d out of range (len=%d)", la.Continuation, len(cr.Insns))
	}
}

func TestEmitBackRefIsZeroBased(t *testing.T) {
	cr := mustEmit(t, "(a)\\1", ir.Flags{})
	found := false
	for _, i := range cr.Insns {
		if br, ok := i.(insn.BackRef); ok {
			if br.Group != 0 {
				t.Fatalf("expected BackRef.Group=0 (1-based group 1), got %d", br.Group)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a BackRef instruction, got %#v", cr.Insns)
	}
}

func TestEmitAsciiBracketSpecialization(t *testing.T) {
	cr := mustEmit(t, "[a-z]", ir.Flags{})
	found := false
	for _, i := range cr.Insns {
		if ab, ok := i.(insn.AsciiBracket); ok {
			if !ab.Bitmap.Contains('m') || ab.Bitmap.Contains('M') {
				t.Fatalf("expected AsciiBracket[a-z] to match 'm' but not 'M'")
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("expected [a-z] to emit as AsciiBracket, got %#v", cr.Insns)
	}
}

func TestEmitEndsWithGoal(t *testing.T) {
	cr := mustEmit(t, "a", ir.Flags{})
	last := cr.Insns[len(cr.Insns)-1]
	if _, ok := last.(insn.Goal); !ok {
		t.Fatalf("expected final instruction to be Goal, got %#v", last)
	}
}

func TestEmitStartPredicateSet(t *testing.T) {
	cr := mustEmit(t, "abc", ir.Flags{})
	if cr.StartPred == nil {
		t.Fatalf("expected a non-nil StartPred")
	}
}
