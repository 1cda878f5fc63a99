package input

import (
	"testing"

	"github.com/coregx/esregex/bytesearch"
)

func TestUtf8InputPeekAndAdvance(t *testing.T) {
	idx := NewUtf8Input([]byte("aéz")) // 'a', 'é' (2 bytes), 'z'
	cur := NewForwardCursor(idx)

	pos := Position(0)
	e, ok := cur.Next(&pos)
	if !ok || e != 'a' || pos != 1 {
		t.Fatalf("expected ('a',1), got (%q,%d)", rune(e), pos)
	}
	e, ok = cur.Next(&pos)
	if !ok || e != 'é' || pos != 3 {
		t.Fatalf("expected (é,3), got (%q,%d)", rune(e), pos)
	}
	e, ok = cur.Next(&pos)
	if !ok || e != 'z' || pos != 4 {
		t.Fatalf("expected ('z',4), got (%q,%d)", rune(e), pos)
	}
	if _, ok := cur.Next(&pos); ok {
		t.Fatalf("expected end of input")
	}
}

func TestAsciiInputTreatsEachByteAsElement(t *testing.T) {
	idx := NewAsciiInput([]byte{0xC3, 0xA9}) // would be one UTF-8 rune, but ASCII mode is byte-wise
	cur := NewForwardCursor(idx)
	pos := Position(0)
	e, ok := cur.Next(&pos)
	if !ok || e != 0xC3 || pos != 1 {
		t.Fatalf("expected (0xC3,1), got (%x,%d)", e, pos)
	}
}

func TestBackwardCursorTraversal(t *testing.T) {
	idx := NewUtf8Input([]byte("abc"))
	cur := NewForwardCursor(idx).AsBackward()
	pos := Position(3)
	e, ok := cur.Next(&pos)
	if !ok || e != 'c' || pos != 2 {
		t.Fatalf("expected ('c',2), got (%q,%d)", rune(e), pos)
	}
	e, ok = cur.Next(&pos)
	if !ok || e != 'b' || pos != 1 {
		t.Fatalf("expected ('b',1), got (%q,%d)", rune(e), pos)
	}
}

func TestTryMatchLit(t *testing.T) {
	idx := NewUtf8Input([]byte("hello world"))
	cur := NewForwardCursor(idx)
	pos := Position(6)
	if !cur.TryMatchLit(&pos, bytesearch.ByteSeq{Bytes: []byte("world")}) {
		t.Fatalf("expected literal match")
	}
	if pos != 11 {
		t.Fatalf("expected pos advanced to 11, got %d", pos)
	}
}

func TestSubrangeEq(t *testing.T) {
	idx := NewUtf8Input([]byte("abcabc"))
	cur := NewForwardCursor(idx)
	pos := Position(3)
	if !cur.SubrangeEq(&pos, 0, 3) {
		t.Fatalf("expected subrange match")
	}
	if pos != 6 {
		t.Fatalf("expected pos 6, got %d", pos)
	}
}

func TestIndexAfterIncStopsAtEnd(t *testing.T) {
	idx := NewUtf8Input([]byte("ab"))
	pos, ok := idx.IndexAfterInc(0)
	if !ok || pos != 1 {
		t.Fatalf("expected (1,true), got (%d,%v)", pos, ok)
	}
	pos, ok = idx.IndexAfterInc(2)
	if ok {
		t.Fatalf("expected false at end of input, got (%d,true)", pos)
	}
}
