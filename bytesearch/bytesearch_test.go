package bytesearch

import "testing"

func TestEmptyStringAlwaysMatchesAtZero(t *testing.T) {
	i, ok := EmptyString{}.FindIn([]byte("anything"))
	if !ok || i != 0 {
		t.Fatalf("expected (0,true), got (%d,%v)", i, ok)
	}
}

func TestByteSeq1(t *testing.T) {
	i, ok := ByteSeq1{B: 'o'}.FindIn([]byte("hello world"))
	if !ok || i != 4 {
		t.Fatalf("expected (4,true), got (%d,%v)", i, ok)
	}
	if _, ok := (ByteSeq1{B: 'z'}).FindIn([]byte("hello world")); ok {
		t.Fatalf("expected not found")
	}
}

func TestByteSeqLiteral(t *testing.T) {
	i, ok := ByteSeq{Bytes: []byte("world")}.FindIn([]byte("hello world"))
	if !ok || i != 6 {
		t.Fatalf("expected (6,true), got (%d,%v)", i, ok)
	}
}

func TestByteSetN(t *testing.T) {
	i, ok := ByteSet2{B1: 'w', B2: 'x'}.FindIn([]byte("hello world"))
	if !ok || i != 6 {
		t.Fatalf("ByteSet2: expected (6,true), got (%d,%v)", i, ok)
	}
	i, ok = ByteSet3{B1: 'z', B2: 'y', B3: 'o'}.FindIn([]byte("hello world"))
	if !ok || i != 4 {
		t.Fatalf("ByteSet3: expected (4,true), got (%d,%v)", i, ok)
	}
	i, ok = ByteSet4{B1: 'z', B2: 'y', B3: 'x', B4: 'w'}.FindIn([]byte("hello world"))
	if !ok || i != 6 {
		t.Fatalf("ByteSet4: expected (6,true), got (%d,%v)", i, ok)
	}
}

func TestAsciiBitmap(t *testing.T) {
	var bm AsciiBitmap
	bm.Set('a')
	bm.Set('z')
	if !bm.Contains('a') || !bm.Contains('z') {
		t.Errorf("expected bitmap to contain set bytes")
	}
	if bm.Contains('m') {
		t.Errorf("did not expect bitmap to contain 'm'")
	}
	if bm.Contains(0x80) {
		t.Errorf("ASCII bitmap must never contain non-ASCII bytes")
	}
	if bm.Count() != 2 {
		t.Errorf("expected count 2, got %d", bm.Count())
	}
}

func TestByteBitmapFindInAndComplement(t *testing.T) {
	var bm ByteBitmap
	bm.Set('x')
	bm.Set('y')

	i, ok := bm.FindIn([]byte("hello xyz"))
	if !ok || i != 6 {
		t.Fatalf("expected (6,true), got (%d,%v)", i, ok)
	}

	comp := bm.Complement()
	if comp.Contains('x') || comp.Contains('y') {
		t.Errorf("complement must exclude original members")
	}
	if !comp.Contains('a') {
		t.Errorf("complement must include non-members")
	}
	if bm.Count()+comp.Count() != 256 {
		t.Errorf("bitmap and complement must partition all 256 byte values")
	}
}
