package input

import "github.com/coregx/esregex/bytesearch"

// Cursor pairs an Indexer with a direction of travel. Forward cursors are
// used for ordinary matching; Backward cursors are used inside lookbehind
// assertions and nowhere else.
//
// The reference implementation encodes direction as a compile-time generic
// parameter so forward/backward share one code path with no runtime
// branch. Go has no ergonomic equivalent (see DESIGN.md Open Question 4),
// so Cursor carries a runtime Forward flag instead; every method below
// branches on it exactly once, mirroring the reference's own per-method
// "if FORWARD" branch line for line.
type Cursor struct {
	Idx     Indexer
	Forward bool
}

// NewForwardCursor returns a cursor that advances left-to-right over idx.
func NewForwardCursor(idx Indexer) Cursor {
	return Cursor{Idx: idx, Forward: true}
}

// AsBackward returns the same underlying input, now traveling right-to-left.
func (c Cursor) AsBackward() Cursor {
	return Cursor{Idx: c.Idx, Forward: false}
}

// AsForward returns the same underlying input, now traveling left-to-right.
func (c Cursor) AsForward() Cursor {
	return Cursor{Idx: c.Idx, Forward: true}
}

// RemainingLen returns how many bytes remain ahead of pos in the cursor's
// direction of travel.
func (c Cursor) RemainingLen(pos Position) int {
	if c.Forward {
		return c.Idx.ByteLen() - int(pos)
	}
	return int(pos)
}

// Next returns the next element in the cursor's direction, advancing pos.
func (c Cursor) Next(pos *Position) (Element, bool) {
	var e Element
	var ok bool
	if c.Forward {
		e, ok = c.Idx.PeekRight(*pos)
	} else {
		e, ok = c.Idx.PeekLeft(*pos)
	}
	if ok {
		c.Advance(pos, c.Idx.ElementLen(e))
	}
	return e, ok
}

// NextByte returns the next raw byte in the cursor's direction, advancing
// pos by one byte. This may split a UTF-8 sequence; used only by the
// byte-level ByteSet and AsciiBracket instructions (ByteSeq goes through
// TryMatchLit instead).
func (c Cursor) NextByte(pos *Position) (byte, bool) {
	var b byte
	var ok bool
	if c.Forward {
		b, ok = c.Idx.PeekByteRight(*pos)
	} else {
		b, ok = c.Idx.PeekByteLeft(*pos)
	}
	if ok {
		c.Advance(pos, 1)
	}
	return b, ok
}

// RemainingBytes returns the raw bytes ahead of pos in the direction of
// travel.
func (c Cursor) RemainingBytes(pos Position) []byte {
	if c.Forward {
		return c.Idx.Slice(pos, Position(c.Idx.ByteLen()))
	}
	return c.Idx.Slice(0, pos)
}

// TryMatchLit attempts to match a literal byte sequence at pos in the
// cursor's direction, advancing pos on success.
func (c Cursor) TryMatchLit(pos *Position, seq bytesearch.ByteSeq) bool {
	n := len(seq.Bytes)
	if n == 0 || n > c.RemainingLen(*pos) {
		return false
	}
	var window []byte
	if c.Forward {
		window = c.Idx.Slice(*pos, *pos+Position(n))
	} else {
		window = c.Idx.Slice(*pos-Position(n), *pos)
	}
	if !seq.Equals(window) {
		return false
	}
	c.Advance(pos, n)
	return true
}

// Advance moves pos by amt bytes in the cursor's direction.
func (c Cursor) Advance(pos *Position, amt int) {
	if c.Forward {
		*pos += Position(amt)
	} else {
		*pos -= Position(amt)
	}
}

// AdvanceByCharKnownValid moves pos by one element in the cursor's
// direction; pos must already be a valid boundary.
func (c Cursor) AdvanceByCharKnownValid(pos *Position) {
	var e Element
	var ok bool
	if c.Forward {
		e, ok = c.Idx.PeekRight(*pos)
	} else {
		e, ok = c.Idx.PeekLeft(*pos)
	}
	if !ok {
		return
	}
	n := c.Idx.ElementLen(e)
	if c.Forward {
		*pos += Position(n)
	} else {
		*pos -= Position(n)
	}
}

// RetreatByCharKnownValid moves pos by one element opposite the cursor's
// direction; pos must already be a valid boundary.
func (c Cursor) RetreatByCharKnownValid(pos *Position) {
	var e Element
	var ok bool
	if c.Forward {
		e, ok = c.Idx.PeekLeft(*pos)
	} else {
		e, ok = c.Idx.PeekRight(*pos)
	}
	if !ok {
		return
	}
	n := c.Idx.ElementLen(e)
	if c.Forward {
		*pos -= Position(n)
	} else {
		*pos += Position(n)
	}
}

// SubrangeEq reports whether the range [start,end) is byte-for-byte equal
// to a same-length window starting (Forward) or ending (Backward) at pos,
// advancing pos on success. Used to match back-references.
func (c Cursor) SubrangeEq(pos *Position, start, end Position) bool {
	n := int(end - start)
	if n < 0 || c.RemainingLen(*pos) < n {
		return false
	}
	want := c.Idx.Slice(start, end)
	var got []byte
	if c.Forward {
		got = c.Idx.Slice(*pos, *pos+Position(n))
	} else {
		got = c.Idx.Slice(*pos-Position(n), *pos)
	}
	if string(want) != string(got) {
		return false
	}
	c.Advance(pos, n)
	return true
}
