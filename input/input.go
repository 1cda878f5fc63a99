// Package input abstracts over the two concrete text representations the
// matcher can run against: a UTF-8 code-point stream and a raw ASCII byte
// stream. Both present the same Indexer capability set (peek left/right,
// position arithmetic, character properties); the matcher is written once
// against the interface and works identically over either.
//
// Unlike the reference implementation, which selects between the two via a
// compile-time generic parameter, this package uses a plain Go interface:
// idiomatic for this codebase (c.f. prefilter.Prefilter, nfa.State) and
// avoids forcing every consumer of Indexer to be instantiated per
// concrete type.
package input

import (
	"unicode/utf8"

	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/fold"
)

// Position is a byte offset into the underlying input.
type Position int

// Element is a single unit the indexer advances by: a decoded rune for
// Utf8Input, or a raw byte (widened) for AsciiInput.
type Element rune

// Indexer is the capability set the matcher needs from an input text.
type Indexer interface {
	// Contents returns the full backing byte slice.
	Contents() []byte
	// ByteLen returns the number of bytes in Contents.
	ByteLen() int

	// PeekRight returns the element starting at pos, if any.
	PeekRight(pos Position) (Element, bool)
	// PeekLeft returns the element ending at pos, if any.
	PeekLeft(pos Position) (Element, bool)
	// PeekByteRight returns the raw byte at pos, if any.
	PeekByteRight(pos Position) (byte, bool)
	// PeekByteLeft returns the raw byte immediately before pos, if any.
	PeekByteLeft(pos Position) (byte, bool)

	// IndexAfterInc returns the next valid position after pos (inclusive of
	// one-past-the-end), or false once pos is already at end of input. See
	// DESIGN.md Open Question 5: this mirrors the reference's
	// Option-returning behaviour, which the prefix search loop relies on to
	// terminate.
	IndexAfterInc(pos Position) (Position, bool)
	// IndexAfterExc returns the next position strictly after pos, or false
	// if there is none.
	IndexAfterExc(pos Position) (Position, bool)

	// Slice returns the raw bytes in [start,end).
	Slice(start, end Position) []byte
	// SubInput returns an indexer over the sub-range [start,end), of the
	// same concrete type, used to match captured back-reference text.
	SubInput(start, end Position) Indexer

	// ElementLen returns the number of bytes e occupies.
	ElementLen(e Element) int

	// IsWordChar reports whether e is an ECMAScript word character
	// ([A-Za-z0-9_]); used by \b/\B and matchers.is_word_char.
	IsWordChar(e Element) bool
	// IsLineTerminator reports whether e is a line terminator (\n, \r,
	// U+2028, U+2029).
	IsLineTerminator(e Element) bool
	// Fold returns the canonical case-fold of e.
	Fold(e Element) Element
	// Bracket reports whether e satisfies bc.
	Bracket(bc cpset.Bracket, e Element) bool
}

// IsLineTerminator reports whether r is one of the four ES line
// terminators; shared by both concrete indexers.
func IsLineTerminator(r rune) bool {
	switch r {
	case '\n', '\r', ' ', ' ':
		return true
	default:
		return false
	}
}

// IsWordChar reports ECMAScript word-character membership; ASCII-only per
// the spec (matchers.rs: "is_word_char [ASCII-only definition]").
func IsWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// Utf8Input indexes a string as a stream of decoded runes.
type Utf8Input struct {
	buf []byte
}

// NewUtf8Input wraps s for UTF-8-aware indexing.
func NewUtf8Input(s []byte) *Utf8Input { return &Utf8Input{buf: s} }

func (u *Utf8Input) Contents() []byte { return u.buf }
func (u *Utf8Input) ByteLen() int     { return len(u.buf) }

func (u *Utf8Input) PeekRight(pos Position) (Element, bool) {
	if int(pos) >= len(u.buf) {
		return 0, false
	}
	r, size := utf8.DecodeRune(u.buf[pos:])
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	return Element(r), true
}

func (u *Utf8Input) PeekLeft(pos Position) (Element, bool) {
	if int(pos) <= 0 {
		return 0, false
	}
	r, size := utf8.DecodeLastRune(u.buf[:pos])
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	return Element(r), true
}

func (u *Utf8Input) PeekByteRight(pos Position) (byte, bool) {
	if int(pos) >= len(u.buf) {
		return 0, false
	}
	return u.buf[pos], true
}

func (u *Utf8Input) PeekByteLeft(pos Position) (byte, bool) {
	if int(pos) <= 0 {
		return 0, false
	}
	return u.buf[pos-1], true
}

func (u *Utf8Input) IndexAfterInc(pos Position) (Position, bool) {
	if int(pos) >= len(u.buf) {
		return pos, false
	}
	_, size := utf8.DecodeRune(u.buf[pos:])
	if size <= 0 {
		size = 1
	}
	return pos + Position(size), true
}

func (u *Utf8Input) IndexAfterExc(pos Position) (Position, bool) {
	return u.IndexAfterInc(pos)
}

func (u *Utf8Input) Slice(start, end Position) []byte {
	return u.buf[start:end]
}

func (u *Utf8Input) SubInput(start, end Position) Indexer {
	return &Utf8Input{buf: u.buf[start:end]}
}

func (u *Utf8Input) ElementLen(e Element) int { return utf8.RuneLen(rune(e)) }

func (u *Utf8Input) IsWordChar(e Element) bool      { return IsWordChar(rune(e)) }
func (u *Utf8Input) IsLineTerminator(e Element) bool { return IsLineTerminator(rune(e)) }
func (u *Utf8Input) Fold(e Element) Element         { return Element(fold.Fold(uint32(e))) }
func (u *Utf8Input) Bracket(bc cpset.Bracket, e Element) bool {
	return bc.Matches(uint32(e))
}

// AsciiInput indexes a byte slice where each byte is its own element,
// without any UTF-8 decoding. Used when the compiled pattern and all
// callers guarantee ASCII-only text, letting the matcher skip UTF-8
// handling entirely.
type AsciiInput struct {
	buf []byte
}

// NewAsciiInput wraps s for byte-at-a-time indexing.
func NewAsciiInput(s []byte) *AsciiInput { return &AsciiInput{buf: s} }

func (a *AsciiInput) Contents() []byte { return a.buf }
func (a *AsciiInput) ByteLen() int     { return len(a.buf) }

func (a *AsciiInput) PeekRight(pos Position) (Element, bool) {
	if int(pos) >= len(a.buf) {
		return 0, false
	}
	return Element(a.buf[pos]), true
}

func (a *AsciiInput) PeekLeft(pos Position) (Element, bool) {
	if int(pos) <= 0 {
		return 0, false
	}
	return Element(a.buf[pos-1]), true
}

func (a *AsciiInput) PeekByteRight(pos Position) (byte, bool) {
	if int(pos) >= len(a.buf) {
		return 0, false
	}
	return a.buf[pos], true
}

func (a *AsciiInput) PeekByteLeft(pos Position) (byte, bool) {
	if int(pos) <= 0 {
		return 0, false
	}
	return a.buf[pos-1], true
}

func (a *AsciiInput) IndexAfterInc(pos Position) (Position, bool) {
	if int(pos) >= len(a.buf) {
		return pos, false
	}
	return pos + 1, true
}

func (a *AsciiInput) IndexAfterExc(pos Position) (Position, bool) {
	return a.IndexAfterInc(pos)
}

func (a *AsciiInput) Slice(start, end Position) []byte {
	return a.buf[start:end]
}

func (a *AsciiInput) SubInput(start, end Position) Indexer {
	return &AsciiInput{buf: a.buf[start:end]}
}

func (a *AsciiInput) ElementLen(Element) int { return 1 }

func (a *AsciiInput) IsWordChar(e Element) bool      { return IsWordChar(rune(e)) }
func (a *AsciiInput) IsLineTerminator(e Element) bool { return IsLineTerminator(rune(e)) }
func (a *AsciiInput) Fold(e Element) Element {
	if e >= 'A' && e <= 'Z' {
		return e + ('a' - 'A')
	}
	return e
}
func (a *AsciiInput) Bracket(bc cpset.Bracket, e Element) bool {
	return bc.Matches(uint32(e))
}
