// Package parse implements a recursive-descent parser from ECMAScript
// regular expression source text to an ir.Regex tree.
//
// Grounded on the reference implementation's Parser<I> (original_source's
// parse.rs): a single left-to-right pass over the pattern with one
// character (or UTF-16 code unit, outside /u mode) of lookahead, a
// pre-scan for capture group names/count, and a finishing pass that
// reverses Cat children inside lookbehind assertions.
package parse

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf16"

	"github.com/coregx/esregex/cpset"
	"github.com/coregx/esregex/fold"
	"github.com/coregx/esregex/internal/unicodeset"
	"github.com/coregx/esregex/ir"
)

// MaxCaptureGroups is the largest number of capture groups a pattern may
// declare.
const MaxCaptureGroups = 65535

// MaxLoops is the largest number of quantified loops a pattern may contain.
const MaxLoops = 65535

// Error reports a syntax error encountered while parsing a pattern.
type Error struct {
	Text string
}

func (e *Error) Error() string { return e.Text }

func errf(format string, args ...any) error {
	return &Error{Text: fmt.Sprintf(format, args...)}
}

// Parse compiles pattern into an ir.Regex under the given flags.
func Parse(pattern string, flags ir.Flags) (ir.Regex, error) {
	p := &parser{
		units:             toCodeUnits(pattern, flags.Unicode),
		flags:             flags,
		namedGroupIndices: make(map[string]uint32),
	}
	if err := p.scanCaptureGroups(); err != nil {
		return ir.Regex{}, err
	}
	body, err := p.consumeDisjunction()
	if err != nil {
		return ir.Regex{}, err
	}
	if p.pos != len(p.units) {
		c := p.units[p.pos]
		if c == '(' {
			return ir.Regex{}, errf("unexpected )")
		}
		if c == ')' {
			return ir.Regex{}, errf("unbalanced parenthesis")
		}
		return ir.Regex{}, errf("unexpected char: %c", rune(c))
	}
	children := []ir.Node{body, ir.Goal{}}
	if cat, ok := body.(ir.Cat); ok {
		children = append(append([]ir.Node{}, cat.Children...), ir.Goal{})
	}
	re := ir.Regex{Root: ir.Cat{Children: children}, Flags: flags}
	return p.finalize(re)
}

// toCodeUnits decodes pattern into the sequence of u32 "characters" the
// grammar is defined over: full Unicode code points under the unicode
// flag, UTF-16 code units (so an unpaired surrogate is its own element)
// otherwise.
func toCodeUnits(pattern string, unicodeFlag bool) []uint32 {
	runes := []rune(pattern)
	if unicodeFlag {
		out := make([]uint32, len(runes))
		for i, r := range runes {
			out[i] = uint32(r)
		}
		return out
	}
	units := utf16.Encode(runes)
	out := make([]uint32, len(units))
	for i, u := range units {
		out[i] = uint32(u)
	}
	return out
}

type lookaroundParams struct {
	negate, backwards bool
}

type parser struct {
	units             []uint32
	pos               int
	flags             ir.Flags
	loopCount         uint32
	groupCount        uint32
	groupCountMax     uint32
	namedGroupIndices map[string]uint32
	hasLookbehind     bool
}

func (p *parser) peek() (uint32, bool) {
	if p.pos >= len(p.units) {
		return 0, false
	}
	return p.units[p.pos], true
}

func (p *parser) next() (uint32, bool) {
	c, ok := p.peek()
	if ok {
		p.pos++
	}
	return c, ok
}

func (p *parser) consume(_ uint32) uint32 {
	c, _ := p.next()
	return c
}

func (p *parser) tryConsume(c uint32) bool {
	if v, ok := p.peek(); ok && v == c {
		p.pos++
		return true
	}
	return false
}

// tryConsumeStr consumes an ASCII literal (e.g. "(?=") if it matches the
// upcoming units exactly, leaving position unchanged on mismatch.
func (p *parser) tryConsumeStr(s string) bool {
	save := p.pos
	for _, r := range s {
		c, ok := p.next()
		if !ok || c != uint32(r) {
			p.pos = save
			return false
		}
	}
	return true
}

func (p *parser) foldIfICase(c uint32) uint32 {
	if p.flags.ICase {
		return fold.Fold(c)
	}
	return c
}

// consumeDisjunction implements ES6 21.2.2.3 Disjunction.
func (p *parser) consumeDisjunction() (ir.Node, error) {
	term, err := p.consumeTerm()
	if err != nil {
		return nil, err
	}
	terms := []ir.Node{term}
	for p.tryConsume('|') {
		term, err = p.consumeTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return makeAlt(terms), nil
}

func makeCat(nodes []ir.Node) ir.Node {
	switch len(nodes) {
	case 0:
		return ir.Empty{}
	case 1:
		return nodes[0]
	default:
		return ir.Cat{Children: nodes}
	}
}

func makeAlt(nodes []ir.Node) ir.Node {
	var right ir.Node
	have := false
	for i := len(nodes) - 1; i >= 0; i-- {
		if !have {
			right = nodes[i]
			have = true
			continue
		}
		right = ir.Alt{Left: nodes[i], Right: right}
	}
	if !have {
		return ir.Empty{}
	}
	return right
}

// consumeTerm implements ES6 21.2.2.5 Term, consuming a run of atoms (each
// possibly quantified) until ')', '|', or end of input.
func (p *parser) consumeTerm() (ir.Node, error) {
	var result []ir.Node
	for {
		startGroup := p.groupCount
		startOffset := len(result)
		quantifierAllowed := true

		c, ok := p.peek()
		if !ok {
			return makeCat(result), nil
		}

		switch rune(c) {
		case ')', '|':
			return makeCat(result), nil
		case '^':
			p.consume('^')
			result = append(result, ir.Anchor{Type: ir.StartOfLine})
			quantifierAllowed = false
		case '$':
			p.consume('$')
			result = append(result, ir.Anchor{Type: ir.EndOfLine})
			quantifierAllowed = false
		case '\\':
			p.consume('\\')
			ec, ok := p.peek()
			if !ok {
				return nil, errf("incomplete escape")
			}
			switch rune(ec) {
			case 'b':
				p.consume('b')
				result = append(result, ir.WordBoundary{Invert: false})
			case 'B':
				p.consume('B')
				result = append(result, ir.WordBoundary{Invert: true})
			case 'c':
				if p.flags.Unicode {
					n, err := p.consumeAtomEscapeAfterBackslash()
					if err != nil {
						return nil, err
					}
					result = append(result, n)
					break
				}
				p.consume('c')
				nc, ok := p.peek()
				if ok && isASCIIAlpha(nc) {
					p.consume(nc)
					result = append(result, ir.Char{C: nc % 32, ICase: p.flags.ICase})
				} else {
					startOffset++
					result = append(result,
						ir.Char{C: '\\', ICase: p.flags.ICase},
						ir.Char{C: 'c', ICase: p.flags.ICase})
				}
			default:
				n, err := p.consumeAtomEscapeAfterBackslash()
				if err != nil {
					return nil, err
				}
				result = append(result, n)
			}
		case '.':
			p.consume('.')
			if p.flags.DotAll {
				result = append(result, ir.MatchAny{})
			} else {
				result = append(result, ir.MatchAnyExceptLineTerminator{})
			}
		case '(':
			n, quantOK, err := p.consumeGroup()
			if err != nil {
				return nil, err
			}
			quantifierAllowed = quantOK
			result = append(result, n)
		case '[':
			n, err := p.consumeBracket()
			if err != nil {
				return nil, err
			}
			result = append(result, n)
		case '{':
			if !p.flags.Unicode {
				if q := p.tryConsumeBracedQuantifier(); q != nil {
					return nil, errf("invalid braced quantifier")
				}
				p.consume(c)
				result = append(result, ir.Char{C: c, ICase: p.flags.ICase})
				break
			}
			return nil, errf("invalid atom character")
		case '*', '+', '?':
			return nil, errf("invalid atom character")
		case ']', '}':
			if p.flags.Unicode {
				return nil, errf("invalid atom character")
			}
			p.consume(c)
			result = append(result, ir.Char{C: p.foldIfICase(c), ICase: p.flags.ICase})
		default:
			p.consume(c)
			result = append(result, ir.Char{C: p.foldIfICase(c), ICase: p.flags.ICase})
		}

		quant, err := p.tryConsumeQuantifier()
		if err != nil {
			return nil, err
		}
		if quant != nil {
			if !quantifierAllowed {
				return nil, errf("quantifier not allowed here")
			}
			if quant.Min > quant.Max {
				return nil, errf("invalid quantifier")
			}
			quantifee := append([]ir.Node{}, result[startOffset:]...)
			result = result[:startOffset]
			if p.loopCount >= MaxLoops {
				return nil, errf("loop count limit exceeded")
			}
			p.loopCount++
			result = append(result, ir.Loop{
				Loopee:        makeCat(quantifee),
				Quant:         *quant,
				EnclosedStart: startGroup, EnclosedEnd: p.groupCount,
			})
		}
	}
}

func isASCIIAlpha(c uint32) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// consumeGroup parses a parenthesised group starting at '(': a lookaround
// assertion, a non-capturing group, or a (possibly named) capturing group.
// Returns the node and whether a trailing quantifier is permitted.
func (p *parser) consumeGroup() (ir.Node, bool, error) {
	var node ir.Node
	quantifierAllowed := true
	switch {
	case p.tryConsumeStr("(?="):
		quantifierAllowed = !p.flags.Unicode
		n, err := p.consumeLookaround(lookaroundParams{negate: false, backwards: false})
		if err != nil {
			return nil, false, err
		}
		node = n
	case p.tryConsumeStr("(?!"):
		quantifierAllowed = !p.flags.Unicode
		n, err := p.consumeLookaround(lookaroundParams{negate: true, backwards: false})
		if err != nil {
			return nil, false, err
		}
		node = n
	case p.tryConsumeStr("(?<="):
		quantifierAllowed = false
		p.hasLookbehind = true
		n, err := p.consumeLookaround(lookaroundParams{negate: false, backwards: true})
		if err != nil {
			return nil, false, err
		}
		node = n
	case p.tryConsumeStr("(?<!"):
		quantifierAllowed = false
		p.hasLookbehind = true
		n, err := p.consumeLookaround(lookaroundParams{negate: true, backwards: true})
		if err != nil {
			return nil, false, err
		}
		node = n
	case p.tryConsumeStr("(?:"):
		n, err := p.consumeDisjunction()
		if err != nil {
			return nil, false, err
		}
		node = n
	default:
		p.consume('(')
		group := p.groupCount
		if int(p.groupCount) >= MaxCaptureGroups {
			return nil, false, errf("capture group count limit exceeded")
		}
		p.groupCount++
		if p.tryConsumeStr("?") {
			name, ok := p.tryConsumeNamedCaptureGroupName()
			if !ok {
				return nil, false, errf("invalid token at named capture group identifier")
			}
			contents, err := p.consumeDisjunction()
			if err != nil {
				return nil, false, err
			}
			node = ir.NamedCaptureGroup{Child: contents, ID: group, Name: name}
		} else {
			contents, err := p.consumeDisjunction()
			if err != nil {
				return nil, false, err
			}
			node = ir.CaptureGroup{Child: contents, ID: group}
		}
	}
	if !p.tryConsume(')') {
		return nil, false, errf("unbalanced parenthesis")
	}
	return node, quantifierAllowed, nil
}

func (p *parser) consumeLookaround(params lookaroundParams) (ir.Node, error) {
	startGroup := p.groupCount
	contents, err := p.consumeDisjunction()
	if err != nil {
		return nil, err
	}
	endGroup := p.groupCount
	return ir.LookaroundAssertion{
		Negate: params.negate, Backwards: params.backwards,
		StartGroup: startGroup, EndGroup: endGroup,
		Contents: contents,
	}, nil
}

// consumeCharacterEscape implements ES6 21.2.2.10 CharacterEscape.
func (p *parser) consumeCharacterEscape() (uint32, error) {
	c, ok := p.next()
	if !ok {
		return 0, errf("incomplete escape")
	}
	switch rune(c) {
	case 'f':
		return 0xC, nil
	case 'n':
		return 0xA, nil
	case 'r':
		return 0xD, nil
	case 't':
		return 0x9, nil
	case 'v':
		return 0xB, nil
	case 'c':
		if nc, ok := p.next(); ok && isASCIIAlpha(nc) {
			return nc % 32, nil
		}
		return 0, errf("invalid character escape")
	case '0':
		if nc, ok := p.peek(); !ok || !isDigit(nc) {
			return 0x0, nil
		}
		return p.consumeLegacyOctal(c)
	case 'x':
		x1, ok1 := p.hexDigit()
		x2, ok2 := p.hexDigit()
		if ok1 && ok2 {
			return x1*16 + x2, nil
		}
		if !p.flags.Unicode {
			return c, nil
		}
		return 0, errf("invalid character escape")
	case 'u':
		if v, ok := p.tryEscapeUnicodeSequence(); ok {
			return v, nil
		}
		if !p.flags.Unicode {
			return c, nil
		}
		return 0, errf("invalid unicode escape")
	case '1', '2', '3', '4', '5', '6', '7':
		if !p.flags.Unicode {
			return p.consumeLegacyOctal(c)
		}
		return 0, errf("invalid character escape")
	case '^', '$', '\\', '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '|', '/':
		return c, nil
	default:
		if !p.flags.Unicode {
			return c, nil
		}
		return 0, errf("invalid character escape")
	}
}

// consumeLegacyOctal implements the ~UnicodeMode LegacyOctalEscapeSequence
// grammar; c is the already-consumed leading octal digit.
func (p *parser) consumeLegacyOctal(c uint32) (uint32, error) {
	c1, ok := p.peek()
	if !ok {
		return c - '0', nil
	}
	switch {
	case c == '0' && c1 >= '8' && c1 <= '9':
		return 0x0, nil
	case !isOctalDigit(c1):
		return c - '0', nil
	case c1 >= '4' && c1 <= '7':
		p.consume(c1)
		return (c-'0')*8 + (c1 - '0'), nil
	default: // c1 in 0..3
		p.consume(c1)
		if c2, ok := p.peek(); ok && isOctalDigit(c2) {
			p.consume(c2)
			return (c-'0')*64 + (c1-'0')*8 + (c2 - '0'), nil
		}
		return (c-'0')*8 + (c1 - '0'), nil
	}
}

func isDigit(c uint32) bool      { return c >= '0' && c <= '9' }
func isOctalDigit(c uint32) bool { return c >= '0' && c <= '7' }

func (p *parser) hexDigit() (uint32, bool) {
	c, ok := p.next()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(string(rune(c)), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// consumeAtomEscapeAfterBackslash implements ES6 21.2.2.9 AtomEscape; the
// leading backslash has already been consumed by the caller.
func (p *parser) consumeAtomEscapeAfterBackslash() (ir.Node, error) {
	c, ok := p.peek()
	if !ok {
		return nil, errf("incomplete escape")
	}
	switch rune(c) {
	case 'd', 'D':
		p.consume(c)
		return makeBracketClass(classDigits, c == 'd'), nil
	case 's', 'S':
		p.consume(c)
		return makeBracketClass(classSpaces, c == 's'), nil
	case 'w', 'W':
		p.consume(c)
		return makeBracketClass(classWords, c == 'w'), nil
	case 'p', 'P':
		if !p.flags.Unicode {
			break
		}
		p.consume(c)
		set, negate, err := p.consumeUnicodePropertyEscape(c == 'P')
		if err != nil {
			return nil, err
		}
		return ir.Bracket{Contents: cpset.Bracket{Invert: negate, CPS: set}}, nil
	case 'k':
		if p.flags.Unicode || len(p.namedGroupIndices) != 0 {
			p.consume('k')
			name, ok := p.tryConsumeNamedCaptureGroupName()
			if !ok {
				return nil, errf("unexpected end of named backreference")
			}
			idx, ok := p.namedGroupIndices[name]
			if !ok {
				return nil, errf("backreference to invalid named capture group: %s", name)
			}
			return ir.BackRef{Group: idx + 1, ICase: p.flags.ICase}, nil
		}
		p.consume('k')
		return ir.Char{C: p.foldIfICase(c), ICase: p.flags.ICase}, nil
	}
	if c >= '1' && c <= '9' {
		save := p.pos
		group := p.consumeDecimalIntegerLiteral()
		if group <= p.groupCountMax {
			return ir.BackRef{Group: group, ICase: p.flags.ICase}, nil
		}
		if p.flags.Unicode {
			return nil, errf("invalid character escape")
		}
		p.pos = save
		ch, err := p.consumeCharacterEscape()
		if err != nil {
			return nil, err
		}
		return ir.Char{C: p.foldIfICase(ch), ICase: p.flags.ICase}, nil
	}
	ch, err := p.consumeCharacterEscape()
	if err != nil {
		return nil, err
	}
	return ir.Char{C: p.foldIfICase(ch), ICase: p.flags.ICase}, nil
}

func (p *parser) consumeDecimalIntegerLiteral() uint32 {
	var result uint64
	count := 0
	for {
		c, ok := p.peek()
		if !ok || !isDigit(c) {
			break
		}
		p.consume(c)
		count++
		result = result*10 + uint64(c-'0')
		if result > ir.Unbounded {
			result = ir.Unbounded
		}
	}
	if count == 0 {
		return 0
	}
	return uint32(result)
}

func (p *parser) consumeUnicodePropertyEscape(negate bool) (*cpset.Set, bool, error) {
	if !p.tryConsume('{') {
		return nil, false, errf("invalid character at property escape start")
	}
	var name, buf []rune
	haveName := false
	for {
		c, ok := p.peek()
		if !ok {
			return nil, false, errf("invalid property name")
		}
		switch {
		case c == '}':
			p.consume(c)
			key, value := string(buf), ""
			if haveName {
				value = string(buf)
				key = string(name)
			}
			set, err := unicodeset.Lookup(key, value)
			if err != nil {
				return nil, false, errf("invalid property name")
			}
			return set, negate, nil
		case c == '=' && !haveName:
			p.consume(c)
			name = buf
			buf = nil
			haveName = true
		case isASCIIAlphaNumeric(c) || c == '_':
			p.consume(c)
			buf = append(buf, rune(c))
		default:
			return nil, false, errf("invalid property name")
		}
	}
}

func isASCIIAlphaNumeric(c uint32) bool {
	return isASCIIAlpha(c) || isDigit(c)
}

// tryEscapeUnicodeSequence implements RegExpUnicodeEscapeSequence: either
// \u{X..X} or \uXXXX, combining a following \uXXXX low surrogate with a
// high surrogate when present and the unicode or unicodeSets flag is set.
func (p *parser) tryEscapeUnicodeSequence() (uint32, bool) {
	save := p.pos
	if p.tryConsume('{') {
		var buf []rune
		for {
			c, ok := p.next()
			if !ok {
				p.pos = save
				return 0, false
			}
			if rune(c) == '}' {
				break
			}
			buf = append(buf, rune(c))
		}
		v, err := strconv.ParseUint(string(buf), 16, 32)
		if err != nil || v > cpset.CodePointMax {
			p.pos = save
			return 0, false
		}
		return uint32(v), true
	}

	u, ok := p.hex4()
	if !ok {
		p.pos = save
		return 0, false
	}
	if u < 0xD800 || u > 0xDBFF || !(p.flags.Unicode || p.flags.UnicodeSets) {
		return u, true
	}
	// High surrogate: try to combine with a following low surrogate.
	resume := p.pos
	if !p.tryConsumeStr("\\u") {
		return u, true
	}
	uu, ok := p.hex4()
	if ok && uu >= 0xDC00 && uu <= 0xDFFF {
		r := utf16.DecodeRune(rune(u), rune(uu))
		if r != unicode.ReplacementChar {
			return uint32(r), true
		}
	}
	p.pos = resume
	return u, true
}

func (p *parser) hex4() (uint32, bool) {
	save := p.pos
	var buf [4]rune
	for i := 0; i < 4; i++ {
		c, ok := p.next()
		if !ok {
			p.pos = save
			return 0, false
		}
		buf[i] = rune(c)
	}
	v, err := strconv.ParseUint(string(buf[:]), 16, 32)
	if err != nil {
		p.pos = save
		return 0, false
	}
	return uint32(v), true
}

// tryConsumeNamedCaptureGroupName parses '<' GroupName '>'; the leading '<'
// is consumed by this function. GroupName follows IdentifierStart
// IdentifierPart* with $ and _ always permitted and \u escapes allowed.
func (p *parser) tryConsumeNamedCaptureGroupName() (string, bool) {
	if !p.tryConsume('<') {
		return "", false
	}
	save := p.pos
	var name []rune

	readChar := func() (rune, bool) {
		c, ok := p.next()
		if !ok {
			return 0, false
		}
		if rune(c) == '\\' && p.tryConsume('u') {
			esc, ok := p.tryEscapeUnicodeSequence()
			if !ok {
				return 0, false
			}
			return rune(esc), true
		}
		return rune(c), true
	}

	c, ok := readChar()
	if !ok {
		p.pos = save
		return "", false
	}
	if isIDStart(c) || c == '$' || c == '_' {
		name = append(name, c)
	} else {
		p.pos = save
		return "", false
	}

	for {
		c, ok := readChar()
		if !ok {
			p.pos = save
			return "", false
		}
		if c == '>' {
			break
		}
		if isIDContinue(c) || c == '$' || c == '_' || c == '‌' || c == '‍' {
			name = append(name, c)
		} else {
			p.pos = save
			return "", false
		}
	}
	return string(name), true
}

func isIDStart(r rune) bool {
	return r == '_' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		unicode.IsLetter(r)
}

func isIDContinue(r rune) bool {
	if isIDStart(r) || (r >= '0' && r <= '9') {
		return true
	}
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Pc, r) ||
		unicode.Is(unicode.Nd, r)
}

// tryConsumeQuantifier implements ES6 21.2.2.6 Quantifier.
func (p *parser) tryConsumeQuantifier() (*ir.Quantifier, error) {
	q, err := p.tryConsumeQuantifierPrefix()
	if err != nil || q == nil {
		return q, err
	}
	q.Greedy = !p.tryConsume('?')
	return q, nil
}

func (p *parser) tryConsumeQuantifierPrefix() (*ir.Quantifier, error) {
	c, ok := p.peek()
	if !ok {
		return nil, nil
	}
	switch rune(c) {
	case '+':
		p.consume('+')
		return &ir.Quantifier{Min: 1, Max: ir.Unbounded, Greedy: true}, nil
	case '*':
		p.consume('*')
		return &ir.Quantifier{Min: 0, Max: ir.Unbounded, Greedy: true}, nil
	case '?':
		p.consume('?')
		return &ir.Quantifier{Min: 0, Max: 1, Greedy: true}, nil
	case '{':
		if q := p.tryConsumeBracedQuantifier(); q != nil {
			return q, nil
		}
		if p.flags.Unicode {
			return nil, errf("invalid quantifier")
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (p *parser) tryConsumeBracedQuantifier() *ir.Quantifier {
	save := p.pos
	p.consume('{')
	min, ok := p.tryConsumeDecimalIntegerLiteral()
	if !ok {
		p.pos = save
		return nil
	}
	quant := ir.Quantifier{Min: min, Max: min, Greedy: true}
	if p.tryConsume(',') {
		if max, ok := p.tryConsumeDecimalIntegerLiteral(); ok {
			quant.Max = max
		} else {
			quant.Max = ir.Unbounded
		}
	}
	if !p.tryConsume('}') {
		p.pos = save
		return nil
	}
	return &quant
}

func (p *parser) tryConsumeDecimalIntegerLiteral() (uint32, bool) {
	start := p.pos
	v := p.consumeDecimalIntegerLiteral()
	if p.pos == start {
		return 0, false
	}
	return v, true
}

// consumeBracket implements ES6 21.2.2.13 CharacterClass.
// consumeBracket parses a bracket expression (`[...]`). Under the
// unicode_sets (`v`) flag, the contents follow ES2024 22.2.1's
// ClassSetExpression grammar (nested classes, `&&` intersection, `--`
// subtraction); otherwise the classic ClassRanges grammar (a flat run of
// atoms and `a-z` ranges) applies.
func (p *parser) consumeBracket() (ir.Node, error) {
	p.consume('[')
	invert := p.tryConsume('^')

	var cps *cpset.Set
	var err error
	if p.flags.UnicodeSets {
		cps, err = p.consumeClassSetExpression()
	} else {
		cps, err = p.consumeClassAtomsUntil(false)
	}
	if err != nil {
		return nil, err
	}
	if !p.tryConsume(']') {
		return nil, errf("unbalanced bracket")
	}
	if p.flags.ICase {
		cps = fold.Closure(cps)
	}
	return ir.Bracket{Contents: cpset.Bracket{Invert: invert, CPS: cps}}, nil
}

// consumeClassAtomsUntil parses a flat run of class atoms and `a-z` ranges,
// stopping at the closing `]` or, when stopOnOps is set, at a following
// `&&`/`--` class-set operator (so a v-mode plain union can hand off to
// consumeClassSetExpression's operator handling without consuming it).
func (p *parser) consumeClassAtomsUntil(stopOnOps bool) (*cpset.Set, error) {
	cps := cpset.New()
	for {
		c, ok := p.peek()
		if !ok {
			return nil, errf("unbalanced bracket")
		}
		if rune(c) == ']' {
			return cps, nil
		}
		if stopOnOps && (p.peekStr("&&") || p.peekStr("--")) {
			return cps, nil
		}

		first, err := p.tryConsumeBracketClassAtom()
		if err != nil {
			return nil, err
		}
		if first == nil {
			continue
		}

		if !p.tryConsume('-') {
			addClassAtom(cps, first)
			continue
		}

		second, err := p.tryConsumeBracketClassAtom()
		if err != nil {
			return nil, err
		}
		if second == nil {
			addClassAtom(cps, first)
			addClassAtom(cps, &caCodePoint{c: '-'})
			continue
		}

		c1, ok1 := first.(*caCodePoint)
		c2, ok2 := second.(*caCodePoint)
		if ok1 && ok2 {
			if c1.c > c2.c {
				return nil, errf("range values reversed, start char code is greater than end char code")
			}
			cps.Add(cpset.Interval{First: c1.c, Last: c2.c})
			continue
		}

		if p.flags.Unicode || p.flags.UnicodeSets {
			return nil, errf("invalid character range")
		}
		addClassAtom(cps, first)
		addClassAtom(cps, &caCodePoint{c: '-'})
		addClassAtom(cps, second)
	}
}

// consumeClassSetExpression parses a v-mode ClassContents: a single leading
// operand decides the shape — followed by one or more `&&` it's an
// intersection chain, by one or more `--` a subtraction chain, otherwise a
// plain union that continues consuming further atoms/ranges the classic way.
// ES2024 disallows mixing `&&` and `--` at the same nesting level without
// parenthesising via a nested `[...]`, so only one operator kind is
// recognised per call.
func (p *parser) consumeClassSetExpression() (*cpset.Set, error) {
	first, err := p.consumeClassSetOperand()
	if err != nil {
		return nil, err
	}
	switch {
	case p.tryConsumeStr("&&"):
		result := first
		for {
			right, err := p.consumeClassSetOperand()
			if err != nil {
				return nil, err
			}
			result = result.Intersect(right)
			if !p.tryConsumeStr("&&") {
				return result, nil
			}
		}
	case p.tryConsumeStr("--"):
		result := first
		for {
			right, err := p.consumeClassSetOperand()
			if err != nil {
				return nil, err
			}
			result = result.Subtract(right)
			if !p.tryConsumeStr("--") {
				return result, nil
			}
		}
	default:
		rest, err := p.consumeClassAtomsUntil(true)
		if err != nil {
			return nil, err
		}
		first.AddSet(rest)
		return first, nil
	}
}

// consumeClassSetOperand parses one v-mode ClassSetOperand: a nested
// `[...]` class, a `\q{...}` string disjunction, or a single atom/range at
// classic ClassAtom granularity.
func (p *parser) consumeClassSetOperand() (*cpset.Set, error) {
	c, ok := p.peek()
	if !ok {
		return nil, errf("unbalanced bracket")
	}
	if rune(c) == '[' {
		p.consume('[')
		inv := p.tryConsume('^')
		inner, err := p.consumeClassSetExpression()
		if err != nil {
			return nil, err
		}
		if !p.tryConsume(']') {
			return nil, errf("unbalanced bracket")
		}
		if inv {
			inner = inner.Inverted()
		}
		return inner, nil
	}
	if rune(c) == '\\' && p.tryConsumeStr(`\q{`) {
		return p.consumeClassStringDisjunction()
	}

	first, err := p.tryConsumeBracketClassAtom()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, errf("unexpected ] in class set expression")
	}
	cps := cpset.New()
	if !p.peekStr("--") && p.tryConsume('-') {
		second, err := p.tryConsumeBracketClassAtom()
		if err != nil {
			return nil, err
		}
		if second != nil {
			c1, ok1 := first.(*caCodePoint)
			c2, ok2 := second.(*caCodePoint)
			if ok1 && ok2 {
				if c1.c > c2.c {
					return nil, errf("range values reversed, start char code is greater than end char code")
				}
				cps.Add(cpset.Interval{First: c1.c, Last: c2.c})
				return cps, nil
			}
			return nil, errf("invalid character range")
		}
		addClassAtom(cps, first)
		addClassAtom(cps, &caCodePoint{c: '-'})
		return cps, nil
	}
	addClassAtom(cps, first)
	return cps, nil
}

// consumeClassStringDisjunction parses the body of a `\q{...}` string
// disjunction up to (not including) the leading `\q{`, which the caller has
// already consumed. Single-code-point alternatives (by far the common case,
// e.g. `\q{a|b|c}`) contribute to the set directly; an empty alternative
// contributes nothing (it matches the empty string, which a code-point set
// cannot represent). Multi-code-point alternatives would require a
// set-of-strings representation this engine's brackets don't carry, so they
// are rejected rather than silently flattened into the wrong (per-character)
// semantics.
func (p *parser) consumeClassStringDisjunction() (*cpset.Set, error) {
	cps := cpset.New()
	for {
		var codepoints []uint32
		for {
			c, ok := p.peek()
			if !ok {
				return nil, errf("unterminated \\q{...}")
			}
			if rune(c) == '}' || rune(c) == '|' {
				break
			}
			if rune(c) == '\\' {
				p.consume('\\')
				cc, err := p.consumeCharacterEscape()
				if err != nil {
					return nil, err
				}
				codepoints = append(codepoints, cc)
				continue
			}
			p.consume(c)
			codepoints = append(codepoints, c)
		}
		switch len(codepoints) {
		case 0:
		case 1:
			cps.AddOne(codepoints[0])
		default:
			return nil, errf("multi-character \\q{...} string alternatives are not supported")
		}
		if p.tryConsume('|') {
			continue
		}
		if !p.tryConsume('}') {
			return nil, errf("unterminated \\q{...}")
		}
		return cps, nil
	}
}

// peekStr reports whether s matches the upcoming units, without consuming.
func (p *parser) peekStr(s string) bool {
	save := p.pos
	ok := p.tryConsumeStr(s)
	p.pos = save
	return ok
}

// classAtom is the closed union of things that can appear on one side of a
// bracket range: a literal code point, a nested character-class escape, or
// a Unicode property escape's range (possibly negated).
type classAtom interface{ classAtomNode() }

type caCodePoint struct{ c uint32 }
type caClass struct {
	ct       characterClassType
	positive bool
}
type caRange struct {
	iv     *cpset.Set
	negate bool
}

func (*caCodePoint) classAtomNode() {}
func (*caClass) classAtomNode()     {}
func (*caRange) classAtomNode()     {}

func addClassAtom(cps *cpset.Set, atom classAtom) {
	switch a := atom.(type) {
	case *caCodePoint:
		cps.AddOne(a.c)
	case *caClass:
		cps.AddSet(codePointsFromClass(a.ct, a.positive))
	case *caRange:
		if a.negate {
			cps.AddSet(a.iv.Inverted())
		} else {
			cps.AddSet(a.iv)
		}
	}
}

func (p *parser) tryConsumeBracketClassAtom() (classAtom, error) {
	c, ok := p.peek()
	if !ok {
		return nil, nil
	}
	switch rune(c) {
	case ']':
		return nil, nil
	case '\\':
		p.consume('\\')
		ec, ok := p.peek()
		if !ok {
			return nil, errf("unterminated escape")
		}
		switch rune(ec) {
		case 'b':
			p.consume('b')
			return &caCodePoint{c: 0x08}, nil
		case '-':
			if p.flags.Unicode {
				p.consume('-')
				return &caCodePoint{c: '-'}, nil
			}
		case 'c':
			if !p.flags.Unicode {
				save := p.pos
				p.consume('c')
				nc, ok := p.peek()
				switch {
				case ok && (isDigit(nc) || nc == '_'):
					p.consume(nc)
					return &caCodePoint{c: nc & 0x1F}, nil
				case ok && isASCIIAlpha(nc):
					p.consume(nc)
					return &caCodePoint{c: nc % 32}, nil
				default:
					p.pos = save
					return &caCodePoint{c: '\\'}, nil
				}
			}
		case 'd', 'D':
			p.consume(ec)
			return &caClass{ct: classDigits, positive: ec == 'd'}, nil
		case 's', 'S':
			p.consume(ec)
			return &caClass{ct: classSpaces, positive: ec == 's'}, nil
		case 'w', 'W':
			p.consume(ec)
			return &caClass{ct: classWords, positive: ec == 'w'}, nil
		case 'p', 'P':
			if p.flags.Unicode {
				p.consume(ec)
				set, negate, err := p.consumeUnicodePropertyEscape(ec == 'P')
				if err != nil {
					return nil, err
				}
				return &caRange{iv: set, negate: negate}, nil
			}
		}
		cc, err := p.consumeCharacterEscape()
		if err != nil {
			return nil, err
		}
		return &caCodePoint{c: cc}, nil
	default:
		p.consume(c)
		return &caCodePoint{c: c}, nil
	}
}

// scanCaptureGroups makes a quick prepass over the whole pattern to learn
// the total and named capture groups before the real parse begins, so
// forward backreferences (\1, \k<name>) resolve correctly.
func (p *parser) scanCaptureGroups() error {
	save := p.pos
	defer func() { p.pos = save }()

	for {
		c, ok := p.next()
		if !ok {
			break
		}
		switch rune(c) {
		case '\\':
			p.next()
		case '[':
			for {
				c2, ok := p.next()
				if !ok {
					break
				}
				if rune(c2) == '\\' {
					p.next()
					continue
				}
				if rune(c2) == ']' {
					break
				}
			}
		case '(':
			if p.tryConsumeStr("?") {
				name, ok := p.tryConsumeNamedCaptureGroupName()
				if !ok {
					// (?:, (?=, (?!, (?<= and (?<! do not capture.
					continue
				}
				if _, dup := p.namedGroupIndices[name]; dup {
					return errf("duplicate capture group name")
				}
				p.namedGroupIndices[name] = p.groupCountMax
			}
			if p.groupCountMax+1 > MaxCaptureGroups {
				p.groupCountMax = MaxCaptureGroups
			} else {
				p.groupCountMax++
			}
		}
	}
	return nil
}

// finalize runs post-parse fixups: if the pattern contained a lookbehind,
// Cat children inside every backward lookaround's contents are reversed so
// the backward matcher visits subexpressions in source reading order.
func (p *parser) finalize(re ir.Regex) (ir.Regex, error) {
	if p.hasLookbehind {
		re.Root = ir.Transform(re.Root, func(n ir.Node, inLookbehind bool) ir.Node {
			cat, ok := n.(ir.Cat)
			if !ok || !inLookbehind {
				return n
			}
			reversed := make([]ir.Node, len(cat.Children))
			for i, c := range cat.Children {
				reversed[len(cat.Children)-1-i] = c
			}
			cat.Children = reversed
			return cat
		})
	}
	return re, nil
}
