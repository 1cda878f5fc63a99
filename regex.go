// Package esregex implements an ECMAScript (ES2018+) regular-expression
// engine: a recursive-descent parser, a fix-point IR optimizer, a bytecode
// emitter, and a classical-backtracking matcher, fronted by a compile-once /
// match-many API.
//
// Unlike Go's stdlib regexp (RE2 syntax, no backreferences or lookaround,
// linear-time guarantee), this engine accepts full ES regex syntax —
// backreferences, arbitrary-width lookaround, named groups — at the cost of
// backtracking's worst-case behaviour on adversarial patterns.
//
// Basic usage:
//
//	re, err := esregex.Compile(`(\w+)@(\w+)\.(\w+)`, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if re.MatchString("user@example.com") {
//	    fmt.Println(re.FindStringSubmatch("user@example.com"))
//	}
//
// Flags are a string of letters: i (case-insensitive), m (multiline), s
// (dot-all), u (unicode), v (unicode_sets). Unknown letters are ignored, per
// the ES `compile` contract.
package esregex

import (
	"github.com/coregx/esregex/backtrack"
	"github.com/coregx/esregex/emit"
	"github.com/coregx/esregex/insn"
	"github.com/coregx/esregex/ir"
	"github.com/coregx/esregex/optimize"
	"github.com/coregx/esregex/parse"
)

// Regex represents a compiled ECMAScript regular expression.
//
// A Regex is safe to use concurrently from multiple goroutines: compilation
// produces an immutable insn.CompiledRegex, and each match attempt runs
// against a freshly constructed matcher (see package backtrack).
//
// Example:
//
//	re := esregex.MustCompile(`hello`, "i")
//	if re.MatchString("HELLO world") {
//	    println("matched!")
//	}
type Regex struct {
	exec    *backtrack.Executor
	cr      insn.CompiledRegex
	pattern string
	flags   string
}

// parseFlags turns a flag-letter string into ir.Flags. Unknown letters are
// silently ignored, per spec §6.
func parseFlags(flags string) ir.Flags {
	var f ir.Flags
	for _, c := range flags {
		switch c {
		case 'i':
			f.ICase = true
		case 'm':
			f.Multiline = true
		case 's':
			f.DotAll = true
		case 'u':
			f.Unicode = true
		case 'v':
			f.UnicodeSets = true
		}
	}
	return f
}

// Compile compiles pattern under flags into a Regex, using DefaultConfig.
//
// Example:
//
//	re, err := esregex.Compile(`\d{3}-\d{4}`, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(pattern, flags string) (*Regex, error) {
	return CompileWithConfig(pattern, flags, DefaultConfig())
}

// MustCompile compiles pattern under flags and panics if it fails.
//
// Example:
//
//	var email = esregex.MustCompile(`[a-z]+@[a-z]+\.[a-z]+`, "i")
func MustCompile(pattern, flags string) *Regex {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic(err)
	}
	return re
}

// CompileWithConfig compiles pattern under flags with a custom Config,
// governing capture-group/loop limits and whether the optimizer runs.
//
// Example:
//
//	config := esregex.DefaultConfig()
//	config.DisableOptimizer = true // isolate an optimizer bug
//	re, err := esregex.CompileWithConfig(`(a|b)*c`, "", config)
func CompileWithConfig(pattern, flags string, config Config) (*Regex, error) {
	if err := config.Validate(); err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	f := parseFlags(flags)
	f.NoOpt = config.DisableOptimizer

	re, err := parse.Parse(pattern, f)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	re = optimize.Optimize(re)
	cr := emit.Emit(re)

	if int(cr.Groups) > config.MaxCaptureGroups {
		return nil, &CompileError{Pattern: pattern, Err: &ConfigError{
			Field:   "MaxCaptureGroups",
			Message: "pattern exceeds configured capture group limit",
		}}
	}
	if int(cr.Loops) > config.MaxLoops {
		return nil, &CompileError{Pattern: pattern, Err: &ConfigError{
			Field:   "MaxLoops",
			Message: "pattern exceeds configured loop limit",
		}}
	}

	return &Regex{
		exec:    backtrack.NewExecutor(&cr),
		cr:      cr,
		pattern: pattern,
		flags:   flags,
	}, nil
}

// Match reports whether b contains any match of the pattern.
//
// Example:
//
//	re := esregex.MustCompile(`\d+`, "")
//	if re.Match([]byte("hello 123")) {
//	    println("contains digits")
//	}
func (r *Regex) Match(b []byte) bool {
	_, ok := r.exec.NextMatch(b, 0)
	return ok
}

// MatchString reports whether s contains any match of the pattern.
func (r *Regex) MatchString(s string) bool {
	return r.Match([]byte(s))
}

// Find returns the leftmost match in b, or nil if there is none.
//
// Example:
//
//	re := esregex.MustCompile(`\d+`, "")
//	println(string(re.Find([]byte("age: 42")))) // "42"
func (r *Regex) Find(b []byte) []byte {
	m, ok := r.exec.NextMatch(b, 0)
	if !ok {
		return nil
	}
	return b[m.Start:m.End]
}

// FindString returns the leftmost match in s, or "" if there is none.
func (r *Regex) FindString(s string) string {
	m := r.Find([]byte(s))
	if m == nil {
		return ""
	}
	return string(m)
}

// FindIndex returns a two-element slice [start,end) of the leftmost match
// in b, or nil if there is none.
func (r *Regex) FindIndex(b []byte) []int {
	m, ok := r.exec.NextMatch(b, 0)
	if !ok {
		return nil
	}
	return []int{m.Start, m.End}
}

// FindStringIndex is FindIndex for a string subject.
func (r *Regex) FindStringIndex(s string) []int {
	return r.FindIndex([]byte(s))
}

// FindAll returns every successive, non-overlapping match in b. If n >= 0 it
// returns at most n matches; n < 0 means unlimited.
//
// Example:
//
//	re := esregex.MustCompile(`\d+`, "")
//	for _, m := range re.FindAll([]byte("1 2 3"), -1) {
//	    println(string(m))
//	}
func (r *Regex) FindAll(b []byte, n int) [][]byte {
	if n == 0 {
		return nil
	}
	var out [][]byte
	for _, m := range r.exec.AllMatches(b) {
		out = append(out, b[m.Start:m.End])
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out
}

// FindAllIndex returns the index pairs [start,end) of every successive,
// non-overlapping match in b. If n >= 0 it returns at most n matches; n < 0
// means unlimited.
func (r *Regex) FindAllIndex(b []byte, n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	for _, m := range r.exec.AllMatches(b) {
		out = append(out, []int{m.Start, m.End})
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out
}

// FindAllStringIndex is FindAllIndex for a string subject.
func (r *Regex) FindAllStringIndex(s string, n int) [][]int {
	return r.FindAllIndex([]byte(s), n)
}

// FindAllString is FindAll for a string subject.
func (r *Regex) FindAllString(s string, n int) []string {
	matches := r.FindAll([]byte(s), n)
	if matches == nil {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m)
	}
	return out
}

// FindSubmatch returns the leftmost match in b together with every capture
// group's text. Result[0] is the whole match; result[i] is group i.
// Unmatched groups are nil. Returns nil if there is no match.
//
// Example:
//
//	re := esregex.MustCompile(`(\w+)@(\w+)\.(\w+)`, "")
//	m := re.FindSubmatch([]byte("user@example.com"))
//	// m[0] = "user@example.com", m[1] = "user", ...
func (r *Regex) FindSubmatch(b []byte) [][]byte {
	m, ok := r.exec.NextMatch(b, 0)
	if !ok {
		return nil
	}
	out := make([][]byte, len(m.Captures)+1)
	out[0] = b[m.Start:m.End]
	for i, c := range m.Captures {
		if c.Matched {
			out[i+1] = b[c.Start:c.End]
		}
	}
	return out
}

// FindStringSubmatch is FindSubmatch for a string subject.
func (r *Regex) FindStringSubmatch(s string) []string {
	groups := r.FindSubmatch([]byte(s))
	if groups == nil {
		return nil
	}
	out := make([]string, len(groups))
	for i, g := range groups {
		if g != nil {
			out[i] = string(g)
		}
	}
	return out
}

// FindSubmatchIndex returns index pairs for the leftmost match and its
// capture groups: result[2*i:2*i+2] is group i's [start,end); unmatched
// groups are [-1,-1]. Returns nil if there is no match.
func (r *Regex) FindSubmatchIndex(b []byte) []int {
	m, ok := r.exec.NextMatch(b, 0)
	if !ok {
		return nil
	}
	out := make([]int, (len(m.Captures)+1)*2)
	out[0], out[1] = m.Start, m.End
	for i, c := range m.Captures {
		if c.Matched {
			out[(i+1)*2] = c.Start
			out[(i+1)*2+1] = c.End
		} else {
			out[(i+1)*2] = -1
			out[(i+1)*2+1] = -1
		}
	}
	return out
}

// FindStringSubmatchIndex is FindSubmatchIndex for a string subject.
func (r *Regex) FindStringSubmatchIndex(s string) []int {
	return r.FindSubmatchIndex([]byte(s))
}

// String returns the source pattern text used to compile the regular
// expression.
func (r *Regex) String() string {
	return r.pattern
}

// NumSubexp returns the number of capture groups in the pattern (not
// counting the implicit whole-match group 0).
func (r *Regex) NumSubexp() int {
	return int(r.cr.Groups)
}

// SubexpIndex returns the index of the first capture group named name, or
// -1 if there is no such group.
func (r *Regex) SubexpIndex(name string) int {
	if id, ok := r.cr.NamedGroupIndices[name]; ok {
		return int(id) + 1
	}
	return -1
}
