// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package markup compiles a declarative description of expected markup
// into a sequence of match rules which then consume an input string
// rule by rule.  E.g. the specification
//
//	rr, err := markup.Compile(
//	    markup.Open("input", markup.Is("name", "x"), markup.Present("id")),
//	    markup.Tag{Name: "p"},
//	    "hello",
//	    "/p",
//	)
//
// matches
//
//	<input id="a" name="x"><p>hello</p>
//
// The matching is forgiving about whitespace around tags and accepts
// any order of a tag's attributes.  Spec items are
//   - Tag values describing an opening tag with attribute constraints,
//   - strings starting with "<" describing an opening tag without
//     attribute constraints, e.g. "<p",
//   - strings starting with "/" describing a closing tag, e.g. "/p",
//   - strings starting with "*/" describing anything followed by a
//     closing tag, e.g. "*/p",
//   - strings of the form "preg:/regexp/" describing a pattern the
//     input must continue with,
//   - any other string describing literal text the input must continue
//     with.
package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/slukits/ints"
)

// MaxPermutedAttrs is the maximum number of attribute constraints of a
// tag.  The attribute block of a tag compiles into an alternative for
// each permutation of its constraints, i.e. n constraints compile into
// n! regular expressions.
const MaxPermutedAttrs = 6

var (
	// ErrTooManyAttrs is returned by Compile for a tag having more than
	// MaxPermutedAttrs attribute constraints.
	ErrTooManyAttrs = errors.New("markup: too many attribute constraints")

	// ErrPattern is returned by Compile if a rule's pattern doesn't
	// compile.
	ErrPattern = errors.New("markup: invalid pattern")

	// ErrItem is returned by Compile for a spec item of unknown type.
	ErrItem = errors.New("markup: unknown spec item")
)

type attrKind int

const (
	attrIs attrKind = iota
	attrPresent
	attrPattern
)

// Attr constrains an attribute of a Tag.  Attr values are created by
// Is, Present and Pattern.
type Attr struct {
	kind        attrKind
	name, value string
}

// Is constrains the attribute with given name to have given value.  A
// value of the form "preg:/regexp/" constrains the attribute's value,
// quoted or not, to be matched by the regexp.
func Is(name, value string) Attr {
	return Attr{kind: attrIs, name: name, value: value}
}

// Present constrains the attribute with given name to be present with
// a non-empty value.
func Present(name string) Attr {
	return Attr{kind: attrPresent, name: name}
}

// Pattern constrains a tag to contain an attribute block matched by
// given pattern which may be given as "preg:/regexp/" or as bare
// regexp.
func Pattern(pattern string) Attr {
	if p, ok := preg(pattern); ok {
		pattern = p
	}
	return Attr{kind: attrPattern, value: pattern}
}

// pattern returns the regexp and the explanation of given attribute
// constraint.
func (a Attr) pattern() (string, string) {
	switch a.kind {
	case attrPattern:
		return a.value, fmt.Sprintf("Regex %q matches", a.value)
	case attrPresent:
		return `[\s]+` + regexp.QuoteMeta(a.name) + `=".+?"`,
			fmt.Sprintf("Attribute %q present", a.name)
	}
	name := `[\s]+` + regexp.QuoteMeta(a.name)
	if p, ok := preg(a.value); ok {
		return name + `="?` + p + `"?`,
			fmt.Sprintf("Attribute %q matches %q", a.name, p)
	}
	return name + `="` + regexp.QuoteMeta(a.value) + `"`,
		fmt.Sprintf("Attribute %q == %q", a.name, a.value)
}

// Tag describes an opening tag with given name and attribute
// constraints.
type Tag struct {
	Name  string
	Attrs []Attr
}

// Open returns a Tag with given name and attribute constraints.
func Open(name string, attrs ...Attr) Tag {
	return Tag{Name: name, Attrs: attrs}
}

// Rule is a compiled unit of a markup specification.  A rule matches if
// one of its patterns matches a prefix of the remaining input.
type Rule struct {

	// Description explains in words what the rule expects.
	Description string

	// Patterns are the alternative regular expressions of the rule.
	Patterns []string

	// Origin is the one-based index of the spec item the rule was
	// compiled from.
	Origin int

	rr []*regexp.Regexp
}

var (
	pregRe  = regexp.MustCompile(`(?i)^preg:/(.+)/$`)
	closeRe = regexp.MustCompile(`^\*?/`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func preg(s string) (string, bool) {
	m := pregRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Compile translates given spec items into match rules.  An error is
// returned if an item has an unknown type, a tag has too many attribute
// constraints or a resulting pattern doesn't compile.
func Compile(spec ...interface{}) ([]Rule, error) {
	rr := []Rule{}
	for i, item := range spec {
		origin := i + 1
		var (
			compiled []Rule
			err      error
		)
		switch item := item.(type) {
		case string:
			if strings.HasPrefix(item, "<") {
				compiled, err = compileTag(Tag{Name: item[1:]}, origin)
				break
			}
			compiled = []Rule{compileText(item, origin)}
		case Tag:
			compiled, err = compileTag(item, origin)
		case *Tag:
			compiled, err = compileTag(*item, origin)
		default:
			err = fmt.Errorf("%w: item #%d: %T", ErrItem, origin, item)
		}
		if err != nil {
			return nil, err
		}
		rr = append(rr, compiled...)
	}
	for i := range rr {
		for _, p := range rr[i].Patterns {
			re, err := regexp.Compile(`(?s)^(?:` + p + `)`)
			if err != nil {
				return nil, fmt.Errorf("%w: item #%d: %s: %v",
					ErrPattern, rr[i].Origin, rr[i].Description, err)
			}
			rr[i].rr = append(rr[i].rr, re)
		}
	}
	return rr, nil
}

func compileText(s string, origin int) Rule {
	m := closeRe.FindString(s)
	if m != "" && spaceRe.ReplaceAllString(s, "") != "//" {
		name := s[len(m):]
		description, prefix := fmt.Sprintf("Close %s tag", name), ""
		if m == "*/" {
			description, prefix = "Anything, "+description, ".*?"
		}
		return Rule{
			Description: description,
			Patterns: []string{prefix + `<[\s]*\/[\s]*` +
				regexp.QuoteMeta(name) + `[\s]*>[\n\r]*`},
			Origin: origin,
		}
	}
	if p, ok := preg(s); ok {
		return Rule{Description: fmt.Sprintf("Regex matches %q", p),
			Patterns: []string{p}, Origin: origin}
	}
	return Rule{Description: fmt.Sprintf("Text equals %q", s),
		Patterns: []string{regexp.QuoteMeta(s)}, Origin: origin}
}

func compileTag(t Tag, origin int) ([]Rule, error) {
	if len(t.Attrs) > MaxPermutedAttrs {
		return nil, fmt.Errorf("%w: item #%d: %s: %d > %d",
			ErrTooManyAttrs, origin, t.Name, len(t.Attrs),
			MaxPermutedAttrs)
	}
	rr := []Rule{{
		Description: fmt.Sprintf("Open %s tag", t.Name),
		Patterns:    []string{`[\s]*<` + regexp.QuoteMeta(t.Name)},
		Origin:      origin,
	}}
	if len(t.Attrs) > 0 {
		pp, ee := make([]string, len(t.Attrs)), make([]string, len(t.Attrs))
		for i, a := range t.Attrs {
			pp[i], ee[i] = a.pattern()
		}
		alternatives := []string{}
		for _, p := range permute(pp) {
			alternatives = append(alternatives, strings.Join(p, ""))
		}
		rr = append(rr, Rule{
			Description: strings.Join(ee, ", "),
			Patterns:    alternatives,
			Origin:      origin,
		})
	}
	return append(rr, Rule{
		Description: fmt.Sprintf("End %s tag", t.Name),
		Patterns:    []string{`[\s]*\/?[\s]*>[\n\r]*`},
		Origin:      origin,
	}), nil
}

// permute returns all permutations of given items.
func permute[T any](items []T) [][]T {
	if len(items) <= 1 {
		return [][]T{append([]T{}, items...)}
	}
	pp := [][]T{}
	for i := range items {
		rest := make([]T, 0, len(items)-1)
		rest = append(append(rest, items[:i]...), items[i+1:]...)
		for _, p := range permute(rest) {
			pp = append(pp, append([]T{items[i]}, p...))
		}
	}
	return pp
}

// Match reports the outcome of running compiled rules against an input.
type Match struct {

	// Matched is true iff all rules consumed a prefix of the remaining
	// input.
	Matched bool

	// Failed is the first rule which didn't match; nil if Matched.
	Failed *Rule

	// Index is the index of the failed rule; -1 if Matched.
	Index int

	// Remainder is the input which was left when the matching stopped.
	Remainder string

	// Items is the set of spec item origins whose rules all matched.
	Items *ints.Set
}

// Run consumes given input with given rules in their order which must
// have been created by Compile.  The matching stops at the first rule
// none of whose patterns matches a prefix of the remaining input.
func Run(rr []Rule, input string) Match {
	m := Match{Index: -1, Remainder: input, Items: &ints.Set{}}
	for i := range rr {
		n := rr[i].consume(m.Remainder)
		if n < 0 {
			m.Failed, m.Index = &rr[i], i
			return m
		}
		m.Remainder = m.Remainder[n:]
		if i+1 == len(rr) || rr[i+1].Origin != rr[i].Origin {
			m.Items.Add(rr[i].Origin)
		}
	}
	m.Matched = true
	return m
}

// consume returns the length of the prefix of given input matched by
// the first matching alternative of r or -1 if none matches.
func (r *Rule) consume(input string) int {
	for _, re := range r.rr {
		if loc := re.FindStringIndex(input); loc != nil {
			return loc[1]
		}
	}
	return -1
}

// Matches compiles given spec and runs the resulting rules against
// given input.
func Matches(input string, spec ...interface{}) (Match, error) {
	rr, err := Compile(spec...)
	if err != nil {
		return Match{}, err
	}
	return Run(rr, input), nil
}
