// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diff compares arbitrarily nested values and reports where
// they diverge.  Two comparison modes are provided: Loose compares
// values by their representation, i.e. 1, 1.0 and "1" are considered
// equal, while Strict requires the same type and value.
//
// Compare returns a Node which is either a Match, an informational
// placeholder (Info), a Leaf mismatch or a Branch of mismatches found
// in a composite value:
//
//	n := diff.Compare(diff.Strict,
//	    map[string]int{"a": 1, "b": 2}, map[string]int{"a": 1})
//	fmt.Print(n)
//	// trace: [b]
//	// expected: 2
//	// result: absent
package diff

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Mode selects the equality rule of a comparison.
type Mode int

const (
	// Loose considers values equal if they represent the same value
	// regardless of their types.
	Loose Mode = iota
	// Strict considers values equal if they have the same type and the
	// same value.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "loose"
}

// Kind classifies a Node.
type Kind int

const (
	// Match is reported for equal scalars.
	Match Kind = iota
	// Info carries expected and result without reporting a mismatch,
	// e.g. for composites without divergent entries or for loosely
	// equal values of different types.
	Info
	// Leaf reports a mismatch at its Trace.
	Leaf
	// Branch collects the mismatches of a composite's entries.
	Branch
)

type absent struct{}

func (absent) String() string   { return "absent" }
func (absent) GoString() string { return "absent" }

// Absent is reported as result of a Leaf whose composite lacks the
// expected key or index.
var Absent interface{} = absent{}

var absentType = reflect.TypeOf(absent{})

// Node is the result of a comparison.
type Node struct {
	Kind Kind

	// Trace is the path from the compared root to the node, e.g.
	// ".Users[2].Name" where ".Field" denotes a struct field and
	// "[key]" an index or map key.
	Trace string

	// Expected and Result are the compared values.  Are their types
	// different they hold the types' names instead.
	Expected, Result interface{}

	// Nodes are the mismatches of a Branch.
	Nodes []Node
}

// Equal returns true iff given node doesn't contain any mismatch.
func (n Node) Equal() bool { return len(n.Leaves()) == 0 }

// Leaves returns the mismatches of given node in order of appearance.
func (n Node) Leaves() []Node {
	switch n.Kind {
	case Leaf:
		return []Node{n}
	case Branch:
		ll := []Node{}
		for _, c := range n.Nodes {
			ll = append(ll, c.Leaves()...)
		}
		return ll
	}
	return nil
}

// String renders the mismatches of given node; or expected and result
// of an informational node.
func (n Node) String() string {
	switch n.Kind {
	case Match:
		return ""
	case Branch:
		b := strings.Builder{}
		for _, c := range n.Nodes {
			b.WriteString(c.String())
		}
		return b.String()
	}
	return fmt.Sprintf("trace: %s\nexpected: %#v\nresult: %#v\n",
		n.Trace, n.Expected, n.Result)
}

// Compare compares given expected value with given actual value
// using given mode.
func Compare(mode Mode, expected, actual interface{}) Node {
	return CompareAt(mode, expected, actual, "")
}

// CompareAt compares given values like Compare does whereas the
// reported traces are prefixed with given trace.
func CompareAt(mode Mode, expected, actual interface{}, trace string) Node {
	c := &comparer{mode: mode, visited: map[visit]bool{}}
	return c.compare(reflect.ValueOf(expected), reflect.ValueOf(actual),
		trace)
}

// Equal returns true iff given values are deeply equal in given mode.
func Equal(mode Mode, a, b interface{}) bool {
	return newEqualer(mode).equal(reflect.ValueOf(a), reflect.ValueOf(b))
}

// visit identifies a pair of compared references.  The actual
// reference is zero if the expected one is compared with Absent.
type visit struct {
	kind reflect.Kind
	e, a uintptr
}

type comparer struct {
	mode    Mode
	visited map[visit]bool
}

func (c *comparer) compare(e, a reflect.Value, trace string) Node {
	e, a = indirect(e), indirect(a)
	if c.mode == Loose && isAbsent(a) && isComposite(deref(e)) {
		if isRef(e) {
			if c.seen(e, a) {
				return Node{Kind: Match, Trace: trace}
			}
			defer c.leave(e, a)
		}
		return c.entries(deref(e), a, trace)
	}
	if typeName(e) != typeName(a) {
		n := Node{Kind: Leaf, Trace: trace,
			Expected: typeName(e), Result: typeName(a)}
		if c.mode == Loose && c.equal(e, a) {
			n.Kind = Info
		}
		return n
	}
	if !e.IsValid() {
		return Node{Kind: Match, Trace: trace}
	}
	if e.Kind() == reflect.Pointer {
		if e.IsNil() || a.IsNil() {
			if e.IsNil() && a.IsNil() {
				return Node{Kind: Match, Trace: trace}
			}
			return leaf(trace, e, a)
		}
		if c.seen(e, a) {
			return Node{Kind: Match, Trace: trace}
		}
		defer c.leave(e, a)
		return c.compare(e.Elem(), a.Elem(), trace)
	}
	if isComposite(e) {
		if isRef(e) && isRef(a) {
			if c.seen(e, a) {
				return Node{Kind: Match, Trace: trace}
			}
			defer c.leave(e, a)
		}
		return c.entries(e, a, trace)
	}
	if c.equal(e, a) {
		return Node{Kind: Match, Trace: trace}
	}
	return leaf(trace, e, a)
}

// entries compares each entry of given expected composite with its
// counterpart in given actual value.
func (c *comparer) entries(e, a reflect.Value, trace string) Node {
	nn := []Node{}
	for _, en := range entriesOf(e, a, trace) {
		ev, av := indirect(en.expected), indirect(en.actual)
		if c.mode == Strict {
			if c.equal(ev, av) {
				continue
			}
			if isAbsent(av) {
				return leaf(en.trace, ev, av)
			}
		} else {
			if c.equal(ev, av) {
				continue
			}
			if !isComposite(deref(ev)) {
				nn = append(nn, leaf(en.trace, ev, av))
				continue
			}
		}
		n := c.compare(ev, av, en.trace)
		if n.Kind == Leaf || n.Kind == Branch {
			nn = append(nn, n)
		}
	}
	if len(nn) == 0 {
		return Node{Kind: Info, Trace: trace,
			Expected: valueOf(e), Result: valueOf(a)}
	}
	return Node{Kind: Branch, Trace: trace, Nodes: nn}
}

type entry struct {
	trace            string
	expected, actual reflect.Value
}

var absentValue = reflect.ValueOf(Absent)

// entriesOf pairs each key or index of given expected composite with
// the corresponding value of given actual composite or Absent.
func entriesOf(e, a reflect.Value, trace string) []entry {
	lookup := func(get func() reflect.Value, ok bool) reflect.Value {
		if !ok || isAbsent(a) {
			return absentValue
		}
		v := get()
		if !v.IsValid() {
			return absentValue
		}
		return v
	}
	ee := []entry{}
	switch e.Kind() {
	case reflect.Struct:
		for i := 0; i < e.NumField(); i++ {
			i := i
			ee = append(ee, entry{
				trace:    trace + "." + e.Type().Field(i).Name,
				expected: e.Field(i),
				actual: lookup(func() reflect.Value {
					return a.Field(i)
				}, a.Kind() == reflect.Struct && i < a.NumField()),
			})
		}
	case reflect.Map:
		for _, k := range sortedKeys(e) {
			k := k
			ee = append(ee, entry{
				trace:    fmt.Sprintf("%s[%v]", trace, k),
				expected: e.MapIndex(k),
				actual: lookup(func() reflect.Value {
					return a.MapIndex(k)
				}, a.Kind() == reflect.Map &&
					k.Type().AssignableTo(a.Type().Key())),
			})
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < e.Len(); i++ {
			i := i
			ee = append(ee, entry{
				trace:    fmt.Sprintf("%s[%d]", trace, i),
				expected: e.Index(i),
				actual: lookup(func() reflect.Value {
					return a.Index(i)
				}, isSequence(a) && i < a.Len()),
			})
		}
	}
	return ee
}

func sortedKeys(m reflect.Value) []reflect.Value {
	kk := m.MapKeys()
	slices.SortFunc(kk, func(a, b reflect.Value) bool {
		if isInt(a.Kind()) && isInt(b.Kind()) {
			return a.Int() < b.Int()
		}
		if isUint(a.Kind()) && isUint(b.Kind()) {
			return a.Uint() < b.Uint()
		}
		return fmt.Sprint(a) < fmt.Sprint(b)
	})
	return kk
}

// seen reports if given pair of references is already being compared
// further up, i.e. the values are cyclic.  Otherwise the pair is
// recorded until leave is called.
func (c *comparer) seen(e, a reflect.Value) bool {
	return seen(c.visited, e, a)
}

func (c *comparer) leave(e, a reflect.Value) {
	delete(c.visited, visitOf(e, a))
}

// equal reports deep equality of given values in c's mode.
func (c *comparer) equal(e, a reflect.Value) bool {
	return newEqualer(c.mode).equal(e, a)
}

func visitOf(e, a reflect.Value) visit {
	v := visit{kind: e.Kind(), e: e.Pointer()}
	if isRef(a) {
		v.a = a.Pointer()
	}
	return v
}

func seen(visited map[visit]bool, e, a reflect.Value) bool {
	v := visitOf(e, a)
	if visited[v] {
		return true
	}
	visited[v] = true
	return false
}

// equaler decides deep equality.  A pair of pointers, maps or slices
// visited a second time is considered equal which ends the recursion of
// cyclic values.
type equaler struct {
	mode    Mode
	visited map[visit]bool
}

func newEqualer(m Mode) *equaler {
	return &equaler{mode: m, visited: map[visit]bool{}}
}

func (c *equaler) equal(e, a reflect.Value) bool {
	e, a = indirect(e), indirect(a)
	if isAbsent(e) || isAbsent(a) {
		return false
	}
	if !e.IsValid() || !a.IsValid() {
		if c.mode == Strict {
			return !e.IsValid() && !a.IsValid()
		}
		return zeroOrInvalid(e) && zeroOrInvalid(a)
	}
	if c.mode == Strict && e.Type() != a.Type() {
		return false
	}
	if e.Kind() == reflect.Pointer || a.Kind() == reflect.Pointer {
		return c.equalPointers(e, a)
	}
	if isComposite(e) || isComposite(a) {
		return c.equalComposites(e, a)
	}
	if c.mode == Strict {
		return strictScalar(e, a)
	}
	return looseScalar(e, a)
}

func (c *equaler) equalPointers(e, a reflect.Value) bool {
	if e.Kind() != a.Kind() {
		if c.mode == Strict {
			return false
		}
		return c.equal(deref(e), deref(a))
	}
	if e.IsNil() || a.IsNil() {
		return e.IsNil() && a.IsNil()
	}
	if e.Pointer() == a.Pointer() || seen(c.visited, e, a) {
		return true
	}
	return c.equal(e.Elem(), a.Elem())
}

func (c *equaler) equalComposites(e, a reflect.Value) bool {
	switch {
	case e.Kind() == reflect.Struct && a.Kind() == reflect.Struct:
		if e.Type() != a.Type() {
			return false
		}
	case e.Kind() == reflect.Map && a.Kind() == reflect.Map:
	case isSequence(e) && isSequence(a):
	default:
		return false
	}
	if e.Kind() != reflect.Struct && e.Len() != a.Len() {
		return false
	}
	if isRef(e) && isRef(a) && seen(c.visited, e, a) {
		return true
	}
	for _, en := range entriesOf(e, a, "") {
		if !c.equal(en.expected, en.actual) {
			return false
		}
	}
	return true
}

func strictScalar(e, a reflect.Value) bool {
	switch e.Kind() {
	case reflect.Bool:
		return e.Bool() == a.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64:
		return e.Int() == a.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return e.Uint() == a.Uint()
	case reflect.Float32, reflect.Float64:
		return e.Float() == a.Float()
	case reflect.Complex64, reflect.Complex128:
		return e.Complex() == a.Complex()
	case reflect.String:
		return e.String() == a.String()
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return e.Pointer() == a.Pointer()
	}
	return false
}

func looseScalar(e, a reflect.Value) bool {
	switch {
	case isInt(e.Kind()) && isInt(a.Kind()):
		return e.Int() == a.Int()
	case isUint(e.Kind()) && isUint(a.Kind()):
		return e.Uint() == a.Uint()
	case isInt(e.Kind()) && isUint(a.Kind()):
		return e.Int() >= 0 && uint64(e.Int()) == a.Uint()
	case isUint(e.Kind()) && isInt(a.Kind()):
		return a.Int() >= 0 && uint64(a.Int()) == e.Uint()
	case isNumeric(e.Kind()) && isNumeric(a.Kind()):
		return toFloat(e) == toFloat(a)
	case isNumeric(e.Kind()) && a.Kind() == reflect.String:
		return numericString(e, a.String())
	case e.Kind() == reflect.String && isNumeric(a.Kind()):
		return numericString(a, e.String())
	case e.Kind() == reflect.Bool && isNumeric(a.Kind()):
		return toFloat(a) == boolFloat(e)
	case isNumeric(e.Kind()) && a.Kind() == reflect.Bool:
		return toFloat(e) == boolFloat(a)
	case e.Kind() == reflect.Func || a.Kind() == reflect.Func:
		return e.Kind() == a.Kind() && e.Pointer() == a.Pointer()
	}
	return fmt.Sprint(e) == fmt.Sprint(a)
}

// numericString compares given number with given string by the number
// the string parses to.  A string not representing a number is compared
// by the number's text.
func numericString(n reflect.Value, s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case isInt(n.Kind()):
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n.Int() == i
		}
	case isUint(n.Kind()):
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n.Uint() == u
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Sprint(n) == s
	}
	return toFloat(n) == f
}

func boolFloat(v reflect.Value) float64 {
	if v.Bool() {
		return 1
	}
	return 0
}

func leaf(trace string, e, a reflect.Value) Node {
	return Node{Kind: Leaf, Trace: trace,
		Expected: valueOf(e), Result: valueOf(a)}
}

// valueOf returns the value held by given reflect value or its string
// representation if it may not be accessed, e.g. an unexported field.
func valueOf(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() {
		return v.Interface()
	}
	return fmt.Sprint(v)
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	if isAbsent(v) {
		return "absent"
	}
	return v.Type().String()
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v
}

func deref(v reflect.Value) reflect.Value {
	v = indirect(v)
	for v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() {
		v = indirect(v.Elem())
	}
	return v
}

func isAbsent(v reflect.Value) bool {
	return v.IsValid() && v.Type() == absentType
}

func zeroOrInvalid(v reflect.Value) bool {
	return !v.IsValid() || v.IsZero()
}

func isComposite(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// isRef reports if given value is a non-nil pointer, map or slice.
func isRef(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return !v.IsNil()
	}
	return false
}

func isSequence(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) ||
		k == reflect.Float32 || k == reflect.Float64
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}
