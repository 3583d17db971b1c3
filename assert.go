// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/slukits/unit/pkg/diff"
	"github.com/slukits/unit/pkg/markup"
	"github.com/slukits/unit/pkg/stack"
	"github.com/slukits/unit/pkg/validate"
)

// MessageSlot in an assertion's message is replaced by the assertion's
// diagnostic text.  An assertion without message reports only the
// diagnostic text.
const MessageSlot = "{:message}"

// tagsErr describes the failing rule of AssertTags.
const tagsErr = "Item #%d / regex #%d failed: %s"

// tagsOk reports the number of matched markup items.
const tagsOk = "%d items matched"

// Data is the diagnostic data of assertions which don't compare
// structurally.
type Data struct {
	Expected interface{}
	Result   interface{}
}

func (d Data) String() string {
	return diff.Node{
		Kind: diff.Leaf, Expected: d.Expected, Result: d.Result}.String()
}

// assert reports a Pass result if given expression is true and a Fail
// result otherwise.  The result is located at the assertion call inside
// the running test method.  Given text replaces the MessageSlot of the
// message.
func (u *Unit) assert(
	expr bool, message []string, data interface{}, text string,
) bool {
	r := Result{Class: u.class, Data: data}
	site, err := stack.Locate(stack.Capture(1), u.active, u.chain)
	if err == nil {
		r.File, r.Line = site.File(), site.Line()
		r.Method, r.Assertion = site.Test.Function, site.Caller.Function
	} else {
		r.Method = u.method
	}

	tmpl := MessageSlot
	if len(message) > 0 {
		tmpl = message[0]
	}
	r.Message = strings.ReplaceAll(tmpl, MessageSlot, text)

	if expr {
		u.result(Pass, r)
	} else {
		u.result(Fail, r)
	}
	return expr
}

// Assert passes iff given expression is true.
func (u *Unit) Assert(expression bool, message ...string) bool {
	d := Data{Expected: true, Result: expression}
	return u.assert(expression, message, d, d.String())
}

// AssertEqual passes iff given values are loosely equal, i.e. scalars
// are compared by value regardless of their types while composites
// must have equal entries (see diff.Loose).  The result's Data is the
// diff.Node of the comparison.
func (u *Unit) AssertEqual(
	expected, result interface{}, message ...string,
) bool {
	return u.compare(diff.Loose, expected, result, message)
}

// AssertIdentical passes iff given values have the same types and
// values (see diff.Strict).  The result's Data is the diff.Node of the
// comparison.
func (u *Unit) AssertIdentical(
	expected, result interface{}, message ...string,
) bool {
	return u.compare(diff.Strict, expected, result, message)
}

func (u *Unit) compare(
	mode diff.Mode, expected, result interface{}, message []string,
) bool {
	n := diff.Compare(mode, expected, result)
	if diff.Equal(mode, expected, result) {
		return u.assert(true, message, n, n.String())
	}
	return u.assert(false, message, n,
		n.String()+stringDiff(expected, result))
}

// stringDiff returns the diff of the string representations of given
// values or the empty string if they are represented equally.
func stringDiff(expected, result interface{}) string {
	d := cmp.Diff(
		fmt.Sprintf("%#v", expected), fmt.Sprintf("%#v", result))
	if d == "" {
		return ""
	}
	return "diff:\n" + d
}

// AssertNotEqual passes iff given values are not loosely equal.
func (u *Unit) AssertNotEqual(
	expected, result interface{}, message ...string,
) bool {
	d := Data{Expected: expected, Result: result}
	return u.assert(!diff.Equal(diff.Loose, expected, result), message,
		d, d.String())
}

// AssertTrue passes iff given value is not empty (see AssertFalse).
func (u *Unit) AssertTrue(result interface{}, message ...string) bool {
	d := Data{Expected: true, Result: result}
	return u.assert(!empty(result), message, d, d.String())
}

// AssertFalse passes iff given value is empty, i.e. it is nil, false,
// a zero number, "" or "0", an empty slice, map, array or channel or a
// nil pointer, interface or function.
func (u *Unit) AssertFalse(result interface{}, message ...string) bool {
	d := Data{Expected: false, Result: result}
	return u.assert(empty(result), message, d, d.String())
}

// AssertNil passes iff given value is nil or a nil pointer, interface,
// slice, map, channel or function.
func (u *Unit) AssertNil(result interface{}, message ...string) bool {
	d := Data{Expected: nil, Result: result}
	return u.assert(isNil(result), message, d, d.String())
}

// AssertPattern passes iff given delimited pattern, e.g. "/^a+$/i",
// matches given string.  An invalid pattern fails.
func (u *Unit) AssertPattern(
	pattern, result string, message ...string,
) bool {
	ok, err := matches(pattern, result)
	d := Data{Expected: pattern, Result: result}
	return u.assert(ok, message, d, d.String()+err)
}

// AssertNoPattern passes iff given delimited pattern doesn't match
// given string.  An invalid pattern fails.
func (u *Unit) AssertNoPattern(
	pattern, result string, message ...string,
) bool {
	ok, err := matches(pattern, result)
	d := Data{Expected: pattern, Result: result}
	return u.assert(!ok && err == "", message, d, d.String()+err)
}

func matches(pattern, s string) (bool, string) {
	re, err := validate.Compile(pattern)
	if err != nil {
		return false, err.Error()
	}
	return re.MatchString(s), ""
}

// AssertTags passes iff given markup input is matched by given markup
// specification (see markup.Compile).  The result's Data is the
// markup.Match of the input and its failure message names the spec
// item and the rule which didn't match.
func (u *Unit) AssertTags(input string, spec ...interface{}) bool {
	m, err := markup.Matches(input, spec...)
	if err != nil {
		return u.assert(false, nil, nil, err.Error())
	}
	if !m.Matched {
		return u.assert(false, nil, m, fmt.Sprintf(tagsErr,
			m.Failed.Origin, m.Index, m.Failed.Description))
	}
	return u.assert(true, nil, m, fmt.Sprintf(tagsOk, m.Items.Len()))
}

func empty(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.String:
		return rv.Len() == 0 || rv.String() == "0"
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map,
		reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
