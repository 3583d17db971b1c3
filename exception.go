// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/slukits/unit/pkg/hook"
	"github.com/slukits/unit/pkg/stack"
	"github.com/slukits/unit/pkg/validate"
)

// SkipPrefix starts the message of a skip signal.  A panic or a
// triggered runtime error whose message starts with SkipPrefix skips
// the current phase instead of being reported as exception.
const SkipPrefix = "Skipped test"

// Fault is the normalized form of a recovered panic or of a runtime
// error reported through hook.Trigger.
type Fault struct {
	Message string

	// File and Line locate the panic respectively the Trigger call.
	File string
	Line int

	// Code is the hook.Code of a triggered runtime error; zero for
	// panics.
	Code hook.Code

	// Trace is the call stack innermost frame first.
	Trace []stack.Frame

	// Context is the optional context of a triggered runtime error.
	Context map[string]interface{}

	// Value is the recovered panic value.
	Value interface{}
}

func (e *Fault) Error() string { return e.Message }

// translate normalizes given recovered value r into a Fault.
// Given trace is used if r doesn't provide one.
func translate(r interface{}, trace []stack.Frame) *Fault {
	var e *Fault
	switch r := r.(type) {
	case *Fault:
		e = r
	case error:
		if !errors.As(r, &e) {
			e = &Fault{Message: r.Error()}
		}
	default:
		e = &Fault{Message: fmt.Sprint(r)}
	}
	if e.Value == nil {
		e.Value = r
	}
	if len(e.Trace) == 0 {
		e.Trace = trace
	}
	if e.File == "" && len(e.Trace) > 0 {
		e.File, e.Line = e.Trace[0].File, e.Trace[0].Line
	}
	return e
}

type outcomeKind int

const (
	passed outcomeKind = iota
	skipped
	raised
)

// outcome of a phase, i.e. Skip, SetUp, a test method or TearDown.
type outcome struct {
	kind      outcomeKind
	message   string
	exception *Fault
}

// skipSignal is the panic value raised by SkipIf and SkipUnless.
type skipSignal struct{ message string }

// invoke calls given phase and turns a panic into a skipped or raised
// outcome.
func (u *Unit) invoke(phase func()) (o outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if s, ok := r.(skipSignal); ok {
			o = outcome{kind: skipped, message: s.message}
			return
		}
		e := translate(r, stack.FromPanic(stack.Capture(0)))
		if strings.HasPrefix(e.Message, SkipPrefix) {
			o = outcome{kind: skipped, message: e.Message}
			return
		}
		o = outcome{kind: raised, exception: e}
	}()
	phase()
	return outcome{}
}

// handle reports given exception unless it is a skip signal or it is
// expected by the top of the expectation stack.
func (u *Unit) handle(e *Fault) {
	if strings.HasPrefix(e.Message, SkipPrefix) {
		u.result(Skip, Result{
			Class: u.class, Method: u.method, Message: e.Message})
		return
	}
	if u.reconcile(e) {
		return
	}
	u.report(e)
}

// expectation is an entry of the expectation stack.
type expectation struct {
	any     bool
	message string
}

func (x expectation) matches(message string, v Validator) bool {
	if x.any || x.message == message {
		return true
	}
	if !v.IsPattern(x.message) {
		return false
	}
	re, err := validate.Compile(x.message)
	return err == nil && re.MatchString(message)
}

// reconcile pops the top of the expectation stack and returns true iff
// it matches given exception's message.
func (u *Unit) reconcile(e *Fault) bool {
	if len(u.expected) == 0 {
		return false
	}
	top := u.expected[len(u.expected)-1]
	if !top.matches(e.Message, u.validator) {
		return false
	}
	u.expected = u.expected[:len(u.expected)-1]
	return true
}

// ExpectException declares that the next exception of the running test
// method is expected.  Without argument any message is accepted.  A
// message the run's Validator recognizes as pattern, e.g. "/^bad \d+/",
// must match; any other message must be equal to the exception's.
// Declarations are checked last declared first.
func (u *Unit) ExpectException(message ...string) {
	if len(message) == 0 {
		u.expected = append(u.expected, expectation{any: true})
		return
	}
	u.expected = append(u.expected, expectation{message: message[0]})
}

// report appends an Exception result for given exception annotated with
// its nearest frame belonging to the subject.
func (u *Unit) report(e *Fault) {
	trace := scope(e.Trace)
	r := Result{
		File: e.File, Line: e.Line,
		Class: u.class, Method: u.method,
		Message: e.Message,
		Data:    e,
		Code:    e.Code,
		Trace:   formatTrace(trace),
	}
	for _, f := range trace {
		if u.chain.Owns(f) {
			r.File, r.Line = f.File, f.Line
			r.Class, r.Method = f.Class, f.Function
			break
		}
	}
	u.result(Exception, r)
}

var (
	unitPkg = reflect.TypeOf(Unit{}).PkgPath()
	hookPkg = reflect.TypeOf(hook.Code(0)).PkgPath()
)

// internal reports if given frame belongs to the machinery calling the
// subject's methods.
func internal(f stack.Frame) bool {
	if f.Package == "reflect" {
		return true
	}
	if f.Package != unitPkg {
		return false
	}
	if f.Class == "" || f.Function == "" ||
		strings.Contains(f.Function, ".") {
		return true
	}
	return !unicode.IsUpper([]rune(f.Function)[0])
}

// scope cuts given trace at its first internal frame.
func scope(trace []stack.Frame) []stack.Frame {
	for i, f := range trace {
		if internal(f) {
			return trace[:i]
		}
	}
	return trace
}

func formatTrace(trace []stack.Frame) string {
	ll := make([]string, len(trace))
	for i, f := range trace {
		ll[i] = fmt.Sprintf("%s, line %d", f.Ref(), f.Line)
	}
	return strings.Join(ll, "\n")
}

// intercept is the default hook.Handler of a run.
func (u *Unit) intercept(
	code hook.Code, message, file string, line int,
	context map[string]interface{},
) {
	trace := stack.Capture(0)
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Package == hookPkg {
			trace = trace[i+1:]
			break
		}
	}
	u.handle(&Fault{
		Message: message, File: file, Line: line, Code: code,
		Trace: trace, Context: context,
	})
}

// SkipIf skips the remaining run if called from a Skip method and the
// remaining test method otherwise iff given condition is true.  The
// placeholders {:class} and {:function} of an optional message are
// replaced by the caller's class and function name.  The default
// message is
//
//	Skipped test {:class}::{:function}()
func (u *Unit) SkipIf(condition bool, message ...string) {
	if !condition {
		return
	}
	u.skip(stack.Capture(1), message)
}

// SkipUnless skips like SkipIf iff given condition is false.
func (u *Unit) SkipUnless(condition bool, message ...string) {
	if condition {
		return
	}
	u.skip(stack.Capture(1), message)
}

func (u *Unit) skip(ff []stack.Frame, message []string) {
	tmpl := SkipPrefix + " {:class}::{:function}()"
	if len(message) > 0 {
		tmpl = message[0]
	}
	class, function := u.class, u.method
	if len(ff) > 0 && ff[0].Class != "" {
		class, function = ff[0].Class, ff[0].Function
	}
	panic(skipSignal{message: strings.NewReplacer(
		"{:class}", class, "{:function}", function).Replace(tmpl)})
}
