// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stack captures call stacks as plain Frame values and finds
// in such a captured stack the frame of a running test method and the
// frame of the assertion it called.  Since a captured stack is just a
// slice the resolving of a call site is a pure function over it.
package stack

import (
	"errors"
	"reflect"
	"runtime"
	"strings"

	"golang.org/x/exp/slices"
)

// Frame is one entry of a captured call stack.  Unlike a runtime.Frame
// the function name is split into its package, receiver class and
// function part.  File and Line denote the position the function was
// executing at when the stack was captured.
type Frame struct {

	// Full is the fully qualified function name as reported by the
	// runtime, e.g. "github.com/a/b.(*Foo).Bar.func1".
	Full string

	// Package is the import path of the function's package.
	Package string

	// Class is the receiver type of a method, i.e. the package path
	// joined by a dot with the (pointer stripped) type name.  It is
	// empty for functions.
	Class string

	// Function is the method or function name, e.g. "Bar.func1".
	Function string

	File string
	Line int
}

// Ref returns a short reference of f as used in formatted traces.
func (f Frame) Ref() string {
	if f.Class == "" {
		return f.Full
	}
	return f.Class + "::" + f.Function
}

// Capture returns the current goroutine's call stack innermost frame
// first.  The caller of Capture is the first frame if skip is zero,
// its caller if skip is one and so forth.
func Capture(skip int) []Frame {
	pcs := make([]uintptr, 64)
	for {
		n := runtime.Callers(skip+2, pcs)
		if n < len(pcs) {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}
	ff, rf := []Frame{}, runtime.CallersFrames(pcs)
	for {
		frame, more := rf.Next()
		f := ParseFunction(frame.Function)
		f.File, f.Line = frame.File, frame.Line
		ff = append(ff, f)
		if !more {
			break
		}
	}
	return ff
}

// ParseFunction splits given fully qualified function name into a
// frame's Package, Class and Function part.  NOTE for value receivers
// a package whose last path element contains a dot is ambiguous, i.e.
// the first dot of the last path element is taken as package
// separator.
func ParseFunction(name string) Frame {
	f := Frame{Full: name}
	slash := strings.LastIndex(name, "/")
	rest := name[slash+1:]
	if i := strings.Index(rest, ".("); i >= 0 {
		f.Package = name[:slash+1+i]
		rcv := rest[i+1:]
		end := strings.Index(rcv, ")")
		if end < 0 {
			f.Function = rcv
			return f
		}
		f.Class = f.Package + "." + typeName(rcv[1:end])
		f.Function = strings.TrimPrefix(rcv[end+1:], ".")
		return f
	}
	i := strings.Index(rest, ".")
	if i < 0 {
		f.Function = rest
		return f
	}
	f.Package, rest = name[:slash+1+i], rest[i+1:]
	head, tail, ok := strings.Cut(rest, ".")
	if !ok || isClosure(tail) {
		f.Function = rest
		return f
	}
	f.Class, f.Function = f.Package+"."+typeName(head), tail
	return f
}

// isClosure reports if given name part denotes an anonymous function
// like "func1" or a nested one like "1".
func isClosure(name string) bool {
	if strings.HasPrefix(name, "func") {
		name = name[len("func"):]
	}
	return name != "" && name[0] >= '0' && name[0] <= '9'
}

func typeName(s string) string {
	s = strings.TrimPrefix(s, "*")
	if i := strings.Index(s, "["); i >= 0 {
		s = s[:i]
	}
	return s
}

// ClassOf returns the class name of given type as it appears in a
// Frame's Class.
func ClassOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath() + "." + typeName(t.Name())
}

// FromPanic cuts the runtime's panic machinery from given stack which
// was captured inside a deferred function recovering a panic, i.e. the
// first frame of the returned stack is the one which panicked.  Given
// stack is returned unchanged if it doesn't contain a panic.
func FromPanic(ff []Frame) []Frame {
	idx := slices.IndexFunc(ff, func(f Frame) bool {
		return f.Full == "runtime.gopanic"
	})
	if idx < 0 {
		return ff
	}
	idx++
	for idx < len(ff) && ff[idx].Package == "runtime" {
		idx++
	}
	return ff[idx:]
}

// Binding identifies the frames whose receiver is the subject under
// test.
type Binding interface {
	Owns(Frame) bool
}

// Receivers is a Binding owning all frames whose class is one of its
// elements.
type Receivers []string

// Owns returns true iff given frame's class is in rr.
func (rr Receivers) Owns(f Frame) bool {
	return f.Class != "" && slices.Contains(rr, f.Class)
}

// ErrUnresolved is returned by Locate if given stack has no test method
// frame calling into its binding.
var ErrUnresolved = errors.New("stack: unresolved call site")

// Site is the location of an assertion call inside a test method.
type Site struct {

	// Caller is the frame of the function which was called from within
	// the test method, e.g. an assertion.
	Caller Frame

	// Test is the test method's frame.  Its position is the position
	// Caller was called at.
	Test Frame
}

// File is the file of the call site.
func (s Site) File() string { return s.Test.File }

// Line is the line of the call site.
func (s Site) Line() int { return s.Test.Line }

// Locate walks given stack from its innermost frame outwards and
// returns the site of the first frame i which is a method of given
// binding named like one of given methods while frame i-1 is owned by
// the binding as well.  Hence helper layers an assertion is built from
// are skipped.  ErrUnresolved is returned if no such frame exists.
func Locate(ff []Frame, methods []string, self Binding) (Site, error) {
	for i := 1; i < len(ff); i++ {
		if !slices.Contains(methods, ff[i].Function) {
			continue
		}
		if !self.Owns(ff[i]) || !self.Owns(ff[i-1]) {
			continue
		}
		return Site{Caller: ff[i-1], Test: ff[i]}, nil
	}
	return Site{}, ErrUnresolved
}
