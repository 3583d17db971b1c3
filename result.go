// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

import (
	"fmt"

	"github.com/slukits/unit/pkg/hook"
)

// Outcome classifies a Result.
type Outcome int

const (
	// Pass is the outcome of a succeeding assertion.
	Pass Outcome = iota
	// Fail is the outcome of a failing assertion.
	Fail
	// Skip is the outcome of a skipped run or test method.
	Skip
	// Exception is the outcome of an unexpected panic or intercepted
	// runtime error.
	Exception
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Skip:
		return "skip"
	case Exception:
		return "exception"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is an entry of the result log of a run.  Location fields which
// couldn't be determined are left at their zero value.
type Result struct {
	Outcome Outcome

	// File and Line locate the assertion call respectively the panic.
	File string
	Line int

	// Method is the test method the result was reported from.
	Method string

	// Assertion is the name of the assertion reporting the result.
	Assertion string

	// Class is the subject's class, i.e. its package path and type
	// name joined by a dot.
	Class string

	Message string

	// Data holds for assertions the diff.Node of the compared values,
	// for AssertTags the markup.Match and for exceptions the *Fault.
	Data interface{}

	// Code and Trace are set for exceptions.  Code is the hook.Code of
	// an intercepted runtime error.
	Code  hook.Code
	Trace string
}

func (r Result) String() string {
	if r.File == "" {
		return fmt.Sprintf("%s: %s: %s", r.Outcome, r.Method, r.Message)
	}
	return fmt.Sprintf("%s: %s:%d: %s: %s",
		r.Outcome, r.File, r.Line, r.Method, r.Message)
}

// Reporter is called with each result before it is appended to the
// result log.  A returned Result or non-nil *Result replaces the
// reported result, any other return value keeps it.
type Reporter func(Result) interface{}

func (u *Unit) result(o Outcome, r Result) {
	r.Outcome = o
	if u.reporter != nil {
		switch filtered := u.reporter(r).(type) {
		case Result:
			r = filtered
		case *Result:
			if filtered != nil {
				r = *filtered
			}
		}
	}
	u.results = append(u.results, r)
}
