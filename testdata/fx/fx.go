// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fx provides unit test-fixture subjects.
//
// Fixture subjects which want their run's log messages recorded embed
// the FixtureLog ensuring that all loggings during a run are appended
// to the *Logs*-property which then can be evaluated after the run:
//
//	type MySubjectFixture struct {
//	    fx.FixtureLog
//	    unit.Unit
//	}
//
//	func TestMySubjectFixture(t *testing.T) {
//	    fixture := &MySubjectFixture{}
//	    unit.Run(fixture, unit.Config{})
//	    if !strings.Contains(fixture.Logs, "run") {
//	        t.Errorf("expected run to be logged; got: %s", fixture.Logs)
//	    }
//	}
package fx

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/slukits/unit"
	"github.com/slukits/unit/pkg/hook"
)

// FixtureLog provides the general logging facility for fixture
// subjects by implementing unit.SubjectLogging.  A FixtureLog mustn't
// be copied once it has been used.
type FixtureLog struct {
	Logs  string
	mutex sync.Mutex
}

// log logs concurrency save given arguments to the *Logs* property.
func (fl *FixtureLog) log(args ...interface{}) {
	fl.mutex.Lock()
	defer fl.mutex.Unlock()
	fl.Logs += fmt.Sprintln(args...)
}

// Logger implements the unit.SubjectLogging interface, i.e. the runner
// will use the returned function to log.
func (fl *FixtureLog) Logger() func(args ...interface{}) {
	return fl.log
}

// File is the file the fixtures are declared in.
var File = func() string {
	_, f, _, ok := runtime.Caller(0)
	if !ok {
		panic("fx: can't determine file")
	}
	return f
}()

// AlphaTest has a test method with a passing and a failing assertion.
type AlphaTest struct {
	unit.Unit

	// Line is the line of the passing assertion; the failing assertion
	// is on the following line.
	Line int
}

func (s *AlphaTest) TestAlpha() {
	_, _, s.Line, _ = runtime.Caller(0)
	s.Assert(1 == 1)
	s.Assert(1 == 2)
}

// Lifecycle records the calls of its lifecycle hooks and test methods.
// Its test methods are declared in non-alphabetical order.
type Lifecycle struct {
	FixtureLog
	unit.Unit
	Calls []string
}

func (s *Lifecycle) call(name string) { s.Calls = append(s.Calls, name) }

func (s *Lifecycle) SetUp() { s.call("SetUp") }

func (s *Lifecycle) TearDown() { s.call("TearDown") }

func (s *Lifecycle) TestZulu() { s.call("TestZulu") }

func (s *Lifecycle) TestAlpha() {
	s.call("TestAlpha")
	panic("alpha broke")
}

func (s *Lifecycle) TestMike() { s.call("TestMike") }

// TestWithArg isn't run since it takes an argument.
func (s *Lifecycle) TestWithArg(n int) { s.call("TestWithArg") }

// Skipped skips its whole run.
type Skipped struct {
	unit.Unit
	Ran bool
}

func (s *Skipped) Skip() { s.SkipIf(true) }

func (s *Skipped) TestNothing() { s.Ran = true }

// BrokenSkip panics in its Skip method.
type BrokenSkip struct {
	unit.Unit
	Ran bool
}

func (s *BrokenSkip) Skip() { panic("no fixture database") }

func (s *BrokenSkip) TestNothing() { s.Ran = true }

// SkipInMethod skips one of its test methods.
type SkipInMethod struct {
	unit.Unit
	Ran, TornDown int
}

func (s *SkipInMethod) TearDown() { s.TornDown++ }

func (s *SkipInMethod) TestSkipped() {
	s.SkipUnless(false, "Skipped test {:function}: no database")
	s.Ran++
}

func (s *SkipInMethod) TestRun() {
	s.Ran++
	s.Assert(true)
}

// SkipInSetUp skips all its test methods in SetUp.
type SkipInSetUp struct {
	unit.Unit
	Ran, TornDown int
}

func (s *SkipInSetUp) SetUp() { s.SkipIf(true) }

func (s *SkipInSetUp) TearDown() { s.TornDown++ }

func (s *SkipInSetUp) TestNothing() { s.Ran++ }

// ErrExact is the error TestExpectedExact panics with.
var ErrExact = errors.New("exact")

// Exceptions has test methods panicking with expected and unexpected
// exceptions.
type Exceptions struct {
	FixtureLog
	unit.Unit

	// PanicLine is the line of TestUnexpected's panic.
	PanicLine int
}

func (s *Exceptions) TestExpectedAny() {
	s.ExpectException()
	panic("anything")
}

func (s *Exceptions) TestExpectedExact() {
	s.ExpectException("exact")
	panic(ErrExact)
}

func (s *Exceptions) TestExpectedPattern() {
	s.ExpectException(`/^code \d+$/`)
	panic("code 42")
}

func (s *Exceptions) TestUnexpected() {
	s.ExpectException("other")
	_, _, s.PanicLine, _ = runtime.Caller(0)
	panic("boom")
}

func (s *Exceptions) TestSkipPrefix() {
	s.ExpectException()
	panic(unit.SkipPrefix + " by prefix")
}

func (s *Exceptions) TestNilMap() {
	var m map[string]int
	m["a"] = 1
}

func (s *Exceptions) TestHelper() { s.helper() }

func (s *Exceptions) helper() { panic("helper broke") }

// Triggers reports runtime errors through hook.Trigger.
type Triggers struct {
	FixtureLog
	unit.Unit

	// Line is the line of TestLIFO's first Trigger call.
	Line int
}

func (s *Triggers) TestLIFO() {
	s.ExpectException("first")
	s.ExpectException("second")
	_, _, s.Line, _ = runtime.Caller(0)
	hook.Trigger(hook.Warning, "first")
	hook.Trigger(hook.Warning, "second")
	hook.Trigger(hook.Warning, "first")
}

func (s *Triggers) TestContext() {
	hook.Trigger(hook.Deprecated, "old api",
		map[string]interface{}{"api": "v1"})
}

func (s *Triggers) TestLeftover() {
	s.ExpectException("never")
}

// Helpers calls assertions through a helper method.
type Helpers struct{ unit.Unit }

func (s *Helpers) assertPositive(n int) bool {
	return s.Assert(n > 0, "expected positive number")
}

func (s *Helpers) TestHelper() { s.assertPositive(-1) }
