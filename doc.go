// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package unit runs the test methods of a test subject and records
// their outcomes in a result log instead of failing a go test.  A test
// subject is a type embedding a [unit.Unit] whose exported methods
// starting with "Test" are its test methods:
//
//	import github.com/slukits/unit
//
//	type StackTest struct{ unit.Unit }
//
//	func (s *StackTest) SetUp() {
//	    // create fixtures
//	}
//
//	func (s *StackTest) TestPush() {
//	    s.AssertEqual([]int{1}, Push(nil, 1))
//	}
//
//	results := unit.Run(&StackTest{}, unit.Config{})
//
// Each entry of the returned result log is a [unit.Result] whose
// Outcome is Pass or Fail for an assertion, Skip for a skipped run or
// test method and Exception for a panic or a runtime error reported
// through [hook.Trigger].  Results are attributed to the file, line and
// test method the assertion was called from.  The assertions
// AssertEqual and AssertIdentical provide the structural diff of the
// compared values (see package diff) as the result's Data while
// AssertTags matches markup against a declarative specification (see
// package markup).
//
// The lifecycle of a run is:
//   - Skip is called first.  A skip signal raised by SkipIf or
//     SkipUnless ends the run with a single Skip result while any other
//     panic is reported and ends the run as well.
//   - While the test methods run the runtime error hook is installed
//     and the prior hook is restored afterwards.
//   - For each test method SetUp, the test method and TearDown are
//     called.  A panic in any of these phases is reported while the
//     following phases still run.  A skip signal skips the remaining
//     phase and in case of SetUp also the test method.
//
// A test method may declare that it expects an exception:
//
//	func (s *StackTest) TestPopEmpty() {
//	    s.ExpectException("/^empty stack/")
//	    Pop(nil)
//	}
//
// An exception is checked against the last declared expectation which
// is consumed if it matches.  Expectations left at the end of a test
// method are logged.
//
// Subjects may also be run by go test using [unit.Go]:
//
//	func TestStack(t *testing.T) { unit.Go(&StackTest{}, t) }
//
// NOTE the runtime error hook is process-wide, i.e. runs must be
// serialized and in particular go tests running subjects must not be
// run in parallel.
package unit
