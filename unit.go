// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/slukits/unit/pkg/hook"
	"github.com/slukits/unit/pkg/stack"
	"github.com/slukits/unit/pkg/validate"
)

// Unit implements the lifecycle hooks and the private methods of the
// Subject interface.  I.e. to run the test methods of a test subject
// using Run the subject must embed this type, e.g.:
//
//	type Alpha struct{ unit.Unit }
//
//	// optional Skip-method
//	// optional SetUp-method
//	// optional TearDown-method
//
//	func (s *Alpha) TestAddition() { s.AssertEqual(2, 1+1) }
//
//	results := unit.Run(&Alpha{}, unit.Config{})
type Unit struct {
	self      Subject
	value     reflect.Value
	class     string
	chain     stack.Receivers
	methods   []string
	active    []string
	method    string
	results   []Result
	expected  []expectation
	reporter  Reporter
	logger    func(...interface{})
	validator Validator
	running   int32
}

// Subject is implemented by a type embedding a Unit.  Its methods
// SetUp, TearDown and Skip default to no-ops and may be overwritten
// by the embedder.
type Subject interface {
	// Skip is called once before any test method is run.  A skip
	// signal raised by SkipIf or SkipUnless skips the whole run.
	Skip()
	// SetUp is called before each test method.
	SetUp()
	// TearDown is called after each test method.
	TearDown()

	bind(Subject) *Unit
}

// SubjectLogging implementation of a subject provides the logger of a
// run if the run's Config has no Logger.
type SubjectLogging interface {
	Logger() func(args ...interface{})
}

// Validator tells exception messages apart from patterns.
type Validator interface {
	IsPattern(string) bool
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(string) bool

// IsPattern returns the result of calling f with given string.
func (f ValidatorFunc) IsPattern(s string) bool { return f(s) }

// Config controls a run.  Its zero value runs all test methods.
type Config struct {

	// Methods are the names of the test methods to run; all test
	// methods if empty.
	Methods []string

	// Reporter may replace each result before it is logged.
	Reporter Reporter

	// Handler replaces the default handler of runtime errors triggered
	// by hook.Trigger during the run.
	Handler hook.Handler

	// Logger receives the run's log messages.  It defaults to the
	// subject's logger if it implements SubjectLogging.
	Logger func(args ...interface{})

	// Validator decides if an expected exception message is a pattern.
	// It defaults to validate.IsPattern.
	Validator Validator
}

// ErrConcurrentRun is the panic value of a Run whose subject is already
// running.
var ErrConcurrentRun = errors.New("unit: concurrent run of same subject")

// Run runs the test methods of given subject and returns the result log
// of the run:
//   - Skip is called first, a raised skip signal ends the run with a
//     single Skip result.
//   - For each test method SetUp, the test method and TearDown are
//     called; panics of any of these are translated into results.
//   - While the test methods run the runtime error hook is installed.
//
// The result log is reset at the beginning of each run.  Run panics with
// ErrConcurrentRun if given subject is already running.
func Run(s Subject, cfg Config) []Result {
	u := s.bind(s)
	if !atomic.CompareAndSwapInt32(&u.running, 0, 1) {
		panic(ErrConcurrentRun)
	}
	defer atomic.StoreInt32(&u.running, 0)

	u.configure(s, cfg)
	u.log("run", u.class, strings.Join(u.active, ", "))

	switch o := u.invoke(s.Skip); o.kind {
	case skipped:
		u.log("skip", u.class, o.message)
		u.result(Skip, Result{Class: u.class, Message: o.message})
		return u.results
	case raised:
		u.handle(o.exception)
		return u.results
	}

	handler := cfg.Handler
	if handler == nil {
		handler = u.intercept
	}
	restore := hook.Install(handler)
	defer restore()

	for _, m := range u.active {
		u.runMethod(m)
	}
	return u.results
}

func (u *Unit) configure(s Subject, cfg Config) {
	u.results, u.expected, u.method = nil, nil, ""
	u.reporter, u.logger, u.validator = cfg.Reporter, cfg.Logger,
		cfg.Validator
	if u.logger == nil {
		if sl, ok := s.(SubjectLogging); ok {
			u.logger = sl.Logger()
		}
	}
	if u.validator == nil {
		u.validator = ValidatorFunc(validate.IsPattern)
	}
	u.active = cfg.Methods
	if len(u.active) == 0 {
		u.active = u.Methods()
	}
}

// bind initializes this unit's reused reflection values for given
// embedding subject.
func (u *Unit) bind(self Subject) *Unit {
	if u.self == self {
		return u
	}
	u.self, u.value, u.methods = self, reflect.ValueOf(self), nil
	u.class = stack.ClassOf(u.value.Type())
	u.chain = stack.Receivers(chainOf(u.value.Type()))
	return u
}

// chainOf returns the classes of given type and of its embedded types.
func chainOf(t reflect.Type) []string {
	cc := []string{stack.ClassOf(t)}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return cc
	}
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.Anonymous {
			cc = append(cc, chainOf(f.Type)...)
		}
	}
	return cc
}

// Methods returns the names of the bound subject's test methods in
// order of their appearance in the source.  A test method is an
// exported method whose name starts with "Test" taking no arguments
// and returning nothing.  The methods are looked up once per subject.
func (u *Unit) Methods() []string {
	if u.methods != nil || u.self == nil {
		return u.methods
	}
	type located struct {
		name, file string
		line       int
	}
	ll, t := []located{}, u.value.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, "Test") ||
			m.Type.NumIn() != 1 || m.Type.NumOut() != 0 {
			continue
		}
		l := located{name: m.Name}
		if fn := runtime.FuncForPC(m.Func.Pointer()); fn != nil {
			l.file, l.line = fn.FileLine(fn.Entry())
		}
		ll = append(ll, l)
	}
	slices.SortFunc(ll, func(a, b located) bool {
		if a.file != b.file {
			return a.file < b.file
		}
		if a.line != b.line {
			return a.line < b.line
		}
		return a.name < b.name
	})
	u.methods = make([]string, len(ll))
	for i, l := range ll {
		u.methods[i] = l.name
	}
	return u.methods
}

// Subject returns the name of the type under test, i.e. the bound
// subject's type name without a "Test" suffix.
func (u *Unit) Subject() string {
	if u.self == nil {
		return ""
	}
	name := u.class[strings.LastIndex(u.class, ".")+1:]
	return strings.TrimSuffix(name, "Test")
}

// Results returns the result log of the current or last run.
func (u *Unit) Results() []Result { return u.results }

// Skip is the default no-op implementation of Subject.Skip.
func (u *Unit) Skip() {}

// SetUp is the default no-op implementation of Subject.SetUp.
func (u *Unit) SetUp() {}

// TearDown is the default no-op implementation of Subject.TearDown.
func (u *Unit) TearDown() {}

// Log writes given arguments to the run's logger.
func (u *Unit) Log(args ...interface{}) { u.log(args...) }

func (u *Unit) log(args ...interface{}) {
	if u.logger == nil {
		return
	}
	u.logger(args...)
}

// runMethod runs given test method between calls of the subject's
// SetUp and TearDown.  A skip signal of SetUp skips the test method
// while TearDown is called in any case.
func (u *Unit) runMethod(name string) {
	u.method = name
	defer func() { u.method = "" }()

	setUp := u.invoke(u.self.SetUp)
	u.settle(setUp)
	if setUp.kind != skipped {
		u.settle(u.invoke(u.testMethod(name)))
	}
	u.settle(u.invoke(u.self.TearDown))

	if len(u.expected) > 0 {
		u.log("unconsumed exception expectations of", name+":",
			len(u.expected))
		u.expected = nil
	}
}

func (u *Unit) testMethod(name string) func() {
	m := u.value.MethodByName(name)
	if !m.IsValid() {
		return func() {
			panic(fmt.Sprintf("unit: %s has no method %s", u.class, name))
		}
	}
	return func() { m.Call(nil) }
}

// settle records given outcome in the result log.
func (u *Unit) settle(o outcome) {
	switch o.kind {
	case skipped:
		u.result(Skip, Result{
			Class: u.class, Method: u.method, Message: o.message})
	case raised:
		u.handle(o.exception)
	}
}
