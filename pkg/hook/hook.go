// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hook provides the process-wide interception of non-fatal
// runtime errors.  Code under test reports such an error by calling
// Trigger which passes it on to the currently installed Handler:
//
//	if cfg.Timeout == 0 {
//	    hook.Trigger(hook.Deprecated, "zero timeout is deprecated")
//	}
//
// Only one Handler may be installed at a time.  Install replaces the
// current handler and returns a function restoring the prior one, i.e.
// an installation is meant to be released by a deferred call:
//
//	restore := hook.Install(handler)
//	defer restore()
package hook

import (
	"fmt"
	"runtime"
	"sync"
)

// Code classifies a triggered runtime error.
type Code int

const (
	// UserError is a recoverable error reported by code under test.
	UserError Code = 1 << iota
	// Warning is a non-fatal runtime warning.
	Warning
	// Notice hints at code which might be erroneous.
	Notice
	// Deprecated reports the use of a deprecated feature.
	Deprecated
)

func (c Code) String() string {
	switch c {
	case UserError:
		return "user-error"
	case Warning:
		return "warning"
	case Notice:
		return "notice"
	case Deprecated:
		return "deprecated"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Handler is called with a triggered runtime error's code, message,
// position and optional context.
type Handler func(
	code Code, message, file string, line int,
	context map[string]interface{},
)

var (
	mutex   sync.Mutex
	current Handler
)

// Install makes given handler the process-wide handler and returns a
// function which restores the handler which was installed before.
// The returned function may be called more than once while only its
// first call has an effect.
func Install(h Handler) (restore func()) {
	mutex.Lock()
	defer mutex.Unlock()
	prior, once := current, sync.Once{}
	current = h
	return func() {
		once.Do(func() {
			mutex.Lock()
			defer mutex.Unlock()
			current = prior
		})
	}
}

// Installed returns true iff currently a handler is installed.
func Installed() bool {
	mutex.Lock()
	defer mutex.Unlock()
	return current != nil
}

// Trigger reports a runtime error with given code, message and optional
// context to the installed handler.  Trigger returns false iff no
// handler is installed; the error is dropped in this case.  The
// reported position is the one of Trigger's caller.
func Trigger(
	code Code, message string, context ...map[string]interface{},
) bool {
	mutex.Lock()
	h := current
	mutex.Unlock()
	if h == nil {
		return false
	}
	_, file, line, _ := runtime.Caller(1)
	var ctx map[string]interface{}
	if len(context) > 0 {
		ctx = context[0]
	}
	h(code, message, file, line, ctx)
	return true
}
