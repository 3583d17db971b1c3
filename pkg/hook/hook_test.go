// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hook_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/slukits/unit/pkg/hook"
)

type call struct {
	code    hook.Code
	message string
	file    string
	line    int
	context map[string]interface{}
}

func recorder(cc *[]call) hook.Handler {
	return func(
		code hook.Code, message, file string, line int,
		context map[string]interface{},
	) {
		*cc = append(*cc, call{code, message, file, line, context})
	}
}

func Test_trigger_without_handler_drops_the_error(t *testing.T) {
	if hook.Installed() {
		t.Fatal("expected no installed handler")
	}
	if hook.Trigger(hook.Warning, "dropped") {
		t.Error("expected trigger without handler to report false")
	}
}

func Test_trigger_reports_to_the_installed_handler(t *testing.T) {
	cc := []call{}
	restore := hook.Install(recorder(&cc))
	defer restore()

	ctx := map[string]interface{}{"key": 42}
	if !hook.Trigger(hook.Notice, "noticed", ctx) {
		t.Fatal("expected trigger to be handled")
	}
	if len(cc) != 1 {
		t.Fatalf("expected 1 call; got %d", len(cc))
	}
	if cc[0].code != hook.Notice || cc[0].message != "noticed" {
		t.Errorf("expected noticed notice; got %v: %s",
			cc[0].code, cc[0].message)
	}
	if !strings.Contains(cc[0].file, "hook_test.go") || cc[0].line <= 0 {
		t.Errorf("expected location in hook_test.go; got %s:%d",
			cc[0].file, cc[0].line)
	}
	if diff := cmp.Diff(ctx, cc[0].context); diff != "" {
		t.Error(diff)
	}
}

func Test_restore_reinstalls_the_prior_handler(t *testing.T) {
	outer, inner := []call{}, []call{}
	restoreOuter := hook.Install(recorder(&outer))
	defer restoreOuter()

	restoreInner := hook.Install(recorder(&inner))
	hook.Trigger(hook.Warning, "inner")
	restoreInner()
	hook.Trigger(hook.Warning, "outer")

	if len(inner) != 1 || len(outer) != 1 {
		t.Fatalf("expected one call each; got %d and %d",
			len(inner), len(outer))
	}
	if inner[0].message != "inner" || outer[0].message != "outer" {
		t.Errorf("expected inner and outer; got %s and %s",
			inner[0].message, outer[0].message)
	}
}

func Test_restore_has_only_an_effect_once(t *testing.T) {
	outer := []call{}
	restoreOuter := hook.Install(recorder(&outer))
	defer restoreOuter()

	restore := hook.Install(func(
		hook.Code, string, string, int, map[string]interface{}) {
	})
	restore()
	later := []call{}
	restoreLater := hook.Install(recorder(&later))
	restore()
	hook.Trigger(hook.Warning, "later")
	restoreLater()

	if len(later) != 1 || len(outer) != 0 {
		t.Errorf("expected a later call only; got %d later, %d outer",
			len(later), len(outer))
	}
}

func Test_codes_have_readable_names(t *testing.T) {
	for c, exp := range map[hook.Code]string{
		hook.Warning:    "warning",
		hook.Deprecated: "deprecated",
		hook.Code(3):    "code(3)",
	} {
		if c.String() != exp {
			t.Errorf("expected %s; got %s", exp, c.String())
		}
	}
}
