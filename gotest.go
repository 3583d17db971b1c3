// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package unit

import "testing"

// Go runs given subject's test methods from within a go test, i.e.
//
//	type AlphaTest struct{ unit.Unit }
//
//	func (s *AlphaTest) TestAddition() { s.AssertEqual(2, 1+1) }
//
//	func TestAlpha(t *testing.T) { unit.Go(&AlphaTest{}, t) }
//
// Fail and Exception results fail t, skip results are logged.  A run
// skipped by the subject's Skip method skips t.  The logger of an
// optionally given configuration defaults to t.Log.
func Go(s Subject, t *testing.T, cfg ...Config) []Result {
	t.Helper()
	c := Config{}
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Logger == nil {
		if _, ok := s.(SubjectLogging); !ok {
			c.Logger = t.Log
		}
	}
	rr := Run(s, c)
	if len(rr) == 1 && rr[0].Outcome == Skip && rr[0].Method == "" {
		t.Skip(rr[0].Message)
		return rr
	}
	for _, r := range rr {
		switch r.Outcome {
		case Fail, Exception:
			t.Error(r.String())
		case Skip:
			t.Log(r.String())
		}
	}
	return rr
}
