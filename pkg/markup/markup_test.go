// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package markup

import (
	"errors"
	"testing"
)

func match(t *testing.T, input string, spec ...interface{}) Match {
	t.Helper()
	m, err := Matches(input, spec...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func Test_a_paragraph_with_text_is_matched(t *testing.T) {
	m := match(t, "<p>hello</p>", Tag{Name: "p"}, "hello", "/p")
	if !m.Matched || m.Failed != nil {
		t.Fatalf("expected match; got failed %v", m.Failed)
	}
	if m.Index != -1 || m.Remainder != "" {
		t.Errorf("expected index -1 and no remainder; got %d, %q",
			m.Index, m.Remainder)
	}
	if m.Items.Len() != 3 {
		t.Errorf("expected 3 matched items; got %d", m.Items.Len())
	}
}

func Test_a_text_mismatch_is_attributed_to_the_text_rule(t *testing.T) {
	m := match(t, "<p>goodbye</p>", Tag{Name: "p"}, "hello", "/p")
	if m.Matched || m.Failed == nil {
		t.Fatal("expected failed match")
	}
	if m.Failed.Description != `Text equals "hello"` {
		t.Errorf("unexpected description %s", m.Failed.Description)
	}
	if m.Failed.Origin != 2 || m.Index != 2 {
		t.Errorf("expected item 2 and rule 2; got %d and %d",
			m.Failed.Origin, m.Index)
	}
	if m.Remainder != "goodbye</p>" {
		t.Errorf("expected remainder goodbye</p>; got %q", m.Remainder)
	}
	if !m.Items.Has(1) || m.Items.Has(2) {
		t.Errorf("expected only item 1 matched; got %v", m.Items)
	}
}

func Test_attribute_order_is_not_significant(t *testing.T) {
	spec := Open("input", Is("name", "x"), Is("id", "y"))
	for _, input := range []string{
		`<input name="x" id="y">`,
		`<input id="y" name="x">`,
		`<input id="y"   name="x" />`,
	} {
		if !match(t, input, spec).Matched {
			t.Errorf("expected %s to match", input)
		}
	}
	m := match(t, `<input id="z" name="x">`, spec)
	if m.Matched {
		t.Fatal("expected mismatch of id z")
	}
	exp := `Attribute "name" == "x", Attribute "id" == "y"`
	if m.Failed.Description != exp {
		t.Errorf("expected %s; got %s", exp, m.Failed.Description)
	}
}

func Test_an_attribute_block_compiles_all_permutations(t *testing.T) {
	rr, err := Compile(Open("a",
		Present("href"), Is("class", "x"), Is("id", "preg:/\\d+/")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rr) != 3 {
		t.Fatalf("expected 3 rules; got %d", len(rr))
	}
	if len(rr[1].Patterns) != 6 {
		t.Errorf("expected 6 permutations; got %d", len(rr[1].Patterns))
	}
	if rr[0].Description != "Open a tag" ||
		rr[2].Description != "End a tag" {
		t.Errorf("unexpected descriptions %s, %s",
			rr[0].Description, rr[2].Description)
	}
}

func Test_too_many_attribute_constraints_are_rejected(t *testing.T) {
	aa := []Attr{}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		aa = append(aa, Present(n))
	}
	if _, err := Compile(Open("div", aa...)); !errors.Is(
		err, ErrTooManyAttrs) {
		t.Errorf("expected %v; got %v", ErrTooManyAttrs, err)
	}
}

func Test_present_attributes_accept_any_non_empty_value(t *testing.T) {
	spec := Open("input", Present("name"))
	for input, exp := range map[string]bool{
		`<input name="anything">`: true,
		`<input name="">`:         false,
		`<input id="x">`:          false,
	} {
		if got := match(t, input, spec).Matched; got != exp {
			t.Errorf("expected %s matched %v; got %v", input, exp, got)
		}
	}
}

func Test_attribute_patterns_accept_unquoted_values(t *testing.T) {
	spec := Open("input", Is("id", `preg:/field\d+/`))
	for input, exp := range map[string]bool{
		`<input id="field12">`: true,
		`<input id=field12>`:   true,
		`<input id="fieldx">`:  false,
	} {
		if got := match(t, input, spec).Matched; got != exp {
			t.Errorf("expected %s matched %v; got %v", input, exp, got)
		}
	}
}

func Test_raw_attribute_patterns_match_the_attribute_block(
	t *testing.T,
) {
	spec := Open("div", Pattern(`preg:/\s+data-[a-z]+="1"/`))
	if !match(t, `<div data-x="1">`, spec).Matched {
		t.Error("expected data-x=1 to match")
	}
	if match(t, `<div data-x="2">`, spec).Matched {
		t.Error("expected data-x=2 not to match")
	}
}

func Test_whitespace_around_tags_is_absorbed(t *testing.T) {
	m := match(t, "  <p >\nhello< / p >\n\n",
		"<p", "hello", "/p")
	if !m.Matched || m.Remainder != "" {
		t.Errorf("expected complete match; got remainder %q", m.Remainder)
	}
}

func Test_anything_before_a_closing_tag_is_skipped(t *testing.T) {
	if !match(t, "<p><b>x</b> y</p>", Tag{Name: "p"}, "*/p").Matched {
		t.Error("expected anything up to </p> to be skipped")
	}
	rr, err := Compile("*/p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rr[0].Description != "Anything, Close p tag" {
		t.Errorf("unexpected description %s", rr[0].Description)
	}
}

func Test_text_patterns_are_matched(t *testing.T) {
	spec := []interface{}{Tag{Name: "p"}, `preg:/My\s+field/`, "/p"}
	if !match(t, "<p>My   field</p>", spec...).Matched {
		t.Error("expected pattern to match spaced text")
	}
	if match(t, "<p>Myfield</p>", spec...).Matched {
		t.Error("expected pattern not to match unspaced text")
	}
}

func Test_text_is_matched_literally(t *testing.T) {
	for _, tc := range []struct {
		input, text string
		exp         bool
	}{
		{"a+b (c)", "a+b (c)", true},
		{"aab (c)", "a+b (c)", false},
		{"//", "//", true},
	} {
		if got := match(t, tc.input, tc.text).Matched; got != tc.exp {
			t.Errorf("expected %q matched by %q %v; got %v",
				tc.input, tc.text, tc.exp, got)
		}
	}
}

func Test_unknown_spec_items_are_rejected(t *testing.T) {
	if _, err := Compile(42); !errors.Is(err, ErrItem) {
		t.Errorf("expected %v; got %v", ErrItem, err)
	}
}

func Test_invalid_patterns_are_rejected(t *testing.T) {
	if _, err := Compile("preg:/(unclosed/"); !errors.Is(err, ErrPattern) {
		t.Errorf("expected %v; got %v", ErrPattern, err)
	}
}

func Test_permutations_are_complete_and_distinct(t *testing.T) {
	pp := permute([]int{1, 2, 3})
	if len(pp) != 6 {
		t.Fatalf("expected 6 permutations; got %d", len(pp))
	}
	seen := map[[3]int]bool{}
	for _, p := range pp {
		seen[[3]int{p[0], p[1], p[2]}] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct permutations; got %d", len(seen))
	}
	if n := len(permute([]int{})); n != 1 {
		t.Errorf("expected the empty permutation; got %d", n)
	}
}
