// Copyright (c) 2022 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package validate tells delimited regular expressions like
// `/^Missing \w+$/i` apart from plain strings.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotPattern is returned by Compile for a string which isn't a
// delimited regular expression.
var ErrNotPattern = errors.New("validate: not a delimited pattern")

// delimiters which may enclose a pattern.
const delimiters = "/#~!@%|"

// flags which may follow a pattern's closing delimiter.
const flags = "imsU"

// Compile translates given delimited pattern into a regular expression.
// The flags i, m, s and U are supported.
func Compile(s string) (*regexp.Regexp, error) {
	if len(s) < 3 || !strings.ContainsRune(delimiters, rune(s[0])) {
		return nil, fmt.Errorf("%w: %q", ErrNotPattern, s)
	}
	end := strings.LastIndexByte(s, s[0])
	if end == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotPattern, s)
	}
	body, mods := s[1:end], s[end+1:]
	if body == "" {
		return nil, fmt.Errorf("%w: %q: empty", ErrNotPattern, s)
	}
	for _, m := range mods {
		if !strings.ContainsRune(flags, m) {
			return nil, fmt.Errorf("%w: %q: flag %q", ErrNotPattern, s, m)
		}
	}
	if mods != "" {
		body = "(?" + mods + ")" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotPattern, s, err)
	}
	return re, nil
}

// IsPattern returns true iff given string is a delimited regular
// expression which compiles.
func IsPattern(s string) bool {
	_, err := Compile(s)
	return err == nil
}
