// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds small string helpers shared by the CLI, the
// verifier and the events console.
package textutils

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// EqualFold reports whether a and b match once accents, case and
// surrounding spaces are ignored. "Hauptstrasse" and "Hauptstraße" differ.
func EqualFold(a, b string) bool {
	return LowerASCIIFolding(a) == LowerASCIIFolding(b)
}

// Truncate cuts s to at most max runes, appending sep when it had to cut.
func Truncate(s string, max int, sep string) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	r := []rune(s)

	return string(r[:max]) + sep
}

// FormatInt formats an integer with commas for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfCommas := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfCommas)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}
