// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package initials derives the short avatar label shown next to a display name.
//
// # Usage
//
// "John Doe" becomes "JD", "élodie" becomes "E". The comment widget renders
// the label inside a colored square, so it is always one or two letters.
package initials

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxLetters is the number of words that contribute a letter.
const maxLetters = 2

// Fallback is returned when the name holds no letters or digits.
const Fallback = "?"

var upper = cases.Upper(language.Und)

// From converts a display name into an uppercase label of at most two runes.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks (accents).
// 3. Splits on anything that is not a letter or digit.
// 4. Takes the first rune of the first two words and uppercases them.
func From(name string) string {
	// 1. Normalize and remove accents
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, name)
	if err != nil {
		result = name
	}

	// 2. Split into words
	words := strings.FieldsFunc(result, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	if len(words) == 0 {
		return Fallback
	}

	// 3. Collect the leading rune of each word
	var builder strings.Builder
	for index, word := range words {
		if index == maxLetters {
			break
		}
		for _, r := range word {
			builder.WriteRune(r)
			break
		}
	}

	return upper.String(builder.String())
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
