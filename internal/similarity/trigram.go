// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package similarity

import (
	"strings"
	"unicode"
)

// Trigram scoring compatible with postgres pg_trgm: text is lowercased,
// non-alphanumeric runs become word boundaries, each word is padded with two
// leading and one trailing space, and similarity is the Jaccard ratio of the
// two trigram sets. Punctuation-only edits ("Use JWT, not sessions." vs
// "Use JWT not sessions") therefore score 1.0, which is what makes loose
// dedup of restated facts work.

// Similarity returns the trigram similarity of two strings in [0, 1].
func Similarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		if strings.TrimSpace(a) == strings.TrimSpace(b) {
			return 1
		}
		return 0
	}

	intersection := 0
	for g := range ta {
		if tb[g] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// trigrams extracts the padded word trigram set of a string.
func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range splitWords(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = true
		}
	}
	return set
}

// splitWords lowercases and splits on any non-alphanumeric rune.
func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
