// Package similarity computes a lexical similarity between a candidate's
// transcript and the reference answer. It is the secondary scoring signal:
// pure, deterministic, and independent of any oracle.
package similarity

import (
	"strings"
	"unicode"
)

// Dice returns the Sørensen–Dice coefficient of the two strings' character
// bigram multisets, in [0,1]. Comparison is case-insensitive and ignores
// whitespace. Strings that normalize to fewer than two runes have no
// bigrams; they score 0 against everything except an equal string, which
// scores 1. Dice(a, b) == Dice(b, a) for all inputs.
func Dice(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)

	if na == nb {
		return 1
	}

	ba := bigrams(na)
	bb := bigrams(nb)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	counts := make(map[string]int, len(ba))
	total := 0
	for _, g := range ba {
		counts[g]++
		total++
	}

	matches := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			matches++
		}
		total++
	}

	return 2 * float64(matches) / float64(total)
}

func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}
