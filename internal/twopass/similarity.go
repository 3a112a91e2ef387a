package twopass

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Similarity scores how alike two segments' topics are, used by the §4.6
// dedup rule. Decided (an Open Question in spec §9) as normalized
// token-set Jaccard overlap over title+context, pluggable so a different
// metric can be swapped in later without touching the filtering pipeline.
type Similarity func(a, b string) float64

// JaccardSimilarity is the default Similarity: tokenizes both strings by
// walking uniseg grapheme clusters and splitting on every ASCII character
// that is not a letter or digit (non-ASCII graphemes count as word
// characters, so multi-byte titles are never cut mid-character),
// lowercases, and returns |A∩B| / |A∪B| over the resulting token sets.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	var current strings.Builder

	state := -1
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		seg := gr.Str()
		// Split on whitespace and punctuation boundaries; uniseg reports
		// grapheme clusters, so we bucket by simple rune classification
		// rather than full word-segmentation to keep this dependency-light
		// while still multi-byte safe.
		r := []rune(seg)[0]
		isWordRune := isLetterOrDigit(r)
		if !isWordRune {
			if current.Len() > 0 {
				set[strings.ToLower(current.String())] = true
				current.Reset()
			}
			state = 0
			continue
		}
		current.WriteString(seg)
		state = 1
	}
	if state == 1 && current.Len() > 0 {
		set[strings.ToLower(current.String())] = true
	}
	return set
}

func isLetterOrDigit(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r > 127:
		// Treat any non-ASCII rune as word-forming; this is a
		// conservative heuristic that keeps CJK/accented titles from
		// being shredded into single-grapheme tokens.
		return true
	default:
		return false
	}
}

// TopicText builds the title+context string the §4.6 dedup rule compares,
// factored out so both the default Jaccard metric and any replacement
// operate over an identical input.
func TopicText(title, context string) string {
	return title + " " + context
}
