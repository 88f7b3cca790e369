// Package similarity provides textual-overlap scoring used for duplicate
// detection against the recency cache and within selection.
package similarity

import (
	"regexp"
	"strings"
)

// Strategy computes a similarity score between two short texts in [0,1].
type Strategy interface {
	Name() string
	Score(a, b string) float64
}

var (
	noiseRe = regexp.MustCompile(`https?://\S+|@\w+|#\w+`)
	wordRe  = regexp.MustCompile(`\b\w{3,}\b`)
)

// extractKeywords strips URLs, mentions and hashtags, then collects
// lowercased words of 3+ characters.
func extractKeywords(text string) []string {
	text = noiseRe.ReplaceAllString(text, "")
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// KeywordOverlap scores by keyword-set intersection over the larger set.
// Cheap and tolerant of word reordering and translation noise.
type KeywordOverlap struct{}

func (KeywordOverlap) Name() string { return "keyword_overlap" }

func (KeywordOverlap) Score(a, b string) float64 {
	setA := toSet(extractKeywords(a))
	setB := toSet(extractKeywords(b))

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	maxLen := len(setA)
	if len(setB) > maxLen {
		maxLen = len(setB)
	}
	return float64(intersection) / float64(maxLen)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// SequenceRatio scores by the classic longest-matching-blocks ratio over
// raw lowercased strings: 2*M / (len(a)+len(b)) where M is the total size
// of all matching blocks. Catches near-verbatim duplicates that keyword
// overlap misses.
type SequenceRatio struct{}

func (SequenceRatio) Name() string { return "sequence_ratio" }

func (SequenceRatio) Score(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}

	matched := matchingBlocks(ra, rb, 0, len(ra), 0, len(rb))
	return 2 * float64(matched) / float64(total)
}

// matchingBlocks recursively sums matching block sizes: find the longest
// common substring in the window, then recurse on both sides of it.
func matchingBlocks(a, b []rune, aLo, aHi, bLo, bHi int) int {
	bestI, bestJ, bestSize := longestMatch(a, b, aLo, aHi, bLo, bHi)
	if bestSize == 0 {
		return 0
	}

	total := bestSize
	total += matchingBlocks(a, b, aLo, bestI, bLo, bestJ)
	total += matchingBlocks(a, b, bestI+bestSize, aHi, bestJ+bestSize, bHi)
	return total
}

// longestMatch finds the longest common substring of a[aLo:aHi] and
// b[bLo:bHi] using the standard dynamic-programming sweep.
func longestMatch(a, b []rune, aLo, aHi, bLo, bHi int) (int, int, int) {
	bestI, bestJ, bestSize := aLo, bLo, 0

	// lengths[j] holds the match length ending at a[i-1], b[j-1]
	lengths := make(map[int]int)
	for i := aLo; i < aHi; i++ {
		next := make(map[int]int)
		for j := bLo; j < bHi; j++ {
			if a[i] == b[j] {
				k := lengths[j-1] + 1
				next[j] = k
				if k > bestSize {
					bestI, bestJ, bestSize = i-k+1, j-k+1, k
				}
			}
		}
		lengths = next
	}

	return bestI, bestJ, bestSize
}
