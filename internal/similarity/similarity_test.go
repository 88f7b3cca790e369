package similarity

import "testing"

func TestKeywordOverlapIdenticalTexts(t *testing.T) {
	s := KeywordOverlap{}
	text := "Bitcoin reaches new all-time high above $100,000"
	if got := s.Score(text, text); got != 1.0 {
		t.Errorf("identical texts: got %f, want 1.0", got)
	}
}

func TestKeywordOverlapDisjointTexts(t *testing.T) {
	s := KeywordOverlap{}
	if got := s.Score("ethereum staking rewards", "weather forecast tomorrow"); got != 0.0 {
		t.Errorf("disjoint texts: got %f, want 0.0", got)
	}
}

func TestKeywordOverlapEmptyText(t *testing.T) {
	s := KeywordOverlap{}
	if got := s.Score("", "bitcoin rally continues"); got != 0.0 {
		t.Errorf("empty text: got %f, want 0.0", got)
	}
	// URLs, mentions and hashtags alone leave no tokens
	if got := s.Score("https://example.com @whale #btc", "bitcoin rally"); got != 0.0 {
		t.Errorf("noise-only text: got %f, want 0.0", got)
	}
}

func TestKeywordOverlapSimilarHeadlines(t *testing.T) {
	s := KeywordOverlap{}
	a := "Bitcoin surges past $100,000 after ETF approval"
	b := "Bitcoin surges past $100,000 on ETF approval news"
	got := s.Score(a, b)
	if got < 0.6 {
		t.Errorf("near-duplicate headlines: got %f, want >= 0.6", got)
	}
}

func TestKeywordOverlapIgnoresShortWords(t *testing.T) {
	s := KeywordOverlap{}
	// "to" and "an" are below the 3-char token floor on both sides
	got := s.Score("to an bitcoin", "to an ethereum")
	if got != 0.0 {
		t.Errorf("short words should not count as overlap: got %f", got)
	}
}

func TestSequenceRatioIdentical(t *testing.T) {
	s := SequenceRatio{}
	if got := s.Score("whale alert", "whale alert"); got != 1.0 {
		t.Errorf("identical: got %f, want 1.0", got)
	}
	// Case-insensitive over raw strings
	if got := s.Score("Whale Alert", "whale alert"); got != 1.0 {
		t.Errorf("case-folded identical: got %f, want 1.0", got)
	}
}

func TestSequenceRatioEmpty(t *testing.T) {
	s := SequenceRatio{}
	if got := s.Score("", ""); got != 0.0 {
		t.Errorf("both empty: got %f, want 0.0", got)
	}
}

func TestSequenceRatioNearVerbatim(t *testing.T) {
	s := SequenceRatio{}
	a := "SEC delays decision on spot Ethereum ETF"
	b := "SEC delays decision on spot Ethereum ETFs"
	got := s.Score(a, b)
	if got < 0.9 {
		t.Errorf("near-verbatim: got %f, want >= 0.9", got)
	}
}

func TestSequenceRatioDistinct(t *testing.T) {
	s := SequenceRatio{}
	got := s.Score("abcdef", "uvwxyz")
	if got != 0.0 {
		t.Errorf("no common runes: got %f, want 0.0", got)
	}
}

func TestSequenceRatioKnownValue(t *testing.T) {
	s := SequenceRatio{}
	// "abcd" vs "bcde": matching block "bcd" (3), ratio = 2*3/8 = 0.75
	got := s.Score("abcd", "bcde")
	if got != 0.75 {
		t.Errorf("got %f, want 0.75", got)
	}
}
