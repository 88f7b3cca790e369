package pulse

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DuplicateChecker reports whether a text is a near-duplicate of content
// already delivered. Implemented by storage.RecencyCache.
type DuplicateChecker interface {
	IsDuplicate(text string) bool
}

// MultiplierRule multiplies the running score of an item whose text
// matches the pattern. Multiplicative on purpose: a handful of truly
// market-moving keywords (regulatory action, hacks, ETF approval) must
// dominate ranking instead of being diluted by additive bonuses.
type MultiplierRule struct {
	Pattern    *regexp.Regexp
	Multiplier float64
}

// RuleSet holds the compiled relevance and scoring rules.
type RuleSet struct {
	Exclude     []*regexp.Regexp // soft content: interviews, lifestyle, how-to
	Critical    []*regexp.Regexp // named assets, price action, market structure
	General     []*regexp.Regexp // broader crypto relevance
	Multipliers []MultiplierRule
	Reputable   []string // lowercased source substrings
}

// DefaultRuleSet returns the built-in rules. Config may replace the
// multiplier table and the reputable-source list.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Exclude: []*regexp.Regexp{
			regexp.MustCompile(`(?i)interview|podcast|lifestyle|how to|how-to|beginner'?s guide|sponsored|giveaway|horoscope`),
		},
		Critical: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bbitcoin\b|\bbtc\b|\bethereum\b|\beth\b|\bsolana\b|\bxrp\b`),
			regexp.MustCompile(`(?i)surge|crash|rally|plunge|all-time high|\bath\b|sell-?off|breakout`),
			regexp.MustCompile(`(?i)\betf\b|liquidation|market cap|funding rate|open interest`),
		},
		General: []*regexp.Regexp{
			regexp.MustCompile(`(?i)crypto|blockchain|defi|stablecoin|exchange|token|web3|mining|staking`),
		},
		Multipliers: []MultiplierRule{
			{regexp.MustCompile(`(?i)hack|exploit|vulnerability`), 2.0},
			{regexp.MustCompile(`(?i)\bsec\b|regulation|lawsuit`), 1.75},
			{regexp.MustCompile(`(?i)\betf\b|approval`), 1.75},
			{regexp.MustCompile(`(?i)all-time high|\bath\b|new high`), 1.5},
			{regexp.MustCompile(`(?i)partnership|acquisition`), 1.25},
			{regexp.MustCompile(`(?i)price target|\$\d+k`), 1.25},
		},
		Reputable: []string{"coindesk", "cointelegraph", "the block", "decrypt", "bloomberg", "reuters"},
	}
}

var (
	moneyRe    = regexp.MustCompile(`(?i)\$\d[\d,.]*\s*(million|billion|[mb]\b)|\bbillion\b|\bmillion\b`)
	movementRe = regexp.MustCompile(`(?i)surge|crash|rally|plunge|soar|tumble|all-time high|\bath\b|record high`)
	ageRe      = regexp.MustCompile(`(\d+)\s*(m\b|min|h\b|hour|d\b|day)`)
)

const (
	newsBaseScore = 2.0
	newsMaxScore  = 10
	kolMaxScore   = 100
)

// Scorer filters and scores content items.
type Scorer struct {
	rules        RuleSet
	cache        DuplicateChecker
	log          *slog.Logger
	minNewsScore int
	minKOLScore  int
	now          func() time.Time
}

// NewScorer builds a scorer. cache may be nil in tests to skip dedup.
func NewScorer(rules RuleSet, cache DuplicateChecker, minNewsScore, minKOLScore int, log *slog.Logger) *Scorer {
	return &Scorer{
		rules:        rules,
		cache:        cache,
		log:          log,
		minNewsScore: minNewsScore,
		minKOLScore:  minKOLScore,
		now:          time.Now,
	}
}

// IsRelevant applies the three-tier relevance gate: soft-content exclusion
// first, then the unconditional critical-market accept, then the general
// crypto gate.
func (s *Scorer) IsRelevant(it *ContentItem) bool {
	text := it.Text()

	for _, re := range s.rules.Critical {
		if re.MatchString(text) {
			return true
		}
	}
	for _, re := range s.rules.Exclude {
		if re.MatchString(text) {
			return false
		}
	}
	for _, re := range s.rules.General {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Score computes the news quality score: base, magnitude and movement
// bonuses, multiplicative keyword rules, source reputation, clamped to
// the cap and truncated to an integer.
func (s *Scorer) Score(it *ContentItem) int {
	text := it.Text()
	score := newsBaseScore

	if moneyRe.MatchString(text) {
		score += 2.0
	}
	if movementRe.MatchString(text) {
		score += 1.5
	}

	for _, rule := range s.rules.Multipliers {
		if rule.Pattern.MatchString(text) {
			score *= rule.Multiplier
		}
	}

	source := strings.ToLower(it.SourceName)
	for _, outlet := range s.rules.Reputable {
		if strings.Contains(source, outlet) {
			score += 1.0
			break
		}
	}

	if score > newsMaxScore {
		score = newsMaxScore
	}
	return int(score)
}

// ScoreKOL computes a social post's impact score: the account's base
// credibility plus the multiplier rules on the KOL scale, plus a recency
// bonus parsed from the free-text published hint.
func (s *Scorer) ScoreKOL(it *ContentItem, baseScore int) int {
	text := strings.ToLower(it.Text())
	score := float64(baseScore)

	for _, rule := range s.rules.Multipliers {
		if rule.Pattern.MatchString(text) {
			score *= rule.Multiplier
		}
	}

	score += float64(recencyBonus(it.PublishedHint, s.now()))

	if score > kolMaxScore {
		score = kolMaxScore
	}
	if score < 0 {
		score = 0
	}
	return int(score)
}

// recencyBonus maps post age to a bonus: fresher posts rank higher. The
// hint is free text from the source ("2h", "6 hours ago", RFC3339), so
// parsing is best effort and an unparseable hint earns nothing.
func recencyBonus(hint string, now time.Time) int {
	age, ok := parseAge(hint, now)
	if !ok {
		return 0
	}
	switch {
	case age <= 2*time.Hour:
		return 15
	case age <= 6*time.Hour:
		return 10
	case age <= 12*time.Hour:
		return 5
	}
	return 0
}

func parseAge(hint string, now time.Time) (time.Duration, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return 0, false
	}

	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, hint); err == nil {
			return now.Sub(t), true
		}
	}

	m := ageRe.FindStringSubmatch(strings.ToLower(hint))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch {
	case strings.HasPrefix(m[2], "m"):
		return time.Duration(n) * time.Minute, true
	case strings.HasPrefix(m[2], "h"):
		return time.Duration(n) * time.Hour, true
	default:
		return time.Duration(n) * 24 * time.Hour, true
	}
}

// ScoreNews filters and scores news items: irrelevant, low-scoring and
// near-duplicate items are dropped, the rest sorted descending by score.
func (s *Scorer) ScoreNews(items []*ContentItem) []*ContentItem {
	var scored []*ContentItem
	for _, it := range items {
		if !s.IsRelevant(it) {
			s.log.Debug("item rejected by relevance gate", "title", it.Title)
			continue
		}

		score := s.Score(it)
		if score < s.minNewsScore {
			s.log.Debug("item below minimum score", "title", it.Title, "score", score)
			continue
		}

		if s.cache != nil && s.cache.IsDuplicate(it.Text()) {
			s.log.Debug("item is near-duplicate of delivered content", "title", it.Title)
			continue
		}

		it.Score = score
		scored = append(scored, it)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	s.log.Info("scored news items", "kept", len(scored), "total", len(items), "threshold", s.minNewsScore)
	return scored
}

// ScoreKOLPosts filters and scores social posts the same way, on the KOL
// scale. baseScores maps lowercased account names to their tier score.
func (s *Scorer) ScoreKOLPosts(posts []*ContentItem, baseScores map[string]int) []*ContentItem {
	var scored []*ContentItem
	for _, p := range posts {
		base := baseScores[strings.ToLower(p.SourceName)]
		score := s.ScoreKOL(p, base)
		if score < s.minKOLScore {
			continue
		}
		if s.cache != nil && s.cache.IsDuplicate(p.Text()) {
			s.log.Debug("post is near-duplicate of delivered content", "account", p.SourceName)
			continue
		}
		p.Score = score
		scored = append(scored, p)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	s.log.Info("scored KOL posts", "kept", len(scored), "total", len(posts), "threshold", s.minKOLScore)
	return scored
}
