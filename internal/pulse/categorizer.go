package pulse

import "regexp"

// categoryRule binds a category to its keyword pattern. Rules are checked
// in order and the first match wins, so capital-flow patterns must come
// before macro-policy, which must come before named coins: a whale
// transfer that mentions an SEC filing is still a capital-flow story.
type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
}

var categoryRules = []categoryRule{
	{CategoryCapitalFlow, regexp.MustCompile(`(?i)inflow|outflow|whale|transfer|drain|hack|exploit|liquidat`)},
	{CategoryMacroPolicy, regexp.MustCompile(`(?i)\bsec\b|regulat|lawsuit|\blaw\b|policy|\betf\b|\bfed\b|interest rate|treasury`)},
	{CategoryMajorCoins, regexp.MustCompile(`(?i)\bbitcoin\b|\bbtc\b|\bethereum\b|\beth\b|\bsolana\b|\bsol\b|\bxrp\b`)},
	{CategoryAltcoinsTrending, regexp.MustCompile(`(?i)altcoin|token|memecoin|trending|surge|pump`)},
	{CategoryTechNarratives, regexp.MustCompile(`(?i)\blayer\b|\bl2\b|defi|\brwa\b|\bai\b|\bzk\b|protocol|rollup`)},
}

// Categorize maps an item to exactly one category by ordered first-match
// over title+summary. Items with no match default to macro/policy.
func Categorize(it *ContentItem) Category {
	text := it.Text()
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return CategoryMacroPolicy
}
