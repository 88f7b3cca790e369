// Package format renders the digest document and splits it into
// transport-sized batches.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━"

// Document is the rendered digest as an ordered list of atomic blocks.
// Each block is a logical unit (header, one item line, a divider) that
// the batcher must not split.
type Document struct {
	Blocks []string
}

// CategoryEmojis decorates section headings.
var categoryEmojis = map[pulse.Category]string{
	pulse.CategoryMacroPolicy:      "🏛️",
	pulse.CategoryCapitalFlow:      "💰",
	pulse.CategoryMajorCoins:       "₿",
	pulse.CategoryAltcoinsTrending: "🚀",
	pulse.CategoryTechNarratives:   "🔬",
	pulse.CategoryKOLInsights:      "🎤",
}

// FormatCurrency renders large dollar amounts in the digest's house
// style: $X.XXT, $X.XX億 (1e8), $X.XX萬 (1e4).
func FormatCurrency(value float64) string {
	switch {
	case value >= 1e12:
		return fmt.Sprintf("$%.2fT", value/1e12)
	case value >= 1e8:
		return fmt.Sprintf("$%.2f億", value/1e8)
	case value >= 1e4:
		return fmt.Sprintf("$%.2f萬", value/1e4)
	}
	return fmt.Sprintf("$%.2f", value)
}

// BuildDigest renders the full digest: market overview with today's
// focus, news items grouped by category with continuous numbering, and
// the community spotlight section for social posts.
func BuildDigest(overview pulse.MarketOverview, focus string, items []*pulse.ContentItem, now time.Time) Document {
	var doc Document

	doc.Blocks = append(doc.Blocks, buildOverview(overview, focus, now)...)

	news, social := splitByOrigin(items)
	doc.Blocks = append(doc.Blocks, buildMarketDynamics(news)...)
	doc.Blocks = append(doc.Blocks, buildSpotlight(social, now)...)

	return doc
}

func splitByOrigin(items []*pulse.ContentItem) (news, social []*pulse.ContentItem) {
	for _, it := range items {
		if it.Category == pulse.CategoryKOLInsights {
			social = append(social, it)
		} else {
			news = append(news, it)
		}
	}
	return news, social
}

func buildOverview(o pulse.MarketOverview, focus string, now time.Time) []string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🌅 **Crypto Morning Pulse | %s**\n", now.Format("Jan 02, 2006")))
	b.WriteString("Here's what's moving markets today\n\n")
	b.WriteString("**市場概況** (過去24小時)\n")
	b.WriteString(fmt.Sprintf("• BTC: $%s (%+.1f%%)\n", formatPrice(o.BTC.PriceUSD), o.BTC.Change24h))
	b.WriteString(fmt.Sprintf("• ETH: $%s (%+.1f%%)\n", formatPrice(o.ETH.PriceUSD), o.ETH.Change24h))
	b.WriteString(fmt.Sprintf("• XRP: $%.2f (%+.1f%%)\n", o.XRP.PriceUSD, o.XRP.Change24h))
	b.WriteString(fmt.Sprintf("• 總市值: %s (%+.1f%%)\n", FormatCurrency(o.TotalMarketCap), o.MarketCapChange))
	b.WriteString(fmt.Sprintf("• 恐懼貪婪指數: %s (%s)\n", orNA(o.FearGreedValue), orNA(o.FearGreedClass)))

	if focus == "" {
		focus = "市場動態觀察中。"
	}

	return []string{
		b.String(),
		"**今日重點:** " + focus,
		divider,
	}
}

func buildMarketDynamics(news []*pulse.ContentItem) []string {
	if len(news) == 0 {
		return nil
	}

	blocks := []string{"**Market Dynamics**"}

	grouped := make(map[pulse.Category][]*pulse.ContentItem)
	for _, it := range news {
		grouped[it.Category] = append(grouped[it.Category], it)
	}

	counter := 1
	for _, cat := range pulse.CategoryOrder {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}

		blocks = append(blocks, fmt.Sprintf("%s **%s**", categoryEmojis[cat], pulse.CategoryLabels[cat]))
		for _, it := range items {
			blocks = append(blocks, formatNewsLine(counter, it))
			counter++
		}
	}

	blocks = append(blocks, divider)
	return blocks
}

// formatNewsLine renders one item as a single atomic line:
// N. summary | source | [連結](url) | [📷](img).
func formatNewsLine(n int, it *pulse.ContentItem) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d. %s | %s", n, it.DisplaySummary(), orUnknown(it.SourceName)))
	if it.URL != "" {
		b.WriteString(fmt.Sprintf(" | [連結](%s)", it.URL))
	}
	if it.ImageURL != "" {
		b.WriteString(fmt.Sprintf(" | [📷](%s)", it.ImageURL))
	}
	return b.String()
}

func buildSpotlight(social []*pulse.ContentItem, now time.Time) []string {
	var blocks []string

	if len(social) > 0 {
		blocks = append(blocks, "**Community Spotlight**\n\n**X Trending Posts**")
		for i, post := range social {
			blocks = append(blocks, fmt.Sprintf("%d. **[@%s]** - %s | [貼文連結](%s)",
				i+1, orUnknown(post.SourceName), post.DisplaySummary(), post.URL))
		}
	}

	footer := fmt.Sprintf("%s\nPowered by Manus AI | Data: X, CryptoPanic, CoinGecko\nGenerated at: %s",
		divider, now.Format("15:04 MST"))
	return append(blocks, footer)
}

func formatPrice(v float64) string {
	// Thousands separators for readability: 98765 -> 98,765.
	s := fmt.Sprintf("%.0f", v)
	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 && r != '-' {
			out.WriteString(",")
		}
		out.WriteRune(r)
	}
	return out.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
