// Package pulse implements the content selection pipeline of the daily
// crypto market digest: scoring, deduplication, categorization and
// diversity-aware selection.
package pulse

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Category is one of the fixed digest sections. Every item maps to
// exactly one.
type Category string

const (
	CategoryMacroPolicy      Category = "macro_policy"
	CategoryCapitalFlow      Category = "capital_flow"
	CategoryMajorCoins       Category = "major_coins"
	CategoryAltcoinsTrending Category = "altcoins_trending"
	CategoryTechNarratives   Category = "tech_narratives"
	CategoryKOLInsights      Category = "kol_insights"
)

// CategoryOrder is the canonical display and coverage-pass order.
var CategoryOrder = []Category{
	CategoryMacroPolicy,
	CategoryCapitalFlow,
	CategoryMajorCoins,
	CategoryAltcoinsTrending,
	CategoryTechNarratives,
	CategoryKOLInsights,
}

// CategoryLabels maps category ids to section headings.
var CategoryLabels = map[Category]string{
	CategoryMacroPolicy:      "Macro/Policy",
	CategoryCapitalFlow:      "Capital Flow",
	CategoryMajorCoins:       "Major Coins",
	CategoryAltcoinsTrending: "Altcoins/Trending",
	CategoryTechNarratives:   "Tech/Narratives",
	CategoryKOLInsights:      "KOL Insights",
}

// OriginKind tells which collaborator produced an item.
type OriginKind string

const (
	OriginNews     OriginKind = "news"
	OriginSocial   OriginKind = "social"
	OriginTrending OriginKind = "trending"
)

// ContentItem is the unit flowing through the pipeline. The fetch layer
// fills the raw fields; Score and Category are assigned by the scorer and
// categorizer; Rewritten and ImageURL by the enhancement stage.
type ContentItem struct {
	Title         string
	Summary       string
	URL           string
	SourceName    string
	PublishedHint string // free-text timestamp as delivered by the source
	Origin        OriginKind

	Category Category
	Score    int

	Rewritten string // display summary after rewrite/translation
	ImageURL  string
}

// Text is the concatenation scoring, categorization and dedup operate on.
func (it *ContentItem) Text() string {
	if it.Summary == "" {
		return it.Title
	}
	return it.Title + " " + it.Summary
}

// Key derives a short stable id from title and source, used for
// cross-feed dedup of identical items and for logging.
func (it *ContentItem) Key() string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(it.Title + "|" + it.SourceName)))
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// DisplaySummary is the line shown in the digest: the rewritten text when
// enhancement succeeded, otherwise the raw title.
func (it *ContentItem) DisplaySummary() string {
	if it.Rewritten != "" {
		return it.Rewritten
	}
	return it.Title
}
