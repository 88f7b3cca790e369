package pulse

// CoinQuote is a 24h price snapshot for one asset.
type CoinQuote struct {
	PriceUSD  float64
	Change24h float64
}

// MarketOverview is the headline market data shown in the digest's first
// section. Zero values mean the corresponding source was unreachable;
// the digest still renders with placeholders.
type MarketOverview struct {
	BTC CoinQuote
	ETH CoinQuote
	XRP CoinQuote

	TotalMarketCap  float64
	MarketCapChange float64

	FearGreedValue string
	FearGreedClass string
}

// FetchResult is what the fetch collaborator hands to the pipeline.
type FetchResult struct {
	Overview MarketOverview
	News     []*ContentItem
	Social   []*ContentItem
}
