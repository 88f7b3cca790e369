package pulse

import "testing"

func TestCategorizeFirstMatchOrder(t *testing.T) {
	// Capital-flow keywords outrank macro-policy ones even when both
	// appear in the same headline.
	it := &ContentItem{Title: "Whale transfers $50M to Binance amid new SEC filing"}
	if got := Categorize(it); got != CategoryCapitalFlow {
		t.Errorf("Categorize() = %q, want %q", got, CategoryCapitalFlow)
	}
}

func TestCategorizeByKeyword(t *testing.T) {
	cases := []struct {
		title string
		want  Category
	}{
		{"SEC delays decision on spot Ethereum ETF", CategoryMacroPolicy},
		{"Exchange outflows hit 3-month high", CategoryCapitalFlow},
		{"Bitcoin reclaims $100K after weekend dip", CategoryMajorCoins},
		{"Memecoin frenzy returns as trading volume spikes", CategoryAltcoinsTrending},
		{"New ZK rollup promises cheaper DeFi settlement", CategoryTechNarratives},
	}
	for _, tc := range cases {
		it := &ContentItem{Title: tc.title}
		if got := Categorize(it); got != tc.want {
			t.Errorf("Categorize(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestCategorizeDefault(t *testing.T) {
	it := &ContentItem{Title: "Quarterly industry report published"}
	if got := Categorize(it); got != CategoryMacroPolicy {
		t.Errorf("Categorize() = %q, want default %q", got, CategoryMacroPolicy)
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	it := &ContentItem{Title: "Whale moves tokens as regulators circle", Summary: "Large transfer spotted on-chain"}
	first := Categorize(it)
	for i := 0; i < 10; i++ {
		if got := Categorize(it); got != first {
			t.Fatalf("Categorize() not deterministic: got %q then %q", first, got)
		}
	}
}

func TestCategorizeUsesSummary(t *testing.T) {
	it := &ContentItem{
		Title:   "Market update",
		Summary: "Massive whale transfer drained the exchange's hot wallet",
	}
	if got := Categorize(it); got != CategoryCapitalFlow {
		t.Errorf("Categorize() = %q, want %q (summary text should count)", got, CategoryCapitalFlow)
	}
}
