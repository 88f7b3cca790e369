package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

const (
	coinGeckoBase = "https://api.coingecko.com/api/v3"
	fearGreedURL  = "https://api.alternative.me/fng/?limit=1"
)

type coinGeckoClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
	fngURL  string
	log     *slog.Logger
}

func newCoinGeckoClient(httpClient *http.Client, apiKey string, log *slog.Logger) *coinGeckoClient {
	return &coinGeckoClient{
		http:    httpClient,
		apiKey:  apiKey,
		baseURL: coinGeckoBase,
		fngURL:  fearGreedURL,
		log:     log,
	}
}

// FetchOverview gathers the headline market snapshot. Every sub-fetch is
// best effort; missing data leaves zero values and the digest renders
// placeholders.
func (c *coinGeckoClient) FetchOverview(ctx context.Context) pulse.MarketOverview {
	var o pulse.MarketOverview

	if err := c.fetchPrices(ctx, &o); err != nil {
		c.log.Error("failed to fetch coin prices", "error", err)
	}
	if err := c.fetchGlobal(ctx, &o); err != nil {
		c.log.Error("failed to fetch global market data", "error", err)
	}
	if err := c.fetchFearGreed(ctx, &o); err != nil {
		c.log.Error("failed to fetch fear/greed index", "error", err)
	}
	return o
}

func (c *coinGeckoClient) fetchPrices(ctx context.Context, o *pulse.MarketOverview) error {
	url := c.baseURL + "/simple/price?ids=bitcoin,ethereum,ripple&vs_currencies=usd&include_24hr_change=true"

	var resp map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return err
	}

	if q, ok := resp["bitcoin"]; ok {
		o.BTC = pulse.CoinQuote{PriceUSD: q.USD, Change24h: q.Change24h}
	}
	if q, ok := resp["ethereum"]; ok {
		o.ETH = pulse.CoinQuote{PriceUSD: q.USD, Change24h: q.Change24h}
	}
	if q, ok := resp["ripple"]; ok {
		o.XRP = pulse.CoinQuote{PriceUSD: q.USD, Change24h: q.Change24h}
	}
	return nil
}

func (c *coinGeckoClient) fetchGlobal(ctx context.Context, o *pulse.MarketOverview) error {
	var resp struct {
		Data struct {
			TotalMarketCap struct {
				USD float64 `json:"usd"`
			} `json:"total_market_cap"`
			MarketCapChange float64 `json:"market_cap_change_percentage_24h_usd"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/global", &resp); err != nil {
		return err
	}

	o.TotalMarketCap = resp.Data.TotalMarketCap.USD
	o.MarketCapChange = resp.Data.MarketCapChange
	return nil
}

func (c *coinGeckoClient) fetchFearGreed(ctx context.Context, o *pulse.MarketOverview) error {
	var resp struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.fngURL, &resp); err != nil {
		return err
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("fear/greed response has no data")
	}

	o.FearGreedValue = resp.Data[0].Value
	o.FearGreedClass = resp.Data[0].Classification
	return nil
}

func (c *coinGeckoClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer closeQuietly(resp.Body, c.log)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
