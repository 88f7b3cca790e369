package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/adawang1210/crypto-discord-bot/internal/config"
	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

const cryptoPanicURL = "https://cryptopanic.com/api/v1/posts/"

type cryptoPanicClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
	log     *slog.Logger
}

func newCryptoPanicClient(httpClient *http.Client, apiKey string, log *slog.Logger) *cryptoPanicClient {
	return &cryptoPanicClient{http: httpClient, apiKey: apiKey, baseURL: cryptoPanicURL, log: log}
}

// FetchNews pulls the latest curated headlines. Without an API key the
// source is skipped entirely.
func (c *cryptoPanicClient) FetchNews(ctx context.Context) []*pulse.ContentItem {
	if c.apiKey == "" {
		c.log.Debug("cryptopanic API key not set, skipping source")
		return nil
	}

	url := fmt.Sprintf("%s?auth_token=%s&kind=news&filter=important&public=true", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.Error("failed to build cryptopanic request", "error", err)
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("cryptopanic request failed", "error", err)
		return nil
	}
	defer closeQuietly(resp.Body, c.log)

	if resp.StatusCode != http.StatusOK {
		c.log.Error("cryptopanic returned non-200", "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			PublishedAt string `json:"published_at"`
			Source      struct {
				Title string `json:"title"`
			} `json:"source"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Error("failed to decode cryptopanic response", "error", err)
		return nil
	}

	items := make([]*pulse.ContentItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.Title == "" {
			continue
		}
		items = append(items, &pulse.ContentItem{
			Title:         r.Title,
			URL:           r.URL,
			SourceName:    r.Source.Title,
			PublishedHint: r.PublishedAt,
			Origin:        pulse.OriginNews,
		})
	}
	c.log.Info("fetched cryptopanic headlines", "count", len(items))
	return items
}

type rssClient struct {
	parser   *gofeed.Parser
	maxItems int
	maxAge   time.Duration
	log      *slog.Logger
}

func newRSSClient(maxItems int, maxAge time.Duration, log *slog.Logger) *rssClient {
	return &rssClient{
		parser:   gofeed.NewParser(),
		maxItems: maxItems,
		maxAge:   maxAge,
		log:      log,
	}
}

// FetchFeed downloads and parses one RSS feed, dropping stale entries
// and capping the per-feed item count.
func (c *rssClient) FetchFeed(ctx context.Context, feed config.Feed) []*pulse.ContentItem {
	parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		c.log.Error("failed to parse RSS feed", "feed", feed.Name, "url", feed.URL, "error", err)
		return nil
	}

	cutoff := time.Now().Add(-c.maxAge)
	var items []*pulse.ContentItem
	for _, entry := range parsed.Items {
		if len(items) >= c.maxItems {
			break
		}
		if entry.PublishedParsed != nil && entry.PublishedParsed.Before(cutoff) {
			continue
		}

		hint := entry.Published
		if entry.PublishedParsed != nil {
			hint = entry.PublishedParsed.Format(time.RFC3339)
		}
		items = append(items, &pulse.ContentItem{
			Title:         entry.Title,
			Summary:       entry.Description,
			URL:           entry.Link,
			SourceName:    feed.Name,
			PublishedHint: hint,
			Origin:        pulse.OriginNews,
		})
	}

	c.log.Info("fetched RSS feed", "feed", feed.Name, "kept", len(items), "total", len(parsed.Items))
	return items
}
