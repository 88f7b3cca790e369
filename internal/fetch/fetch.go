// Package fetch gathers market data, news and social posts from the
// upstream sources. Each source is isolated: an unreachable source logs
// and contributes nothing, it never fails the whole fetch.
package fetch

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/adawang1210/crypto-discord-bot/internal/config"
	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

// Service aggregates all upstream fetchers behind one FetchAll call.
type Service struct {
	sources     *config.Sources
	coinGecko   *coinGeckoClient
	cryptoPanic *cryptoPanicClient
	rss         *rssClient
	nitter      *nitterClient
	concurrency int
	log         *slog.Logger
}

func NewService(cfg *config.Config, sources *config.Sources, log *slog.Logger) *Service {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return &Service{
		sources:     sources,
		coinGecko:   newCoinGeckoClient(httpClient, cfg.CoinGeckoAPIKey, log),
		cryptoPanic: newCryptoPanicClient(httpClient, cfg.CryptoPanicAPIKey, log),
		rss:         newRSSClient(cfg.MaxItemsPerFeed, cfg.NewsMaxAge, log),
		nitter:      newNitterClient(httpClient, sources.NitterInstances, log),
		concurrency: cfg.FetchConcurrency,
		log:         log,
	}
}

// FetchAll runs all source fetches concurrently under one bounded group.
// Each goroutine writes to its own slot; results are assembled in
// configured source order after Wait, so equal-score items keep a stable
// tiebreak downstream regardless of completion order. The returned error
// is always nil today; the signature leaves room for a future
// hard-failure mode.
func (s *Service) FetchAll(ctx context.Context) (*pulse.FetchResult, error) {
	var (
		overview  pulse.MarketOverview
		headlines []*pulse.ContentItem
		feedItems = make([][]*pulse.ContentItem, len(s.sources.Feeds))
		kolPosts  = make([][]*pulse.ContentItem, len(s.sources.KOLs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	g.Go(func() error {
		overview = s.coinGecko.FetchOverview(gctx)
		return nil
	})

	g.Go(func() error {
		headlines = s.cryptoPanic.FetchNews(gctx)
		return nil
	})

	for i, feed := range s.sources.Feeds {
		i, feed := i, feed
		g.Go(func() error {
			feedItems[i] = s.rss.FetchFeed(gctx, feed)
			return nil
		})
	}

	for i, kol := range s.sources.KOLs {
		i, kol := i, kol
		g.Go(func() error {
			kolPosts[i] = s.nitter.FetchPosts(gctx, kol.Handle)
			return nil
		})
	}

	// Source goroutines never return errors; Wait only observes ctx.
	_ = g.Wait()

	result := &pulse.FetchResult{Overview: overview}
	result.News = append(result.News, headlines...)
	for _, items := range feedItems {
		result.News = append(result.News, items...)
	}
	for _, posts := range kolPosts {
		result.Social = append(result.Social, posts...)
	}

	result.News = dedupeByKey(result.News)
	result.Social = dedupeByKey(result.Social)

	s.log.Info("fetch complete",
		"news", len(result.News),
		"social", len(result.Social),
		"btc_price", result.Overview.BTC.PriceUSD)
	return result, nil
}

// dedupeByKey drops exact re-fetches of the same item (same title and
// source) across overlapping feeds, keeping first occurrence.
func dedupeByKey(items []*pulse.ContentItem) []*pulse.ContentItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

func closeQuietly(c interface{ Close() error }, log *slog.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("failed to close response body", "error", err)
	}
}
