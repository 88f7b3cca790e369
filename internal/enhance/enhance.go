// Package enhance rewrites selected items for display: article scraping,
// AI summary rewriting with a per-run budget, and a free translation
// fallback.
package enhance

import (
	"context"
	"log/slog"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/cache"
	"github.com/adawang1210/crypto-discord-bot/internal/metrics"
	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
	"github.com/adawang1210/crypto-discord-bot/internal/ratelimit"
	"github.com/adawang1210/crypto-discord-bot/internal/scraper"
)

// Rewriter produces the AI one-line summary. Implemented by gemini.Client.
type Rewriter interface {
	RewriteSummary(ctx context.Context, title, content string) (string, error)
}

// Translator is the zero-cost fallback. Implemented by translate.Translator.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

const memoTTL = 24 * time.Hour

// Enhancer decorates selected items in place. Every failure path leaves
// the item usable: the digest falls back to the raw title.
type Enhancer struct {
	rewriter   Rewriter
	translator Translator
	scraper    *scraper.Scraper
	memo       *cache.Cache
	budget     *ratelimit.Budget
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func New(rewriter Rewriter, translator Translator, sc *scraper.Scraper, memo *cache.Cache, budget *ratelimit.Budget, m *metrics.Metrics, log *slog.Logger) *Enhancer {
	return &Enhancer{
		rewriter:   rewriter,
		translator: translator,
		scraper:    sc,
		memo:       memo,
		budget:     budget,
		metrics:    m,
		log:        log,
	}
}

// Enhance processes items in order and returns the same slice: length
// and order are part of the contract, the selector already fixed the
// digest composition.
func (e *Enhancer) Enhance(ctx context.Context, items []*pulse.ContentItem) []*pulse.ContentItem {
	e.budget.Reset()

	for _, it := range items {
		e.enhanceOne(ctx, it)
	}
	return items
}

func (e *Enhancer) enhanceOne(ctx context.Context, it *pulse.ContentItem) {
	content := it.Summary

	// Social posts are already short; only news articles get scraped.
	if it.Origin == pulse.OriginNews && it.URL != "" {
		if article, err := e.scraper.Extract(ctx, it.URL); err == nil {
			if article.Content != "" {
				content = article.Content
			}
			if it.ImageURL == "" {
				it.ImageURL = article.ImageURL
			}
		} else {
			e.log.Debug("article extraction failed, using feed summary", "url", it.URL, "error", err)
		}
	}

	key := e.memo.GenerateKey(it.Text(), "zh-tw")
	if cached, ok := e.memo.Get(key); ok {
		e.budget.RecordCacheHit()
		it.Rewritten = cached
		return
	}

	if e.rewriter != nil && e.budget.Allow() {
		if err := e.budget.Use(); err == nil {
			rewritten, err := e.rewriter.RewriteSummary(ctx, it.Title, content)
			if err == nil && rewritten != "" {
				e.metrics.IncrementRewritesSucceeded()
				e.memo.Set(key, rewritten, memoTTL)
				it.Rewritten = rewritten
				return
			}
			e.metrics.IncrementRewritesFailed()
			e.log.Warn("AI rewrite failed, falling back to translation", "title", it.Title, "error", err)
		}
	}

	// Budget exhausted or rewrite failed: a plain translation still reads
	// better than the English headline.
	translated, err := e.translator.Translate(ctx, it.Title, "auto", "zh-TW")
	if err == nil && translated != it.Title {
		it.Rewritten = translated
	}
}
