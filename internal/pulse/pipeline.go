package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/metrics"
)

// Run-level failure conditions. Per-source and per-item failures never
// surface here; they are isolated at their stage boundary.
var (
	// ErrInsufficientContent aborts the run before any delivery when too
	// few items survive filtering.
	ErrInsufficientContent = errors.New("insufficient content for digest")
)

// Fetcher gathers raw content from all upstream sources. Unreachable
// sources contribute empty slices, never partial items.
type Fetcher interface {
	FetchAll(ctx context.Context) (*FetchResult, error)
}

// Enhancer rewrites display summaries and attaches media. The returned
// slice has the same length and order as the input; a failed enhancement
// returns the item unchanged.
type Enhancer interface {
	Enhance(ctx context.Context, items []*ContentItem) []*ContentItem
}

// Renderer turns the market overview and the selected items into
// transport-sized message batches. Implemented by format.Renderer.
type Renderer interface {
	Render(overview MarketOverview, focus string, items []*ContentItem, now time.Time) []string
}

// Sender delivers pre-sized batches sequentially to the destination
// channel, pacing between sends.
type Sender interface {
	SendBatches(ctx context.Context, channelID string, batches []string) error
}

// RecencyStore remembers delivered content for duplicate rejection.
type RecencyStore interface {
	DuplicateChecker
	Add(text, category string)
}

// Config holds the pipeline policy knobs.
type Config struct {
	ChannelID   string
	TargetItems int // digest size (default 5)
	MinItems    int // minimum viable item count before aborting (default 3)
	KOLScores   map[string]int
}

// Pipeline runs one digest cycle: fetch, score, dedup, categorize,
// select, enhance, format, batch, deliver, remember. One run per
// delivery window; the scheduler guards reentrancy.
type Pipeline struct {
	fetcher  Fetcher
	scorer   *Scorer
	selector *Selector
	enhancer Enhancer
	renderer Renderer
	sender   Sender
	cache    RecencyStore
	metrics  *metrics.Metrics
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// New wires a pipeline from its collaborators.
func New(fetcher Fetcher, scorer *Scorer, selector *Selector, enhancer Enhancer, renderer Renderer, sender Sender, cache RecencyStore, m *metrics.Metrics, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.TargetItems <= 0 {
		cfg.TargetItems = 5
	}
	if cfg.MinItems <= 0 {
		cfg.MinItems = 3
	}
	return &Pipeline{
		fetcher:  fetcher,
		scorer:   scorer,
		selector: selector,
		enhancer: enhancer,
		renderer: renderer,
		sender:   sender,
		cache:    cache,
		metrics:  m,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Run executes one digest cycle. A nil return means the digest was
// delivered; a non-nil return is a whole-run failure (nothing was sent).
func (p *Pipeline) Run(ctx context.Context) error {
	started := p.now()
	defer func() {
		p.metrics.RecordProcessingTime(time.Since(started))
	}()

	result, err := p.fetcher.FetchAll(ctx)
	if err != nil {
		// Total fetch failure still yields an empty result; the run
		// fails below on insufficient content rather than here.
		p.log.Error("fetch failed entirely", "error", err)
		result = &FetchResult{}
	}
	p.metrics.AddItemsProcessed(len(result.News) + len(result.Social))
	p.log.Info("fetched content", "news", len(result.News), "social", len(result.Social))

	news := p.scorer.ScoreNews(result.News)
	posts := p.scorer.ScoreKOLPosts(result.Social, p.cfg.KOLScores)

	for _, it := range news {
		it.Category = Categorize(it)
	}

	var spotlight *ContentItem
	if len(posts) > 0 {
		spotlight = posts[0]
		spotlight.Category = CategoryKOLInsights
	}

	selected := p.selector.Select(news, p.cfg.TargetItems, spotlight)
	if len(selected) < p.cfg.MinItems {
		p.log.Warn("aborting run before delivery", "selected", len(selected), "minimum", p.cfg.MinItems)
		return fmt.Errorf("%w: %d of %d", ErrInsufficientContent, len(selected), p.cfg.MinItems)
	}

	enhanced := p.enhancer.Enhance(ctx, selected)
	if len(enhanced) != len(selected) {
		// The enhancement contract is same-length, same-order. Fall back
		// to the un-enhanced items rather than deliver a reshaped digest.
		p.log.Error("enhancer violated same-length contract, using originals",
			"got", len(enhanced), "want", len(selected))
		enhanced = selected
	}

	batches := p.renderer.Render(result.Overview, p.buildFocus(result.Overview, enhanced), enhanced, p.now())

	if err := p.sender.SendBatches(ctx, p.cfg.ChannelID, batches); err != nil {
		return fmt.Errorf("delivering digest: %w", err)
	}
	p.metrics.AddBatchesSent(len(batches))

	// Remember what was shown. Cache I/O errors are swallowed inside the
	// store; a lost entry only risks a future duplicate.
	for _, it := range enhanced {
		p.cache.Add(it.Text(), string(it.Category))
	}

	p.log.Info("digest delivered", "items", len(enhanced), "batches", len(batches))
	return nil
}

// buildFocus produces the one-line "Today's Focus": market direction from
// the overview plus the highest-scoring story of the day.
func (p *Pipeline) buildFocus(o MarketOverview, items []*ContentItem) string {
	direction := "市場震盪整理"
	switch {
	case o.BTC.Change24h >= 3:
		direction = "比特幣領漲，市場情緒偏多"
	case o.BTC.Change24h <= -3:
		direction = "比特幣承壓回調，注意風險"
	}

	var top *ContentItem
	for _, it := range items {
		if it.Category == CategoryKOLInsights {
			continue
		}
		if top == nil || it.Score > top.Score {
			top = it
		}
	}
	if top == nil {
		return direction + "。"
	}
	return fmt.Sprintf("%s。焦點：%s", direction, top.DisplaySummary())
}
