package format

import (
	"log/slog"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

// Renderer is the pipeline's rendering stage: it assembles the digest
// document and splits it into transport-sized batches.
type Renderer struct {
	limit int
	log   *slog.Logger
}

// NewRenderer builds a renderer with the given per-message character
// limit (default 1900 when limit <= 0).
func NewRenderer(limit int, log *slog.Logger) *Renderer {
	if limit <= 0 {
		limit = 1900
	}
	return &Renderer{limit: limit, log: log}
}

// Render builds the digest document and batches its blocks.
func (r *Renderer) Render(overview pulse.MarketOverview, focus string, items []*pulse.ContentItem, now time.Time) []string {
	doc := BuildDigest(overview, focus, items, now)
	return Batch(doc.Blocks, r.limit, r.log)
}
