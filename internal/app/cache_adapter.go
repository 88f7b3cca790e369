package app

import (
	"github.com/adawang1210/crypto-discord-bot/internal/metrics"
	"github.com/adawang1210/crypto-discord-bot/internal/storage"
)

// countingRecency wraps the recency cache so every rejected duplicate
// shows up in the run metrics.
type countingRecency struct {
	inner   *storage.RecencyCache
	metrics *metrics.Metrics
}

func (c *countingRecency) IsDuplicate(text string) bool {
	if c.inner.IsDuplicate(text) {
		c.metrics.IncrementDuplicatesFiltered()
		return true
	}
	return false
}

func (c *countingRecency) Add(text, category string) {
	c.inner.Add(text, category)
}
