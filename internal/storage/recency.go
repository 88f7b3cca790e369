// Package storage persists the record of already-delivered digest content.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/similarity"
)

// Entry is a persisted record of a previously delivered item.
type Entry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"` // RFC3339
	Category  string `json:"category"`
}

// RecencyCache is a pruned append-only store of delivered item texts,
// used to reject near-duplicates of already-shown content. Keys are
// synthetic ("<category>_<timestamp>"), never content-derived: adding the
// same text twice produces two entries, entries are never updated.
//
// Not safe for concurrent writers; the pipeline serializes access.
type RecencyCache struct {
	filePath      string
	retentionDays int
	threshold     float64
	strategy      similarity.Strategy
	entries       map[string]Entry
	log           *slog.Logger
	now           func() time.Time
}

// NewRecencyCache loads the cache from filePath, discarding entries older
// than retentionDays. I/O failure on load is treated as an empty cache,
// never as a fatal error.
func NewRecencyCache(filePath string, retentionDays int, threshold float64, strategy similarity.Strategy, log *slog.Logger) *RecencyCache {
	c := &RecencyCache{
		filePath:      filePath,
		retentionDays: retentionDays,
		threshold:     threshold,
		strategy:      strategy,
		entries:       make(map[string]Entry),
		log:           log,
		now:           time.Now,
	}
	c.load()
	return c
}

func (c *RecencyCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Error("failed to read recency cache, starting empty", "path", c.filePath, "error", err)
		}
		return
	}
	if len(data) == 0 {
		return
	}

	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log.Error("failed to parse recency cache, starting empty", "path", c.filePath, "error", err)
		return
	}

	cutoff := c.now().AddDate(0, 0, -c.retentionDays)
	for key, entry := range raw {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			c.entries[key] = entry
		}
	}
	c.log.Info("loaded recency cache", "entries", len(c.entries), "pruned", len(raw)-len(c.entries))
}

// IsDuplicate reports whether text is a near-duplicate of any retained
// entry under the configured similarity threshold.
func (c *RecencyCache) IsDuplicate(text string) bool {
	for _, entry := range c.entries {
		score := c.strategy.Score(text, entry.Text)
		if score >= c.threshold {
			c.log.Debug("duplicate detected", "similarity", fmt.Sprintf("%.2f", score), "strategy", c.strategy.Name())
			return true
		}
	}
	return false
}

// Add inserts a new entry for a delivered item and persists the whole
// cache. Save failure is logged and swallowed: the digest was already
// posted, losing the cache entry only risks a future re-delivery.
func (c *RecencyCache) Add(text string, category string) {
	ts := c.now().Format(time.RFC3339Nano)
	key := category + "_" + ts
	c.entries[key] = Entry{
		Text:      text,
		Timestamp: ts,
		Category:  category,
	}
	c.save()
}

func (c *RecencyCache) save() {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.log.Error("failed to marshal recency cache", "error", err)
		return
	}
	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		c.log.Error("failed to write recency cache", "path", c.filePath, "error", err)
	}
}

// Len returns the number of retained entries.
func (c *RecencyCache) Len() int {
	return len(c.entries)
}
