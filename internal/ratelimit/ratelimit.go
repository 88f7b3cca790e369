package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
)

// Budget caps AI rewrite calls per digest run so a single run cannot
// burn through the provider quota. The pipeline resets it at run start.
type Budget struct {
	mu          sync.Mutex
	used        int
	max         int // 0 = unlimited
	cacheHits   int
	cacheMisses int
	log         *slog.Logger
}

func NewBudget(max int, log *slog.Logger) *Budget {
	return &Budget{max: max, log: log}
}

// Allow reports whether another AI call fits in the budget.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && b.used >= b.max {
		b.log.Warn("AI rewrite budget exhausted", "used", b.used, "max", b.max)
		return false
	}
	return true
}

// Use consumes one call from the budget.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("AI rewrite budget exceeded (%d/%d)", b.used, b.max)
	}
	b.used++
	b.cacheMisses++
	b.log.Debug("AI call used", "used", b.used, "max", b.max)
	return nil
}

// RecordCacheHit records a rewrite served from the memo cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Reset clears the per-run counters.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used = 0
	b.cacheHits = 0
	b.cacheMisses = 0
}

// Stats returns the counters for the admin metrics endpoint.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	hitRate := 0.0
	if total := b.cacheHits + b.cacheMisses; total > 0 {
		hitRate = float64(b.cacheHits) / float64(total) * 100
	}
	return map[string]interface{}{
		"ai_calls_used":  b.used,
		"ai_calls_limit": b.max,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": hitRate,
	}
}
