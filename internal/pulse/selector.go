package pulse

import (
	"log/slog"
	"sort"
)

// Selector produces the final ordered digest list, maximizing category
// coverage before filling remaining slots by raw score.
type Selector struct {
	maxPerCategory int
	log            *slog.Logger
}

// NewSelector builds a selector with the per-category cap (default 2
// when cap <= 0).
func NewSelector(maxPerCategory int, log *slog.Logger) *Selector {
	if maxPerCategory <= 0 {
		maxPerCategory = 2
	}
	return &Selector{maxPerCategory: maxPerCategory, log: log}
}

// Select picks up to target items from the scored candidates. An optional
// spotlight item (e.g. the top KOL post) is placed first unconditionally
// and consumes one slot of its category's quota.
//
// Pass 1 walks categories in canonical order and gives every represented
// category one slot before any category gets a second. Pass 2 pools the
// remaining candidates, sorts by score and admits the globally best while
// holding each category to the cap. The result may be shorter than target
// when candidates run out; the caller handles short results.
func (s *Selector) Select(candidates []*ContentItem, target int, spotlight *ContentItem) []*ContentItem {
	if target <= 0 {
		return nil
	}

	selected := make([]*ContentItem, 0, target)
	perCategory := make(map[Category]int)
	taken := make(map[*ContentItem]bool)

	if spotlight != nil {
		selected = append(selected, spotlight)
		perCategory[spotlight.Category]++
		taken[spotlight] = true
	}

	// Candidates arrive score-sorted; grouping preserves that order
	// inside each category.
	byCategory := make(map[Category][]*ContentItem)
	for _, it := range candidates {
		if taken[it] {
			continue
		}
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}

	// Pass 1: coverage.
	for _, cat := range CategoryOrder {
		if len(selected) >= target {
			break
		}
		if perCategory[cat] > 0 {
			continue
		}
		if group := byCategory[cat]; len(group) > 0 {
			it := group[0]
			selected = append(selected, it)
			taken[it] = true
			perCategory[cat]++
		}
	}

	// Pass 2: fill by global score under the per-category cap. Over-cap
	// items are skipped, not dropped; they stay eligible in case the cap
	// ever rises, but within one selection a skip is final.
	var pool []*ContentItem
	for _, cat := range CategoryOrder {
		for _, it := range byCategory[cat] {
			if !taken[it] {
				pool = append(pool, it)
			}
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})

	for _, it := range pool {
		if len(selected) >= target {
			break
		}
		if perCategory[it.Category] >= s.maxPerCategory {
			continue
		}
		selected = append(selected, it)
		taken[it] = true
		perCategory[it.Category]++
	}

	if len(selected) > target {
		selected = selected[:target]
	}

	counts := make(map[string]int, len(perCategory))
	for cat, n := range perCategory {
		counts[string(cat)] = n
	}
	s.log.Info("selected items with category diversity", "count", len(selected), "categories", counts)
	return selected
}
