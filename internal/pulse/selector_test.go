package pulse

import "testing"

func item(title string, cat Category, score int) *ContentItem {
	return &ContentItem{Title: title, Category: cat, Score: score}
}

func TestSelectCoversCategoriesFirst(t *testing.T) {
	s := NewSelector(2, testLogger())

	// High scores concentrated in one category must not crowd out
	// represented categories in pass 1.
	candidates := []*ContentItem{
		item("major 1", CategoryMajorCoins, 10),
		item("major 2", CategoryMajorCoins, 9),
		item("major 3", CategoryMajorCoins, 9),
		item("macro 1", CategoryMacroPolicy, 6),
		item("flow 1", CategoryCapitalFlow, 6),
		item("alt 1", CategoryAltcoinsTrending, 5),
		item("tech 1", CategoryTechNarratives, 5),
	}

	got := s.Select(candidates, 5, nil)
	if len(got) != 5 {
		t.Fatalf("selected %d items, want 5", len(got))
	}

	cats := make(map[Category]int)
	for _, it := range got {
		cats[it.Category]++
	}
	for _, want := range []Category{CategoryMacroPolicy, CategoryCapitalFlow, CategoryMajorCoins, CategoryAltcoinsTrending, CategoryTechNarratives} {
		if cats[want] == 0 {
			t.Errorf("category %q missing from selection", want)
		}
	}
}

func TestSelectPerCategoryCap(t *testing.T) {
	s := NewSelector(2, testLogger())

	candidates := []*ContentItem{
		item("major 1", CategoryMajorCoins, 10),
		item("major 2", CategoryMajorCoins, 10),
		item("major 3", CategoryMajorCoins, 10),
		item("major 4", CategoryMajorCoins, 10),
		item("macro 1", CategoryMacroPolicy, 3),
	}

	got := s.Select(candidates, 5, nil)

	// With 2 categories, a cap of 2 bounds the result at 4, and only 3
	// items are admissible here.
	if len(got) != 3 {
		t.Fatalf("selected %d items, want 3 (cap 2 x 1 full category + 1)", len(got))
	}
	cats := make(map[Category]int)
	for _, it := range got {
		cats[it.Category]++
	}
	if cats[CategoryMajorCoins] != 2 {
		t.Errorf("major coins got %d slots, cap is 2", cats[CategoryMajorCoins])
	}
}

func TestSelectFillsByScoreAfterCoverage(t *testing.T) {
	s := NewSelector(2, testLogger())

	candidates := []*ContentItem{
		item("macro 1", CategoryMacroPolicy, 8),
		item("macro 2", CategoryMacroPolicy, 7),
		item("flow 1", CategoryCapitalFlow, 4),
		item("flow 2", CategoryCapitalFlow, 2),
	}

	got := s.Select(candidates, 3, nil)
	if len(got) != 3 {
		t.Fatalf("selected %d items, want 3", len(got))
	}
	// Pass 2 should pick the second macro item (7) over the second flow
	// item (2).
	found := false
	for _, it := range got {
		if it.Title == "macro 2" {
			found = true
		}
	}
	if !found {
		t.Error("pass 2 should admit the globally best remaining item")
	}
}

func TestSelectSpotlightFirst(t *testing.T) {
	s := NewSelector(2, testLogger())

	spotlight := item("top KOL take", CategoryKOLInsights, 95)
	candidates := []*ContentItem{
		item("macro 1", CategoryMacroPolicy, 8),
		item("major 1", CategoryMajorCoins, 7),
	}

	got := s.Select(candidates, 3, spotlight)
	if len(got) != 3 {
		t.Fatalf("selected %d items, want 3", len(got))
	}
	if got[0] != spotlight {
		t.Errorf("spotlight must be first, got %q", got[0].Title)
	}
}

func TestSelectShortResult(t *testing.T) {
	s := NewSelector(2, testLogger())

	candidates := []*ContentItem{
		item("only one", CategoryMajorCoins, 9),
	}
	got := s.Select(candidates, 5, nil)
	if len(got) != 1 {
		t.Errorf("selected %d items, want 1 (never pad)", len(got))
	}
}

func TestSelectZeroTarget(t *testing.T) {
	s := NewSelector(2, testLogger())
	if got := s.Select([]*ContentItem{item("x", CategoryMajorCoins, 5)}, 0, nil); got != nil {
		t.Errorf("Select with target 0 = %v, want nil", got)
	}
}
