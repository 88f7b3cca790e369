package format

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBatchRespectsLimit(t *testing.T) {
	blocks := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}

	batches := Batch(blocks, 90, testLogger())
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for i, b := range batches {
		if len(b) > 90 {
			t.Errorf("batch %d has %d chars, limit is 90", i, len(b))
		}
	}
}

func TestBatchLimitCountsRunesNotBytes(t *testing.T) {
	// 40 CJK characters are 120 bytes; against a limit of 90 the packing
	// must behave exactly like 40 ASCII characters would.
	blocks := []string{
		strings.Repeat("幣", 40),
		strings.Repeat("鏈", 40),
		strings.Repeat("漲", 40),
	}

	batches := Batch(blocks, 90, testLogger())
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for i, b := range batches {
		if n := utf8.RuneCountInString(b); n > 90 {
			t.Errorf("batch %d has %d runes, limit is 90", i, n)
		}
	}
	if len(batches[0]) <= 90 {
		t.Error("first batch should exceed 90 bytes, otherwise the fixture proves nothing")
	}
}

func TestBatchNeverSplitsBlocks(t *testing.T) {
	blocks := []string{"first block", "second block", "third block"}

	batches := Batch(blocks, 30, testLogger())
	joined := strings.Join(batches, "\n")
	for _, block := range blocks {
		if !strings.Contains(joined, block) {
			t.Errorf("block %q missing or split in output", block)
		}
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	blocks := []string{"alpha", "bravo", "charlie", "delta"}

	batches := Batch(blocks, 12, testLogger())
	joined := strings.Join(batches, "\n")

	last := -1
	for _, block := range blocks {
		idx := strings.Index(joined, block)
		if idx < last {
			t.Errorf("block %q out of order", block)
		}
		last = idx
	}
}

func TestBatchOversizedBlockEmittedAlone(t *testing.T) {
	huge := strings.Repeat("x", 200)
	blocks := []string{"small", huge, "tail"}

	batches := Batch(blocks, 100, testLogger())
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[1] != huge {
		t.Error("oversized block must be emitted alone and untruncated")
	}
}

func TestBatchSkipsEmptyBlocks(t *testing.T) {
	batches := Batch([]string{"", "content", ""}, 100, testLogger())
	if len(batches) != 1 || batches[0] != "content" {
		t.Errorf("got %v, want single batch with content", batches)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	if batches := Batch(nil, 100, testLogger()); len(batches) != 0 {
		t.Errorf("got %d batches for empty input, want 0", len(batches))
	}
}
