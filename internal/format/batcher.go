package format

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Batch splits rendered blocks into messages that fit under limit
// characters. The limit counts runes, not bytes: Discord counts
// characters, and the zh-TW output is mostly multi-byte. Blocks are
// atomic: a block is never split across batches. A single block longer
// than the limit is emitted alone as an oversized batch rather than
// truncated or corrupted; the transport may still reject it, which is
// preferable to silently mangling content.
func Batch(blocks []string, limit int, log *slog.Logger) []string {
	var batches []string
	var buf strings.Builder
	bufRunes := 0

	flush := func() {
		if buf.Len() > 0 {
			batches = append(batches, buf.String())
			buf.Reset()
			bufRunes = 0
		}
	}

	for _, block := range blocks {
		if block == "" {
			continue
		}

		blockRunes := utf8.RuneCountInString(block)
		if blockRunes > limit {
			flush()
			log.Warn("block exceeds batch limit, emitting oversized batch", "len", blockRunes, "limit", limit)
			batches = append(batches, block)
			continue
		}

		// +1 for the joining newline when the buffer is non-empty.
		needed := blockRunes
		if bufRunes > 0 {
			needed++
		}
		if bufRunes+needed > limit {
			flush()
		}

		if bufRunes > 0 {
			buf.WriteString("\n")
			bufRunes++
		}
		buf.WriteString(block)
		bufRunes += blockRunes
	}
	flush()

	return batches
}
