// Package translate is the zero-cost fallback when the AI rewrite is
// unavailable or over budget.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const endpoint = "https://translate.googleapis.com/translate_a/single"

type Translator struct {
	http *http.Client
	log  *slog.Logger
}

func New(log *slog.Logger) *Translator {
	return &Translator{
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// Translate converts text between languages via the public endpoint.
// Failure returns the original text with a nil error: a digest line in
// the source language beats no line at all.
func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if text == "" {
		return text, nil
	}

	original := text
	if len(text) > 4000 {
		text = text[:4000]
	}

	result, err := t.translateOnce(ctx, text, from, to)
	if err == nil && result != "" {
		t.log.Debug("translated text", "from", from, "to", to)
		return SanitizeAIText(result), nil
	}

	t.log.Warn("translation failed, keeping original text", "from", from, "to", to, "error", err)
	return original, nil
}

func (t *Translator) translateOnce(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.log.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	return parseResponse(body)
}

// parseResponse unpacks the endpoint's nested-array payload.
func parseResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if parts, ok := segment.([]interface{}); ok && len(parts) > 0 {
			if translated, ok := parts[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}
	return result.String(), nil
}

var disclaimerRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\((note|disclaimer)[^)]*\)`),
	regexp.MustCompile(`(?i)\[(note|disclaimer)[^\]]*\]`),
	regexp.MustCompile(`(?i)^\s*(note|disclaimer)\s*[:：].*$`),
}

// SanitizeAIText strips machine-translation disclaimers that some
// services inject into the output.
func SanitizeAIText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		for _, re := range disclaimerRes {
			line = re.ReplaceAllString(line, "")
		}
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
