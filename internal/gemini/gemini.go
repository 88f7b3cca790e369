// Package gemini rewrites digest items into concise Traditional Chinese
// summaries.
package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

var summaryLabelRe = regexp.MustCompile(`(?i)^(摘要|SUMMARY)\s*[:：]\s*`)

// RewriteSummary turns a headline (plus optional article excerpt) into a
// one-sentence Traditional Chinese summary for the digest.
func (c *Client) RewriteSummary(ctx context.Context, title, content string) (string, error) {
	content = sanitize(content)

	prompt := fmt.Sprintf(`你是加密貨幣市場日報的編輯。請將以下新聞改寫成一句繁體中文摘要。

新聞標題：%s
新聞內文：%s

要求：
- 只輸出一句話，不超過 80 個字。
- 保留關鍵數字（金額、百分比、價格）。
- 品牌與機構名稱保持原文，不要翻譯。
- 不要加入「這則新聞指出」之類的開場白。

格式：
摘要: <一句話摘要>
`, title, content)

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	raw := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return parseSummary(raw)
}

func parseSummary(raw string) (string, error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if summaryLabelRe.MatchString(line) {
			summary := strings.TrimSpace(summaryLabelRe.ReplaceAllString(line, ""))
			if summary != "" {
				return summary, nil
			}
		}
	}

	// The label is sometimes omitted; take the first non-empty line.
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("could not parse Gemini response: empty output")
}

// sanitize collapses whitespace and caps prompt size on a rune boundary.
func sanitize(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")

	const maxChars = 4000
	if utf8.RuneCountInString(content) > maxChars {
		runes := []rune(content)
		trimmed := string(runes[:maxChars])
		if idx := strings.LastIndex(trimmed, ". "); idx > 800 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed
	}
	return content
}
