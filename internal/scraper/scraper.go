// Package scraper extracts article bodies and lead images from news
// pages for the enhancement stage.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Article is the extracted page content.
type Article struct {
	Title    string
	Content  string
	ImageURL string
	URL      string
}

type Scraper struct {
	http *http.Client
	log  *slog.Logger
}

func New(timeout time.Duration, log *slog.Logger) *Scraper {
	return &Scraper{
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Extract fetches one article page and pulls out the body text and the
// social-preview image.
func (s *Scraper) Extract(ctx context.Context, url string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; cryptopulse/1.0)")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loading page: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.log.Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	content := cleanContent(extractContentBySource(doc, url))
	if content == "" {
		return nil, fmt.Errorf("no extractable content")
	}

	return &Article{
		Title:    extractTitle(doc),
		Content:  content,
		ImageURL: extractLeadImage(doc),
		URL:      url,
	}, nil
}

// extractContentBySource picks the selector set for the known crypto
// outlets, falling back to a generic parser.
func extractContentBySource(doc *goquery.Document, url string) string {
	switch {
	case strings.Contains(url, "coindesk.com"):
		return extractBySelectors(doc, []string{
			".article-body p",
			".at-content-wrapper p",
			"article p",
		}, 1)
	case strings.Contains(url, "cointelegraph.com"):
		return extractBySelectors(doc, []string{
			".post-content p",
			".post__content p",
			"article p",
		}, 1)
	case strings.Contains(url, "decrypt.co"):
		return extractBySelectors(doc, []string{
			".post-content p",
			"article p",
			"main p",
		}, 1)
	case strings.Contains(url, "theblock.co"):
		return extractBySelectors(doc, []string{
			".article-body p",
			"article p",
		}, 1)
	default:
		return extractBySelectors(doc, []string{
			"article p",
			".article p",
			".content p",
			".post-content p",
			".entry-content p",
			"main p",
			"p",
		}, 3)
	}
}

// extractBySelectors tries each selector in order and stops as soon as
// one yields minParagraphs paragraphs.
func extractBySelectors(doc *goquery.Document, selectors []string, minParagraphs int) string {
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= minParagraphs {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"title",
		".article-title",
		".headline",
	}
	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// extractLeadImage pulls the social-preview image from the page meta.
func extractLeadImage(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if img, ok := doc.Find(sel).First().Attr("content"); ok {
			img = strings.TrimSpace(img)
			if strings.HasPrefix(img, "http") {
				return img
			}
		}
	}
	return ""
}

// cleanContent normalizes whitespace, drops navigation junk and caps
// the body to a prompt-sized excerpt on paragraph boundaries.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	junkIndicators := []string{
		"cookie", "subscribe to", "sign up for", "newsletter",
		"read more:", "related:", "see also:", "disclaimer",
		"follow us", "share this article", "advertisement",
	}

	var paragraphs []string
	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.Join(strings.Fields(paragraph), " ")
		if len(paragraph) < 30 {
			continue
		}
		lower := strings.ToLower(paragraph)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if !junk {
			paragraphs = append(paragraphs, paragraph)
		}
	}

	// Keep whole paragraphs under the excerpt budget.
	const maxLen = 1800
	var out []string
	total := 0
	for _, paragraph := range paragraphs {
		if total+len(paragraph) > maxLen && len(out) > 0 {
			break
		}
		out = append(out, paragraph)
		total += len(paragraph) + 2
	}

	return strings.TrimSpace(strings.Join(out, "\n\n"))
}
