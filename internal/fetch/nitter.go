package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
)

const (
	instanceCooldown = time.Hour
	maxPostsPerKOL   = 3
)

// nitterClient scrapes KOL timelines through a rotating pool of Nitter
// instances. A failing instance is benched for an hour so one dead
// mirror does not slow every account fetch.
type nitterClient struct {
	http      *http.Client
	instances []string
	log       *slog.Logger

	mu      sync.Mutex
	benched map[string]time.Time
	next    int
}

func newNitterClient(httpClient *http.Client, instances []string, log *slog.Logger) *nitterClient {
	return &nitterClient{
		http:      httpClient,
		instances: instances,
		log:       log,
		benched:   make(map[string]time.Time),
	}
}

// FetchPosts scrapes one account's recent posts, trying instances in
// rotation until one answers. All instances failing means no posts, not
// an error.
func (c *nitterClient) FetchPosts(ctx context.Context, handle string) []*pulse.ContentItem {
	handle = strings.TrimPrefix(handle, "@")

	for range c.instances {
		instance := c.pickInstance()
		if instance == "" {
			break
		}

		posts, err := c.scrapeTimeline(ctx, instance, handle)
		if err != nil {
			c.log.Warn("nitter instance failed, benching", "instance", instance, "handle", handle, "error", err)
			c.bench(instance)
			continue
		}
		return posts
	}

	c.log.Error("all nitter instances unavailable", "handle", handle)
	return nil
}

func (c *nitterClient) pickInstance() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(c.instances); i++ {
		instance := c.instances[c.next%len(c.instances)]
		c.next++
		if until, ok := c.benched[instance]; ok && now.Before(until) {
			continue
		}
		return instance
	}
	return ""
}

func (c *nitterClient) bench(instance string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.benched[instance] = time.Now().Add(instanceCooldown)
}

func (c *nitterClient) scrapeTimeline(ctx context.Context, instance, handle string) ([]*pulse.ContentItem, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(instance, "/"), handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; cryptopulse/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer closeQuietly(resp.Body, c.log)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing timeline HTML: %w", err)
	}

	var posts []*pulse.ContentItem
	doc.Find(".timeline-item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// Skip pinned and retweeted entries, they are rarely fresh.
		if s.Find(".pinned").Length() > 0 || s.Find(".retweet-header").Length() > 0 {
			return true
		}

		text := strings.TrimSpace(s.Find(".tweet-content").Text())
		if text == "" {
			return true
		}

		link, _ := s.Find(".tweet-link").Attr("href")
		hint, _ := s.Find(".tweet-date a").Attr("title")

		posts = append(posts, &pulse.ContentItem{
			Title:         text,
			URL:           permalink(link),
			SourceName:    handle,
			PublishedHint: hint,
			Origin:        pulse.OriginSocial,
			Category:      pulse.CategoryKOLInsights,
		})
		return len(posts) < maxPostsPerKOL
	})

	c.log.Debug("scraped KOL timeline", "handle", handle, "instance", instance, "posts", len(posts))
	return posts, nil
}

// permalink rewrites a Nitter-relative tweet link to the canonical
// x.com URL so digest readers land on the real post.
func permalink(href string) string {
	if href == "" {
		return ""
	}
	href = strings.TrimSuffix(href, "#m")
	if strings.HasPrefix(href, "http") {
		return href
	}
	return "https://x.com" + href
}
