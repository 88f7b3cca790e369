// Package discord delivers digest messages over the Discord REST API.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/retry"
)

const apiBase = "https://discord.com/api/v10"

// ErrChannelNotFound means the configured channel ID does not exist or
// the bot cannot see it. Not retryable; the run fails.
var ErrChannelNotFound = errors.New("discord channel not found")

// Client is a minimal REST client for posting messages. No gateway
// connection; the bot only writes.
type Client struct {
	token      string
	http       *http.Client
	log        *slog.Logger
	retries    int
	retryDelay time.Duration
	pace       time.Duration
}

func New(token string, timeout time.Duration, retries int, log *slog.Logger) *Client {
	return &Client{
		token:      token,
		http:       &http.Client{Timeout: timeout},
		log:        log,
		retries:    retries,
		retryDelay: 2 * time.Second,
		pace:       time.Second,
	}
}

// SendBatches posts the batches sequentially, pacing between sends to
// stay clear of per-channel rate limits. The first hard failure aborts;
// already-sent batches stay sent.
func (c *Client) SendBatches(ctx context.Context, channelID string, batches []string) error {
	for i, batch := range batches {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pace):
			}
		}
		if err := c.SendMessage(ctx, channelID, batch); err != nil {
			return fmt.Errorf("sending batch %d/%d: %w", i+1, len(batches), err)
		}
		c.log.Debug("batch sent", "batch", i+1, "total", len(batches), "len", len(batch))
	}
	return nil
}

// SendMessage posts one message with retry on transient failures.
// ErrChannelNotFound is returned without retrying.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: c.retries,
		Delay:       c.retryDelay,
		Backoff:     true,
	}, func() error {
		err := c.sendOnce(ctx, channelID, content)
		if errors.Is(err, ErrChannelNotFound) {
			// Wrong channel will not fix itself.
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	return nil
}

func (c *Client) sendOnce(ctx context.Context, channelID, content string) error {
	payload := map[string]interface{}{
		"content": content,
		"allowed_mentions": map[string]interface{}{
			"parse": []string{},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding message payload: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", apiBase, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	case resp.StatusCode == http.StatusTooManyRequests:
		// Honor the advertised cooldown before the retry layer runs again.
		var rl struct {
			RetryAfter float64 `json:"retry_after"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &rl)
		wait := time.Duration(rl.RetryAfter * float64(time.Second))
		if wait <= 0 {
			wait = time.Second
		}
		c.log.Warn("discord rate limited", "retry_after", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		return fmt.Errorf("discord rate limited (429)")
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("discord API error: status %d: %s", resp.StatusCode, string(data))
	}
}
