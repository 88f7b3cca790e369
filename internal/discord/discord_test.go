package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient() *Client {
	c := New("test-token", 5*time.Second, 2, testLogger())
	c.pace = time.Millisecond
	c.retryDelay = time.Millisecond
	return c
}

// rewriteTransport points the client at a test server by swapping the
// request URL inside a RoundTripper.
type rewriteTransport struct {
	base string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target := rt.base + req.URL.Path
	clone := req.Clone(req.Context())
	u, err := req.URL.Parse(target)
	if err != nil {
		return nil, err
	}
	clone.URL = u
	clone.Host = u.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func TestSendBatchesSequential(t *testing.T) {
	var received []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bot test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received = append(received, payload)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient()
	c.http.Transport = rewriteTransport{base: server.URL}

	err := c.SendBatches(context.Background(), "123", []string{"first", "second"})
	if err != nil {
		t.Fatalf("SendBatches returned error: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("server received %d messages, want 2", len(received))
	}
	if received[0]["content"] != "first" || received[1]["content"] != "second" {
		t.Errorf("messages out of order: %v", received)
	}
}

func TestSendMessageChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient()
	c.http.Transport = rewriteTransport{base: server.URL}

	err := c.SendMessage(context.Background(), "missing", "hello")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("want ErrChannelNotFound, got %v", err)
	}
}

func TestSendMessageRetriesTransientFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient()
	c.http.Transport = rewriteTransport{base: server.URL}

	if err := c.SendMessage(context.Background(), "123", "hello"); err != nil {
		t.Fatalf("SendMessage should succeed on retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestSendBatchesAbortsOnFailure(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient()
	c.http.Transport = rewriteTransport{base: server.URL}

	err := c.SendBatches(context.Background(), "123", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("SendBatches should fail")
	}
	// Not-found is permanent: one request, no retries, no further batches.
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}
