package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adawang1210/crypto-discord-bot/internal/config"
	"github.com/adawang1210/crypto-discord-bot/internal/metrics"
	"github.com/adawang1210/crypto-discord-bot/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		cfg:     &config.Config{OperatorToken: "secret", CronSpec: "0 9 * * *", Timezone: "Asia/Taipei"},
		metrics: metrics.New(),
		budget:  ratelimit.NewBudget(5, testLogger()),
		log:     testLogger(),
		now:     time.Now,
		loc:     time.UTC,
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	b := time.Date(2026, 8, 24, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 8, 25, 0, 1, 0, 0, time.UTC)

	if !sameDay(a, b) {
		t.Error("same calendar day should match")
	}
	if sameDay(a, c) {
		t.Error("different days must not match")
	}
}

func TestBeginRunGuards(t *testing.T) {
	app := testApp(t)

	if !app.beginRun(false) {
		t.Fatal("first run should be allowed")
	}
	if app.beginRun(true) {
		t.Error("in-flight guard must block even forced runs")
	}
	app.endRun()

	app.lastDelivery = app.now()
	if app.beginRun(false) {
		t.Error("scheduled run must be skipped after today's delivery")
	}
	if !app.beginRun(true) {
		t.Error("forced run must bypass the once-per-day guard")
	}
	app.endRun()
}

func TestAuthorizedRejectsWrongToken(t *testing.T) {
	app := testApp(t)
	called := false
	handler := app.authorized(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized || called {
		t.Errorf("missing token: code=%d called=%v", rec.Code, called)
	}

	req = httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Errorf("valid token: code=%d called=%v", rec.Code, called)
	}
}

func TestAuthorizedDisabledWithoutToken(t *testing.T) {
	app := testApp(t)
	app.cfg.OperatorToken = ""
	handler := app.authorized(func(http.ResponseWriter, *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty operator token must disable mutating endpoints, got %d", rec.Code)
	}
}

type fakeRunner struct {
	ctxErr chan error
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.ctxErr <- ctx.Err()
	return nil
}

type blockedRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockedRunner) Run(context.Context) error {
	close(b.started)
	<-b.release
	return nil
}

func TestHandleRunAcknowledgesBeforeCompletion(t *testing.T) {
	app := testApp(t)
	runner := &blockedRunner{started: make(chan struct{}), release: make(chan struct{})}
	app.pipeline = runner

	rec := httptest.NewRecorder()
	app.handleRun(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("trigger ack = %d, want 202 while the run is still going", rec.Code)
	}

	<-runner.started
	rec = httptest.NewRecorder()
	app.handleRun(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second trigger during a run = %d, want 409", rec.Code)
	}
	close(runner.release)
}

func TestHandleRunDetachedFromRequest(t *testing.T) {
	app := testApp(t)
	runner := &fakeRunner{ctxErr: make(chan error, 1)}
	app.pipeline = runner

	// A client that disconnects right after triggering must not abort
	// the run mid-delivery.
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/run", nil).WithContext(reqCtx)

	rec := httptest.NewRecorder()
	app.handleRun(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("trigger ack = %d, want 202", rec.Code)
	}

	select {
	case err := <-runner.ctxErr:
		if err != nil {
			t.Errorf("run inherited the cancelled request context: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background run never started")
	}
}

func TestHandleShutdown(t *testing.T) {
	app := testApp(t)

	rec := httptest.NewRecorder()
	app.handleShutdown(rec, httptest.NewRequest(http.MethodPost, "/shutdown", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("shutdown before Run should report conflict, got %d", rec.Code)
	}

	stopped := false
	app.stop = func() { stopped = true }
	rec = httptest.NewRecorder()
	app.handleShutdown(rec, httptest.NewRequest(http.MethodPost, "/shutdown", nil))
	if rec.Code != http.StatusOK || !stopped {
		t.Errorf("shutdown: code=%d stopped=%v", rec.Code, stopped)
	}
}

func TestHealthReflectsMetrics(t *testing.T) {
	app := testApp(t)

	rec := httptest.NewRecorder()
	app.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("fresh app should be healthy, got %d", rec.Code)
	}

	app.metrics.RecordRunFailure("boom")
	rec = httptest.NewRecorder()
	app.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failed run should flip health, got %d", rec.Code)
	}
}
