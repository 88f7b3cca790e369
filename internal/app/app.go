// Package app wires the components together and runs the daily digest
// schedule with its operator surface.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/adawang1210/crypto-discord-bot/internal/cache"
	"github.com/adawang1210/crypto-discord-bot/internal/config"
	"github.com/adawang1210/crypto-discord-bot/internal/discord"
	"github.com/adawang1210/crypto-discord-bot/internal/enhance"
	"github.com/adawang1210/crypto-discord-bot/internal/fetch"
	"github.com/adawang1210/crypto-discord-bot/internal/format"
	"github.com/adawang1210/crypto-discord-bot/internal/gemini"
	"github.com/adawang1210/crypto-discord-bot/internal/metrics"
	"github.com/adawang1210/crypto-discord-bot/internal/pulse"
	"github.com/adawang1210/crypto-discord-bot/internal/ratelimit"
	"github.com/adawang1210/crypto-discord-bot/internal/scraper"
	"github.com/adawang1210/crypto-discord-bot/internal/similarity"
	"github.com/adawang1210/crypto-discord-bot/internal/storage"
	"github.com/adawang1210/crypto-discord-bot/internal/translate"
)

// digestRunner is the pipeline entry point. Implemented by
// pulse.Pipeline.
type digestRunner interface {
	Run(ctx context.Context) error
}

// App owns the assembled pipeline and its schedule.
type App struct {
	cfg      *config.Config
	pipeline digestRunner
	sender   *discord.Client
	gemini   *gemini.Client
	metrics  *metrics.Metrics
	budget   *ratelimit.Budget
	log      *slog.Logger

	mu           sync.Mutex
	inFlight     bool
	lastDelivery time.Time
	stop         context.CancelFunc
	base         context.Context
	now          func() time.Time
	loc          *time.Location
}

// New builds the full component graph from config.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	sources, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return nil, err
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	var strategy similarity.Strategy = similarity.KeywordOverlap{}
	if cfg.DedupStrategy == "sequence" {
		strategy = similarity.SequenceRatio{}
	}
	recency := storage.NewRecencyCache(cfg.CacheFilePath, cfg.CacheRetentionDays, cfg.DedupThreshold, strategy, log)
	store := &countingRecency{inner: recency, metrics: m}

	scorer := pulse.NewScorer(pulse.DefaultRuleSet(), store, cfg.MinNewsScore, cfg.MinKOLScore, log)
	selector := pulse.NewSelector(cfg.MaxPerCategory, log)
	budget := ratelimit.NewBudget(cfg.MaxGeminiRequests, log)

	enhancer := enhance.New(
		geminiClient,
		translate.New(log),
		scraper.New(cfg.RequestTimeout, log),
		cache.New(),
		budget,
		m,
		log,
	)

	sender := discord.New(cfg.DiscordToken, cfg.RequestTimeout, cfg.RetryAttempts, log)
	fetcher := fetch.NewService(cfg, sources, log)

	renderer := format.NewRenderer(cfg.BatchLimit, log)

	pipeline := pulse.New(fetcher, scorer, selector, enhancer, renderer, sender, store, m, pulse.Config{
		ChannelID:   cfg.ChannelID,
		TargetItems: cfg.TargetItems,
		MinItems:    cfg.MinItems,
		KOLScores:   sources.KOLBaseScores(),
	}, log)

	return &App{
		cfg:      cfg,
		pipeline: pipeline,
		sender:   sender,
		gemini:   geminiClient,
		metrics:  m,
		budget:   budget,
		log:      log,
		now:      time.Now,
		loc:      loc,
	}, nil
}

// Run starts the cron schedule and the admin server, then blocks until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.gemini.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.stop = cancel
	a.base = ctx
	a.mu.Unlock()

	scheduler := cron.New(cron.WithLocation(a.loc))
	if _, err := scheduler.AddFunc(a.cfg.CronSpec, func() {
		a.runScheduled(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", a.cfg.CronSpec, err)
	}
	scheduler.Start()
	a.log.Info("scheduler started", "cron", a.cfg.CronSpec, "timezone", a.cfg.Timezone)

	server := a.adminServer()
	go func() {
		a.log.Info("admin server listening", "addr", a.cfg.AdminAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin server failed", "error", err)
		}
	}()

	<-ctx.Done()

	cronCtx := scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("admin server shutdown failed", "error", err)
	}
	<-cronCtx.Done()

	a.log.Info("app stopped")
	return nil
}

// runScheduled is the cron entry point: skips if a run is in flight or
// the digest already went out today.
func (a *App) runScheduled(ctx context.Context) {
	if !a.beginRun(false) {
		return
	}
	defer a.endRun()
	a.runOnce(ctx)
}

// TriggerRun executes an operator-requested run, bypassing the
// once-per-day guard but not the in-flight guard.
func (a *App) TriggerRun(ctx context.Context) error {
	if !a.beginRun(true) {
		return fmt.Errorf("a digest run is already in progress")
	}
	defer a.endRun()
	return a.runOnce(ctx)
}

func (a *App) beginRun(force bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inFlight {
		a.log.Warn("digest run already in progress, skipping")
		return false
	}
	if !force && sameDay(a.lastDelivery.In(a.loc), a.now().In(a.loc)) {
		a.log.Info("digest already delivered today, skipping")
		return false
	}
	a.inFlight = true
	return true
}

func (a *App) endRun() {
	a.mu.Lock()
	a.inFlight = false
	a.mu.Unlock()
}

func (a *App) runOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	err := a.pipeline.Run(runCtx)
	if err == nil {
		a.metrics.RecordRunSuccess()
		a.mu.Lock()
		a.lastDelivery = a.now()
		a.mu.Unlock()
		return nil
	}

	failures := a.metrics.RecordRunFailure(err.Error())
	a.log.Error("digest run failed", "error", err, "consecutive_failures", failures)

	if a.cfg.AlertChannelID != "" && failures >= int64(a.cfg.AlertAfter) {
		alert := fmt.Sprintf("⚠️ Digest has failed %d times in a row. Last error: %v", failures, err)
		if sendErr := a.sender.SendMessage(ctx, a.cfg.AlertChannelID, alert); sendErr != nil {
			a.log.Error("failed to send operator alert", "error", sendErr)
		}
	}
	return err
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// adminServer exposes the operator endpoints. Mutating endpoints require
// the operator token; read endpoints are open for probes.
func (a *App) adminServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /metrics", a.handleMetrics)
	mux.HandleFunc("GET /status", a.handleStatus)
	mux.HandleFunc("POST /run", a.authorized(a.handleRun))
	mux.HandleFunc("POST /shutdown", a.authorized(a.handleShutdown))

	return &http.Server{
		Addr:         a.cfg.AdminAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (a *App) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.OperatorToken == "" || r.Header.Get("Authorization") != "Bearer "+a.cfg.OperatorToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := a.metrics.GetStats()

	status, code := "ok", http.StatusOK
	if !a.metrics.Healthy() {
		status, code = "error", http.StatusServiceUnavailable
	}

	writeJSONStatus(w, code, map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (a *App) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	stats := a.metrics.GetStats()
	for k, v := range a.budget.Stats() {
		stats[k] = v
	}
	writeJSON(w, stats)
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	inFlight := a.inFlight
	lastDelivery := a.lastDelivery
	a.mu.Unlock()

	stats := a.metrics.GetStats()
	writeJSON(w, map[string]interface{}{
		"in_flight":            inFlight,
		"last_delivery":        lastDelivery.Format(time.RFC3339),
		"schedule":             a.cfg.CronSpec,
		"timezone":             a.cfg.Timezone,
		"last_run":             stats["last_run_time"],
		"consecutive_failures": stats["consecutive_failures"],
	})
}

// handleRun starts an operator-requested run in the background and
// acknowledges immediately. A run can take minutes, longer than any
// sane HTTP write deadline, and must not die with the client
// connection; completion is observable via /status and /metrics.
func (a *App) handleRun(w http.ResponseWriter, _ *http.Request) {
	if !a.beginRun(true) {
		writeJSONStatus(w, http.StatusConflict, map[string]interface{}{"ok": false, "error": "a digest run is already in progress"})
		return
	}

	ctx := a.runContext()
	go func() {
		defer a.endRun()
		if err := a.runOnce(ctx); err != nil {
			a.log.Error("operator-triggered run failed", "error", err)
		}
	}()

	writeJSONStatus(w, http.StatusAccepted, map[string]interface{}{"ok": true, "status": "started"})
}

// runContext returns the app lifetime context, so background runs
// outlive the HTTP request that started them.
func (a *App) runContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.base != nil {
		return a.base
	}
	return context.Background()
}

func (a *App) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	stop := a.stop
	a.mu.Unlock()

	if stop == nil {
		writeJSONStatus(w, http.StatusConflict, map[string]interface{}{"ok": false, "error": "not running"})
		return
	}
	a.log.Info("shutdown requested via admin endpoint")
	writeJSON(w, map[string]interface{}{"ok": true})
	stop()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
