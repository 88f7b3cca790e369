package metrics

import (
	"sync"
	"time"
)

// Metrics tracks pipeline counters for the admin endpoints. One instance
// per process, passed explicitly to the components that record into it.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsProcessed     int64
	DuplicatesFiltered int64
	RewritesSucceeded  int64
	RewritesFailed     int64
	BatchesSent        int64
	RunsSucceeded      int64
	RunsFailed         int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime         time.Time
	LastErrorTime       time.Time
	LastError           string
	ConsecutiveFailures int64
	IsHealthy           bool
}

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) AddItemsProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsProcessed += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementRewritesSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewritesSucceeded++
}

func (m *Metrics) IncrementRewritesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewritesFailed++
}

func (m *Metrics) AddBatchesSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesSent += int64(n)
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) RecordRunSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsSucceeded++
	m.ConsecutiveFailures = 0
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

// RecordRunFailure increments the failure counters and returns the new
// consecutive-failure count so the caller can decide whether to alert.
func (m *Metrics) RecordRunFailure(err string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunsFailed++
	m.ConsecutiveFailures++
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
	return m.ConsecutiveFailures
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_processed":            m.ItemsProcessed,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"rewrites_succeeded":         m.RewritesSucceeded,
		"rewrites_failed":            m.RewritesFailed,
		"batches_sent":               m.BatchesSent,
		"runs_succeeded":             m.RunsSucceeded,
		"runs_failed":                m.RunsFailed,
		"consecutive_failures":       m.ConsecutiveFailures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
