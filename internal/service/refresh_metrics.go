package service

import (
	"fmt"
	"sync"
	"time"
)

// RefreshMetrics tracks statistics about recommendation refreshes
type RefreshMetrics struct {
	mu            sync.RWMutex
	LastStarted   time.Time
	LastDuration  time.Duration
	Refreshes     int
	Successful    int
	PersistErrors int
	PublishErrors int
	Errors        int
	LastPropCount int
	LastParlays   int
}

// NewRefreshMetrics creates a new metrics tracker
func NewRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{}
}

func (m *RefreshMetrics) start() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastStarted = time.Now()
	m.Refreshes++
	return m.LastStarted
}

func (m *RefreshMetrics) finish(started time.Time, props, parlays int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Successful++
	m.LastDuration = time.Since(started)
	m.LastPropCount = props
	m.LastParlays = parlays
}

// RecordError increments the failed refresh count
func (m *RefreshMetrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors++
}

// RecordPersistError increments the persistence failure count
func (m *RefreshMetrics) RecordPersistError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistErrors++
}

// RecordPublishError increments the publish failure count
func (m *RefreshMetrics) RecordPublishError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishErrors++
}

// Snapshot returns a copy safe to read without the lock.
func (m *RefreshMetrics) Snapshot() RefreshMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return RefreshMetrics{
		LastStarted:   m.LastStarted,
		LastDuration:  m.LastDuration,
		Refreshes:     m.Refreshes,
		Successful:    m.Successful,
		PersistErrors: m.PersistErrors,
		PublishErrors: m.PublishErrors,
		Errors:        m.Errors,
		LastPropCount: m.LastPropCount,
		LastParlays:   m.LastParlays,
	}
}

// String returns a formatted string representation of metrics
func (m *RefreshMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	successRate := float64(0)
	if m.Refreshes > 0 {
		successRate = float64(m.Successful) / float64(m.Refreshes) * 100
	}

	return fmt.Sprintf(
		"RefreshMetrics{Total=%d, Successful=%d (%.1f%%), Props=%d, Parlays=%d, PersistErrors=%d, PublishErrors=%d, Errors=%d, Duration=%v}",
		m.Refreshes,
		m.Successful,
		successRate,
		m.LastPropCount,
		m.LastParlays,
		m.PersistErrors,
		m.PublishErrors,
		m.Errors,
		m.LastDuration,
	)
}
