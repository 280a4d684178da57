package events

import (
	"sync/atomic"
	"time"
)

// Metrics tracks bus statistics using atomic operations for thread-safety
type Metrics struct {
	Published   atomic.Int64
	Delivered   atomic.Int64
	Dropped     atomic.Int64
	Relayed     atomic.Int64
	Subscribers atomic.Int32
	StartTime   time.Time
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime: time.Now(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Published   int64     `json:"published"`
	Delivered   int64     `json:"delivered"`
	Dropped     int64     `json:"dropped"`
	Relayed     int64     `json:"relayed"`
	Subscribers int32     `json:"subscribers"`
	StartTime   time.Time `json:"start_time"`
	Uptime      string    `json:"uptime"`
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Published:   m.Published.Load(),
		Delivered:   m.Delivered.Load(),
		Dropped:     m.Dropped.Load(),
		Relayed:     m.Relayed.Load(),
		Subscribers: m.Subscribers.Load(),
		StartTime:   m.StartTime,
		Uptime:      time.Since(m.StartTime).String(),
	}
}
