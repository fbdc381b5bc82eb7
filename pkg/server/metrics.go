package server

import (
	"sync/atomic"
	"time"
)

// ServerMetrics is a point-in-time aggregate of server activity.
type ServerMetrics struct {
	// Connections
	ActiveConnections int64
	TotalConnections  int64
	PeakConnections   int64
	ActiveSessions    int64

	// Dispatch
	MessagesReceived   int64
	DispatchSucceeded  int64
	DispatchFailed     int64
	HandlerTimeouts    int64
	HandlerPanics      int64
	ProtocolErrors     int64

	// Outbound
	MessagesSent   int64
	BroadcastsSent int64

	// Transport
	TransportErrors int64

	// Latency (microseconds)
	DispatchLatencyP50 int64
	DispatchLatencyP99 int64

	// Timestamp
	CollectedAt time.Time
}

// MetricsCollector accumulates counters over the server's lifetime. All
// recording methods are safe for concurrent use from read loops and
// broadcast paths.
type MetricsCollector struct {
	messagesReceived  atomic.Int64
	dispatchSucceeded atomic.Int64
	dispatchFailed    atomic.Int64
	handlerTimeouts   atomic.Int64
	handlerPanics     atomic.Int64
	protocolErrors    atomic.Int64
	messagesSent      atomic.Int64
	broadcastsSent    atomic.Int64
	transportErrors   atomic.Int64

	// Latency tracking
	latencies []int64
	latencyMu atomic.Int32 // Simple spinlock
}

// NewMetricsCollector creates a new MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		latencies: make([]int64, 0, 1000),
	}
}

// RecordMessageReceived records one inbound frame.
func (m *MetricsCollector) RecordMessageReceived() {
	m.messagesReceived.Add(1)
}

// RecordDispatchSucceeded records a handler invocation that returned a result.
func (m *MetricsCollector) RecordDispatchSucceeded() {
	m.dispatchSucceeded.Add(1)
}

// RecordDispatchFailed records a handler invocation answered with a failure
// result.
func (m *MetricsCollector) RecordDispatchFailed() {
	m.dispatchFailed.Add(1)
}

// RecordHandlerTimeout records a handler that exceeded the dispatch timeout.
func (m *MetricsCollector) RecordHandlerTimeout() {
	m.handlerTimeouts.Add(1)
}

// RecordHandlerPanic records a recovered handler panic.
func (m *MetricsCollector) RecordHandlerPanic() {
	m.handlerPanics.Add(1)
}

// RecordProtocolError records a frame that failed to parse.
func (m *MetricsCollector) RecordProtocolError() {
	m.protocolErrors.Add(1)
}

// RecordMessageSent records one outbound frame.
func (m *MetricsCollector) RecordMessageSent() {
	m.messagesSent.Add(1)
}

// RecordBroadcast records one broadcast fan-out.
func (m *MetricsCollector) RecordBroadcast() {
	m.broadcastsSent.Add(1)
}

// RecordTransportError records a read or close-code error on a transport.
func (m *MetricsCollector) RecordTransportError() {
	m.transportErrors.Add(1)
}

// RecordDispatchLatency records dispatch latency in microseconds.
func (m *MetricsCollector) RecordDispatchLatency(latencyUs int64) {
	// Simple spinlock for latency array
	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	defer m.latencyMu.Store(0)

	// Keep only recent samples
	if len(m.latencies) >= 1000 {
		m.latencies = m.latencies[500:] // Drop oldest half
	}
	m.latencies = append(m.latencies, latencyUs)
}

// Snapshot returns current counters plus latency percentiles. Registry
// derived fields are filled by the server, not the collector.
func (m *MetricsCollector) Snapshot() *ServerMetrics {
	metrics := &ServerMetrics{
		MessagesReceived:  m.messagesReceived.Load(),
		DispatchSucceeded: m.dispatchSucceeded.Load(),
		DispatchFailed:    m.dispatchFailed.Load(),
		HandlerTimeouts:   m.handlerTimeouts.Load(),
		HandlerPanics:     m.handlerPanics.Load(),
		ProtocolErrors:    m.protocolErrors.Load(),
		MessagesSent:      m.messagesSent.Load(),
		BroadcastsSent:    m.broadcastsSent.Load(),
		TransportErrors:   m.transportErrors.Load(),
		CollectedAt:       time.Now(),
	}

	metrics.DispatchLatencyP50, metrics.DispatchLatencyP99 = m.latencyPercentiles()

	return metrics
}

// latencyPercentiles calculates P50 and P99 latencies.
func (m *MetricsCollector) latencyPercentiles() (p50, p99 int64) {
	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	defer m.latencyMu.Store(0)

	n := len(m.latencies)
	if n == 0 {
		return 0, 0
	}

	sorted := make([]int64, n)
	copy(sorted, m.latencies)

	// Simple sort (not efficient but fine for small arrays)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sorted[i] > sorted[j] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}

	p50 = sorted[n/2]
	p99 = sorted[(n*99)/100]

	return p50, p99
}

// Reset resets all counters.
func (m *MetricsCollector) Reset() {
	m.messagesReceived.Store(0)
	m.dispatchSucceeded.Store(0)
	m.dispatchFailed.Store(0)
	m.handlerTimeouts.Store(0)
	m.handlerPanics.Store(0)
	m.protocolErrors.Store(0)
	m.messagesSent.Store(0)
	m.broadcastsSent.Store(0)
	m.transportErrors.Store(0)

	for !m.latencyMu.CompareAndSwap(0, 1) {
		// Spin
	}
	m.latencies = m.latencies[:0]
	m.latencyMu.Store(0)
}
