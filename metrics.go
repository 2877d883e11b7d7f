package serialdiag

import (
	"errors"
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks I/O statistics for a single port handle
type Metrics struct {
	// Read Operations
	ReadOperations  atomic.Int64 // Total read attempts
	SuccessfulReads atomic.Int64 // Successful reads
	ReadTimeouts    atomic.Int64 // Reads that ended on a timeout bound
	ReadErrors      atomic.Int64 // Failed reads
	BytesRead       atomic.Int64 // Total bytes read
	TotalReadTime   atomic.Int64 // Total time spent reading (ns)
	MaxReadTime     atomic.Int64 // Slowest read operation (ns)

	// Write Operations
	WriteOperations  atomic.Int64 // Total write attempts
	SuccessfulWrites atomic.Int64 // Successful writes
	WriteTimeouts    atomic.Int64 // Write timeout failures
	WriteErrors      atomic.Int64 // Other write errors
	BytesWritten     atomic.Int64 // Total bytes written
	TotalWriteTime   atomic.Int64 // Total time spent writing (ns)
	MaxWriteTime     atomic.Int64 // Slowest write operation (ns)

	// Error Categories
	ConfigurationErrors atomic.Int64 // Failed state/timeout changes
	HardwareErrors      atomic.Int64 // Driver errors on I/O
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	ReadOperations      int64         `json:"read_operations"`
	SuccessfulReads     int64         `json:"successful_reads"`
	ReadTimeouts        int64         `json:"read_timeouts"`
	ReadErrors          int64         `json:"read_errors"`
	BytesRead           int64         `json:"bytes_read"`
	AverageReadLatency  time.Duration `json:"average_read_latency"`
	MaxReadLatency      time.Duration `json:"max_read_latency"`
	WriteOperations     int64         `json:"write_operations"`
	SuccessfulWrites    int64         `json:"successful_writes"`
	WriteTimeouts       int64         `json:"write_timeouts"`
	WriteErrors         int64         `json:"write_errors"`
	BytesWritten        int64         `json:"bytes_written"`
	AverageWriteLatency time.Duration `json:"average_write_latency"`
	MaxWriteLatency     time.Duration `json:"max_write_latency"`
	ConfigurationErrors int64         `json:"configuration_errors"`
	HardwareErrors      int64         `json:"hardware_errors"`
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ReadOperations:      m.ReadOperations.Load(),
		SuccessfulReads:     m.SuccessfulReads.Load(),
		ReadTimeouts:        m.ReadTimeouts.Load(),
		ReadErrors:          m.ReadErrors.Load(),
		BytesRead:           m.BytesRead.Load(),
		AverageReadLatency:  m.calculateAverageReadLatency(),
		MaxReadLatency:      time.Duration(m.MaxReadTime.Load()),
		WriteOperations:     m.WriteOperations.Load(),
		SuccessfulWrites:    m.SuccessfulWrites.Load(),
		WriteTimeouts:       m.WriteTimeouts.Load(),
		WriteErrors:         m.WriteErrors.Load(),
		BytesWritten:        m.BytesWritten.Load(),
		AverageWriteLatency: m.calculateAverageWriteLatency(),
		MaxWriteLatency:     time.Duration(m.MaxWriteTime.Load()),
		ConfigurationErrors: m.ConfigurationErrors.Load(),
		HardwareErrors:      m.HardwareErrors.Load(),
	}
}

func (m *Metrics) recordRead(bytesRead int, timedOut bool, err error, duration time.Duration) {
	m.ReadOperations.Add(1)
	m.TotalReadTime.Add(duration.Nanoseconds())
	storeMax(&m.MaxReadTime, duration.Nanoseconds())

	if timedOut {
		m.ReadTimeouts.Add(1)
	}
	if err != nil {
		m.ReadErrors.Add(1)
		m.HardwareErrors.Add(1)
		return
	}
	m.SuccessfulReads.Add(1)
	m.BytesRead.Add(int64(bytesRead))
}

func (m *Metrics) recordWrite(bytesWritten int, err error, duration time.Duration) {
	m.WriteOperations.Add(1)
	m.TotalWriteTime.Add(duration.Nanoseconds())
	storeMax(&m.MaxWriteTime, duration.Nanoseconds())

	if err != nil {
		if errors.Is(err, ErrWriteTimeout) {
			m.WriteTimeouts.Add(1)
		} else {
			m.WriteErrors.Add(1)
			m.HardwareErrors.Add(1)
		}
		return
	}
	m.SuccessfulWrites.Add(1)
	m.BytesWritten.Add(int64(bytesWritten))
}

func (m *Metrics) calculateAverageReadLatency() time.Duration {
	reads := m.ReadOperations.Load()
	if reads == 0 {
		return 0
	}
	return time.Duration(m.TotalReadTime.Load() / reads)
}

func (m *Metrics) calculateAverageWriteLatency() time.Duration {
	writes := m.WriteOperations.Load()
	if writes == 0 {
		return 0
	}
	return time.Duration(m.TotalWriteTime.Load() / writes)
}

func storeMax(v *atomic.Int64, candidate int64) {
	for {
		cur := v.Load()
		if candidate <= cur || v.CompareAndSwap(cur, candidate) {
			return
		}
	}
}

// HealthStatus summarises how a diagnostic run went
type HealthStatus string

const (
	// HealthStatusHealthy: every step succeeded.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded: the port opened but at least one step failed.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusDown: the port could not be opened.
	HealthStatusDown HealthStatus = "down"
)
