package engine

import (
	"sync"
	"time"
)

const speedWindow = 5 * time.Second

// SpeedMeter tracks a sliding 5-second window of (timestamp, byte
// count) samples and reports a bytes/sec rate over that fixed window.
type SpeedMeter struct {
	mu      sync.Mutex
	samples []speedSample
}

type speedSample struct {
	at    time.Time
	bytes int64
}

func NewSpeedMeter() *SpeedMeter {
	return &SpeedMeter{}
}

// Record appends a sample and evicts everything older than the
// window from the head. BytesPerSecond evicts again under the same
// mutex before summing, so it never counts a stale sample.
func (m *SpeedMeter) Record(n int) {
	if n <= 0 {
		return
	}
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, speedSample{at: now, bytes: int64(n)})
	m.evictLocked(now)
}

// BytesPerSecond returns the sum of bytes recorded in the last 5
// seconds divided by the fixed 5-second window (not by elapsed time).
func (m *SpeedMeter) BytesPerSecond() float64 {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	var total int64
	for _, s := range m.samples {
		total += s.bytes
	}
	return float64(total) / speedWindow.Seconds()
}

func (m *SpeedMeter) evictLocked(now time.Time) {
	cutoff := now.Add(-speedWindow)
	i := 0
	for i < len(m.samples) && !m.samples[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = m.samples[i:]
	}
}
