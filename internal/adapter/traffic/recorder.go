// Package traffic records observed requests in a bounded ring and keeps
// incremental aggregates for the metrics and endpoint views.
package traffic

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

const (
	ringCapacity    = 500
	timestampWindow = 100
	maxRecentFetch  = 200
	rpsWindow       = 60 * time.Second
)

// Sink receives each record after the recorder's lock has been released.
type Sink interface {
	PublishTraffic(record domain.RequestRecord)
}

type endpointAgg struct {
	method       string
	path         string
	count        int64
	errors       int64
	totalLatency float64
}

// Recorder owns the request ring and its aggregates. A single mutex guards
// every field so readers always see self-consistent totals.
type Recorder struct {
	mu        sync.Mutex
	records   []domain.RequestRecord
	stamps    []time.Time
	endpoints map[string]*endpointAgg

	totalRequests int64
	totalErrors   int64
	totalLatency  float64
	bytesIn       int64
	bytesOut      int64
	startedAt     time.Time

	sink Sink
	now  func() time.Time
}

func NewRecorder(sink Sink) *Recorder {
	return newRecorder(sink, time.Now)
}

func newRecorder(sink Sink, now func() time.Time) *Recorder {
	return &Recorder{
		records:   make([]domain.RequestRecord, 0, ringCapacity),
		endpoints: make(map[string]*endpointAgg),
		startedAt: now(),
		sink:      sink,
		now:       now,
	}
}

// Record appends one observation and updates every aggregate. The record is
// pushed to the sink after the lock is released.
func (r *Recorder) Record(method, path string, status int, latencyMs float64, clientIP, userAgent string, bytesIn, bytesOut int64) {
	now := r.now()
	if len(userAgent) > 100 {
		userAgent = userAgent[:100]
	}

	record := domain.RequestRecord{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMs: latencyMs,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		BytesIn:   bytesIn,
		BytesOut:  bytesOut,
	}

	r.mu.Lock()
	r.records = append(r.records, record)
	if len(r.records) > ringCapacity {
		r.records = r.records[1:]
	}
	r.stamps = append(r.stamps, now)
	if len(r.stamps) > timestampWindow {
		r.stamps = r.stamps[1:]
	}

	r.totalRequests++
	r.totalLatency += latencyMs
	r.bytesIn += bytesIn
	r.bytesOut += bytesOut
	if status >= 400 {
		r.totalErrors++
	}

	key := endpointKey(method, path)
	agg, ok := r.endpoints[key]
	if !ok {
		agg = &endpointAgg{method: method, path: stripQuery(path)}
		r.endpoints[key] = agg
	}
	agg.count++
	agg.totalLatency += latencyMs
	if status >= 400 {
		agg.errors++
	}
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.PublishTraffic(record)
	}
}

// Recent returns up to n records, newest first. n is clamped to 200.
func (r *Recorder) Recent(n int) []domain.RequestRecord {
	if n <= 0 {
		n = maxRecentFetch
	}
	if n > maxRecentFetch {
		n = maxRecentFetch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if n > len(r.records) {
		n = len(r.records)
	}
	out := make([]domain.RequestRecord, n)
	for i := 0; i < n; i++ {
		out[i] = r.records[len(r.records)-1-i]
	}
	return out
}

// Metrics returns the aggregated view. Requests per second counts timestamps
// within the last 60 seconds of the capped window, divided by 60.
func (r *Recorder) Metrics(activeConnections int) domain.TrafficMetrics {
	now := r.now()
	cutoff := now.Add(-rpsWindow)

	r.mu.Lock()
	defer r.mu.Unlock()

	recent := 0
	for _, ts := range r.stamps {
		if ts.After(cutoff) {
			recent++
		}
	}

	m := domain.TrafficMetrics{
		TotalRequests:     r.totalRequests,
		RequestsPerSecond: float64(recent) / rpsWindow.Seconds(),
		BytesInTotal:      r.bytesIn,
		BytesOutTotal:     r.bytesOut,
		ActiveConnections: activeConnections,
		UptimeSeconds:     int64(now.Sub(r.startedAt).Seconds()),
	}
	if r.totalRequests > 0 {
		m.AvgLatencyMs = r.totalLatency / float64(r.totalRequests)
		m.ErrorRate = float64(r.totalErrors) / float64(r.totalRequests) * 100
	}
	return m
}

// Endpoints returns per-endpoint rows sorted by count descending.
func (r *Recorder) Endpoints() []domain.EndpointStat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EndpointStat, 0, len(r.endpoints))
	for key, agg := range r.endpoints {
		stat := domain.EndpointStat{
			Endpoint: key,
			Method:   agg.method,
			Path:     agg.path,
			Count:    agg.count,
			Errors:   agg.errors,
		}
		if agg.count > 0 {
			stat.AvgLatencyMs = agg.totalLatency / float64(agg.count)
			stat.ErrorRate = float64(agg.errors) / float64(agg.count) * 100
		}
		out = append(out, stat)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	return out
}

// Clear resets the ring, aggregates and start time.
func (r *Recorder) Clear() {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = r.records[:0]
	r.stamps = r.stamps[:0]
	r.endpoints = make(map[string]*endpointAgg)
	r.totalRequests = 0
	r.totalErrors = 0
	r.totalLatency = 0
	r.bytesIn = 0
	r.bytesOut = 0
	r.startedAt = now
}

func endpointKey(method, path string) string {
	return method + " " + stripQuery(path)
}

func stripQuery(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx]
	}
	return path
}
