package domain

// RequestRecord is one observed request. Path keeps its query string for
// display; aggregation strips it.
type RequestRecord struct {
	Timestamp string  `json:"timestamp"`
	Method    string  `json:"method"`
	Path      string  `json:"path"`
	Status    int     `json:"status"`
	LatencyMs float64 `json:"latency_ms"`
	ClientIP  string  `json:"client_ip"`
	UserAgent string  `json:"user_agent"`
	BytesIn   int64   `json:"bytes_in"`
	BytesOut  int64   `json:"bytes_out"`
}

// TrafficMetrics is the aggregated view over the recorder's window.
type TrafficMetrics struct {
	TotalRequests     int64   `json:"total_requests"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	BytesInTotal      int64   `json:"bytes_in_total"`
	BytesOutTotal     int64   `json:"bytes_out_total"`
	ActiveConnections int     `json:"active_connections"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
}

// EndpointStat is one per-endpoint aggregation row, keyed by
// "METHOD path-without-query".
type EndpointStat struct {
	Endpoint     string  `json:"endpoint"`
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	Count        int64   `json:"count"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}
