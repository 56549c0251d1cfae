package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trackersms_api_requests_total", Help: "API requests"},
		[]string{"route", "status"},
	)
	DispatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trackersms_dispatch_total", Help: "Dispatch outcomes"},
		[]string{"result", "code"},
	)
	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "trackersms_dispatch_latency_seconds", Help: "Dispatch latency"},
	)
	HistoryRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trackersms_history_rows_total", Help: "History rows written by status"},
		[]string{"status"},
	)
	HistoryEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trackersms_history_events_total", Help: "History event publish results"},
		[]string{"result"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trackersms_rate_limited_total", Help: "Requests rejected by the client rate limiter"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, DispatchOutcomes, DispatchLatency, HistoryRows, HistoryEvents, RateLimited)
}
