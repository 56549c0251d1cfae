package httpserver

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

type PingFunc func(ctx context.Context) error

type databaseHealth struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latencyMs"`
	Error     string  `json:"error,omitempty"`
}

type memoryHealth struct {
	AllocBytes     uint64 `json:"allocBytes"`
	HeapInuseBytes uint64 `json:"heapInuseBytes"`
	SysBytes       uint64 `json:"sysBytes"`
	NumGC          uint32 `json:"numGC"`
}

type healthReport struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	UptimeSeconds float64        `json:"uptimeSeconds"`
	Database      databaseHealth `json:"database"`
	Memory        memoryHealth   `json:"memory"`
	Goroutines    int            `json:"goroutines"`
}

// Health reports database reachability and process memory; it answers 503
// when the database round trip fails.
func Health(timeout time.Duration, started time.Time, ping PingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report := healthReport{
			Status:        "healthy",
			Timestamp:     time.Now().UTC(),
			UptimeSeconds: time.Since(started).Seconds(),
			Goroutines:    runtime.NumGoroutine(),
		}

		start := time.Now()
		err := ping(ctx)
		report.Database.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
		report.Database.Connected = err == nil
		status := http.StatusOK
		if err != nil {
			report.Status = "unhealthy"
			report.Database.Error = err.Error()
			status = http.StatusServiceUnavailable
		}

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		report.Memory = memoryHealth{
			AllocBytes:     ms.Alloc,
			HeapInuseBytes: ms.HeapInuse,
			SysBytes:       ms.Sys,
			NumGC:          ms.NumGC,
		}
		writeJSON(w, status, report)
	}
}

func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
