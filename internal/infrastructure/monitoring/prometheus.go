package monitoring

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// PrometheusHandler returns an http.Handler that serves Prometheus text format metrics.
// This avoids pulling in the full prometheus/client_golang dependency.
// Mount it at "/metrics" in your HTTP server.
func (m *Monitor) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(m.metrics.StartTime).Seconds()

		// Write metrics in Prometheus exposition format
		lines := []struct {
			name string
			help string
			typ  string
			val  interface{}
		}{
			// Request counters
			{"soporteops_requests_total", "Total number of HTTP requests processed", "counter", atomic.LoadUint64(&m.metrics.RequestsTotal)},
			{"soporteops_requests_success_total", "Total successful HTTP requests", "counter", atomic.LoadUint64(&m.metrics.RequestsSuccess)},
			{"soporteops_requests_failed_total", "Total failed HTTP requests", "counter", atomic.LoadUint64(&m.metrics.RequestsFailed)},

			// Webhook event counters
			{"soporteops_events_received_total", "Total webhook events received", "counter", atomic.LoadUint64(&m.metrics.EventsReceived)},
			{"soporteops_events_dropped_total", "Total webhook events dropped", "counter", atomic.LoadUint64(&m.metrics.EventsDropped)},
			{"soporteops_events_bad_signature_total", "Total webhook events with invalid signature", "counter", atomic.LoadUint64(&m.metrics.EventsBadSignature)},

			// Optimistic mutation counters
			{"soporteops_mutations_applied_total", "Total optimistic mutations committed", "counter", atomic.LoadUint64(&m.metrics.MutationsApplied)},
			{"soporteops_mutations_reverted_total", "Total optimistic mutations reverted", "counter", atomic.LoadUint64(&m.metrics.MutationsReverted)},

			// Remote call counters
			{"soporteops_remote_calls_total", "Total remote platform calls", "counter", atomic.LoadUint64(&m.metrics.RemoteCallsTotal)},
			{"soporteops_remote_calls_failed_total", "Total failed remote platform calls", "counter", atomic.LoadUint64(&m.metrics.RemoteCallsFailed)},

			// Gauges
			{"soporteops_ws_clients", "Number of connected websocket clients", "gauge", atomic.LoadInt64(&m.metrics.WsClients)},
			{"soporteops_uptime_seconds", "Process uptime in seconds", "gauge", uptime},

			// Runtime metrics
			{"soporteops_memory_alloc_bytes", "Current memory allocation in bytes", "gauge", memStats.Alloc},
			{"soporteops_memory_sys_bytes", "Total memory obtained from OS", "gauge", memStats.Sys},
			{"soporteops_goroutines", "Number of goroutines", "gauge", runtime.NumGoroutine()},
			{"soporteops_gc_pause_total_ns", "Total GC pause time in nanoseconds", "counter", memStats.PauseTotalNs},
			{"soporteops_gc_cycles_total", "Total number of completed GC cycles", "counter", memStats.NumGC},
		}

		for _, l := range lines {
			fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.typ)
			switch v := l.val.(type) {
			case uint64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case float64:
				fmt.Fprintf(w, "%s %f\n", l.name, v)
			case uint32:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			}
			fmt.Fprintln(w)
		}

		// Latency summary
		reqCount := atomic.LoadUint64(&m.metrics.RequestLatencyCount)
		if reqCount > 0 {
			avgMs := float64(atomic.LoadUint64(&m.metrics.RequestLatencySum)) / float64(reqCount) / 1e6
			fmt.Fprintf(w, "# HELP soporteops_request_latency_avg_ms Average request latency in milliseconds\n")
			fmt.Fprintf(w, "# TYPE soporteops_request_latency_avg_ms gauge\n")
			fmt.Fprintf(w, "soporteops_request_latency_avg_ms %f\n", avgMs)
		}
	})
}
