package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64     // name -> labelsKey -> count
	gauges   map[string]map[string]float64   // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = &registry{
	counters: map[string]map[string]int64{},
	gauges:   map[string]map[string]float64{},
	hist:     map[string]map[string][]float64{},
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	k := canonLabels(labels)
	m[k] += int64(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	k := canonLabels(labels)
	m[k] = value
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	// Cap per-series history so the hot-path registry stays bounded;
	// the tick loop observes this every 10ms and never blocks on I/O.
	const maxSamples = 2000
	m[k] = append(m[k], value)
	if len(m[k]) > maxSamples {
		m[k] = m[k][len(m[k])-maxSamples:]
	}
}

// RecordHistogram records a histogram observation
func RecordHistogram(name string, value float64, labels map[string]string) {
	Observe(name, value, labels)
}

// RecordGauge records a gauge value
func RecordGauge(name string, value float64, labels map[string]string) {
	SetGauge(name, value, labels)
}

// RecordDuration records a duration metric in milliseconds.
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Microseconds())/1000.0, labels)
}

// RecordTick records one supervisor tick's wall time and the supervisor's
// cumLagMs value (an exponentially smoothed tick duration, not the pacing
// limiter's slack).
func RecordTick(tickDuration time.Duration, cumLagMs float64) {
	Observe("tick_duration_ms", float64(tickDuration.Microseconds())/1000.0, nil)
	SetGauge("cum_lag_ms", cumLagMs, nil)
}

// RecordPhase records one tick-phase's wall time (sample/events/transition/
// actuation/publish), so overruns in a specific phase are visible.
func RecordPhase(phase string, d time.Duration) {
	Observe("phase_duration_ms", float64(d.Microseconds())/1000.0, map[string]string{"phase": phase})
}

// Basic text/JSON dump for quick checks (not Prometheus format on purpose,
// matching the teacher's own non-Prometheus registry).
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{Counters: reg.counters, Gauges: reg.gauges, Hist: reg.hist})
	})
}

// HealthStatus represents overall supervisor health for an external probe.
type HealthStatus struct {
	Status    string            `json:"status"` // "healthy", "degraded", "failed"
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Metrics   HealthMetrics     `json:"metrics"`
	Details   map[string]any    `json:"details"`
}

// HealthMetrics holds the realtime-loop metrics an external watchdog cares
// about: tick timing, event-pipeline liveness, and engagement state.
type HealthMetrics struct {
	TickLagP95Ms        int64   `json:"tick_lag_p95_ms"`
	CumLagMs            float64 `json:"cum_lag_ms"`
	CANRcvErrorTotal    int64   `json:"can_rcv_error_total"`
	MismatchCounter     int64   `json:"mismatch_counter"`
	EngagedFraction     float64 `json:"engaged_fraction"`
}

var (
	startTime = time.Now()
	version   = "dev" // set via build flags
)

// SetVersion sets the version string reported by the health endpoint.
func SetVersion(v string) {
	version = v
}

// HealthHandler returns a JSON health endpoint summarizing tick-loop state.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()

		health := HealthStatus{
			Status:    calculateOverallHealthStatus(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Version:   version,
			Metrics:   calculateHealthMetrics(),
			Details:   map[string]any{},
		}

		statusCode := http.StatusOK
		switch health.Status {
		case "degraded":
			statusCode = http.StatusPartialContent
		case "failed":
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	})
}

func calculateOverallHealthStatus() string {
	if hasFailedComponents() {
		return "failed"
	}
	if hasDegradedComponents() {
		return "degraded"
	}
	return "healthy"
}

func p95(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func calculateHealthMetrics() HealthMetrics {
	metrics := HealthMetrics{}

	if samples, ok := reg.hist["tick_duration_ms"]; ok {
		for _, s := range samples {
			metrics.TickLagP95Ms = int64(p95(s))
			break
		}
	}
	if g, ok := reg.gauges["cum_lag_ms"]; ok {
		for _, v := range g {
			metrics.CumLagMs = v
			break
		}
	}
	if c, ok := reg.counters["can_rcv_error_total"]; ok {
		for _, v := range c {
			metrics.CANRcvErrorTotal += v
		}
	}
	if c, ok := reg.counters["mismatch_counter"]; ok {
		for _, v := range c {
			metrics.MismatchCounter += v
		}
	}
	if g, ok := reg.gauges["engaged_fraction"]; ok {
		for _, v := range g {
			metrics.EngagedFraction = v
			break
		}
	}
	return metrics
}

func hasFailedComponents() bool {
	if g, ok := reg.gauges["cum_lag_ms"]; ok {
		for _, v := range g {
			if v > 50 { // 5 missed ticks at 100Hz
				return true
			}
		}
	}
	return false
}

func hasDegradedComponents() bool {
	if samples, ok := reg.hist["tick_duration_ms"]; ok {
		for _, s := range samples {
			if len(s) > 10 && p95(s) > 10 { // spec.md budget: phases <10ms on average
				return true
			}
		}
	}
	return false
}

// Health is a trivial liveness probe (legacy shape, unconditioned on state).
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
