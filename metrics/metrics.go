// Package metrics exposes Prometheus instrumentation for a cwrapfinder
// run: translation units processed, parse failures, rows emitted, and
// wrapper accept/reject counts by reason (SPEC_FULL.md §2). The finder
// command constructs one Metrics instance per invocation only when
// --metrics-addr is set and passes it to the runner; without it the runner
// receives nil and records nothing. The runner records translation units,
// parse failures, edges and rows; it does not call RecordDecision.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cwrapfinder"

// Metrics holds the counters for a single run. Safe for concurrent use
// by the runner's worker pool.
type Metrics struct {
	TranslationUnitsTotal *prometheus.CounterVec
	ParseFailuresTotal    prometheus.Counter
	RowsEmittedTotal      prometheus.Counter
	WrapperDecisionsTotal *prometheus.CounterVec
	EdgesCollectedTotal   prometheus.Counter
	RunDurationSeconds    prometheus.Histogram
}

// New registers and returns a fresh set of counters against its own
// registry, so repeated runs in the same process (tests, the fuzzy/
// pipeline subcommands run back to back) never hit Prometheus's
// duplicate-registration panic.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return newWithRegisterer(reg)
}

func newWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TranslationUnitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translation_units_total",
				Help:      "Total translation units processed, by outcome (parsed, skipped, failed).",
			},
			[]string{"outcome"},
		),
		ParseFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_failures_total",
				Help:      "Total translation units that failed to read or parse.",
			},
		),
		RowsEmittedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_emitted_total",
				Help:      "Total wrapper-candidate rows written to output.",
			},
		),
		WrapperDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wrapper_decisions_total",
				Help:      "Wrapper accept/reject decisions by reason.",
			},
			[]string{"mode", "kept", "reason"},
		),
		EdgesCollectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callgraph_edges_total",
				Help:      "Total call-graph edges collected across all translation units.",
			},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a finder/callgraph run.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
		),
	}
}

// TranslationUnitOutcome enumerates the label values for
// TranslationUnitsTotal, matching the runner's per-unit result handling.
type TranslationUnitOutcome string

const (
	OutcomeParsed  TranslationUnitOutcome = "parsed"
	OutcomeSkipped TranslationUnitOutcome = "skipped"
	OutcomeFailed  TranslationUnitOutcome = "failed"
)

// RecordTranslationUnit increments the per-outcome translation-unit
// counter, and ParseFailuresTotal when the outcome is a failure.
func (m *Metrics) RecordTranslationUnit(outcome TranslationUnitOutcome) {
	m.TranslationUnitsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeFailed {
		m.ParseFailuresTotal.Inc()
	}
}

// RecordRows adds n to the emitted-row counter.
func (m *Metrics) RecordRows(n int) {
	if n <= 0 {
		return
	}
	m.RowsEmittedTotal.Add(float64(n))
}

// RecordEdges adds n to the collected-edge counter.
func (m *Metrics) RecordEdges(n int) {
	if n <= 0 {
		return
	}
	m.EdgesCollectedTotal.Add(float64(n))
}

// RecordDecision records one wrapper accept/reject outcome. reason is
// the short reason string from wrapper.Decision.Reason (e.g.
// "ok+ok-guard", "reject: multi-call-per-path"); kept distinguishes the
// accept/reject axis from the still-useful reason cardinality.
func (m *Metrics) RecordDecision(mode string, kept bool, reason string) {
	m.WrapperDecisionsTotal.WithLabelValues(mode, boolLabel(kept), reason).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordDuration observes a completed run's wall-clock duration.
func (m *Metrics) RecordDuration(d time.Duration) {
	m.RunDurationSeconds.Observe(d.Seconds())
}

// NewRegistered is like New but also returns the backing registry, for
// callers (cmd/cwrapfinder) that need to serve it over --metrics-addr.
func NewRegistered() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return newWithRegisterer(reg), reg
}

// Serve starts an HTTP server exposing reg's metrics at /metrics on
// addr, returning once the listener is up. It runs until ctx is
// cancelled, after which it shuts down gracefully. Mirrors the
// --metrics-addr wiring in the pack's cie indexing CLI.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Serve(ln)
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv, nil
}
