// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus counters for intake runs and an
// optional HTTP endpoint to scrape them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdiddy/case-intake/pkg/types"
)

const namespace = "case_intake"

// Metrics holds the intake collectors.
type Metrics struct {
	OutcomesTotal  *prometheus.CounterVec
	FilesExtracted prometheus.Counter
	RunDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Total number of intake runs by result and failure kind",
			},
			[]string{"result", "kind"},
		),
		FilesExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_extracted_total",
				Help:      "Total number of case files written",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Intake run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	reg.MustRegister(m.OutcomesTotal, m.FilesExtracted, m.RunDuration)
	return m
}

// NewRegistry returns a registry with the Go runtime and process
// collectors plus the intake collectors.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, New(reg)
}

// Observe records one run.
func (m *Metrics) Observe(o types.Outcome, d time.Duration) {
	result, kind := "success", "none"
	if !o.Success {
		result, kind = "failure", o.Kind
	}
	m.OutcomesTotal.WithLabelValues(result, kind).Inc()
	m.FilesExtracted.Add(float64(len(o.Extracted)))
	m.RunDuration.Observe(d.Seconds())
}

// Handler serves /metrics and /health for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
