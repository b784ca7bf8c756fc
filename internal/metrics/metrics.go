// Package metrics exposes the bot's Prometheus counters on a private registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	Messages      *prometheus.CounterVec
	Commands      *prometheus.CounterVec
	Corrections   *prometheus.CounterVec
	BackendErrors *prometheus.CounterVec
	CheckDuration *prometheus.HistogramVec
	QueueDropped  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbot_messages_total",
			Help: "Messages received by platform and kind (command, text, callback)",
		}, []string{"platform", "kind"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbot_commands_total",
			Help: "Commands handled by name and outcome",
		}, []string{"command", "outcome"}),
		Corrections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbot_corrections_total",
			Help: "Corrections sent to chats by algorithm",
		}, []string{"algorithm"}),
		BackendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grammarbot_backend_errors_total",
			Help: "Failed grammar backend calls by algorithm",
		}, []string{"algorithm"}),
		CheckDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grammarbot_check_duration_seconds",
			Help:    "Grammar check latency by algorithm",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"algorithm"}),
		QueueDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "grammarbot_review_dropped_total",
			Help: "Messages dropped because the review queue was full",
		}),
	}
}

func (m *Metrics) MessageReceived(platform, kind string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(platform, kind).Inc()
}

func (m *Metrics) CommandHandled(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) CheckDone(algorithm string, d time.Duration, corrections int, err error) {
	if m == nil {
		return
	}
	m.CheckDuration.WithLabelValues(algorithm).Observe(d.Seconds())
	if err != nil {
		m.BackendErrors.WithLabelValues(algorithm).Inc()
		return
	}
	m.Corrections.WithLabelValues(algorithm).Add(float64(corrections))
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.QueueDropped.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
