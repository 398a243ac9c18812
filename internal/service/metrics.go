package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kube-rca/smsgate/internal/model"
)

var (
	deliveryOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsgate_delivery_outcome_total",
			Help: "Per-destination delivery outcomes by reason.",
		},
		[]string{"reason"},
	)
	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smsgate_send_command_duration_seconds",
			Help:    "Duration of send command executions.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"result"},
	)
	commandExitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsgate_send_command_exit_total",
			Help: "Send command executions by exit code.",
		},
		[]string{"code"},
	)
)

func observeOutcome(reason model.DeliveryReason) {
	deliveryOutcomeTotal.WithLabelValues(string(reason)).Inc()
}

func observeCommand(exitCode int, elapsed time.Duration) {
	result := "success"
	if exitCode != 0 {
		result = "failure"
	}
	commandDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	commandExitTotal.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// RegisterLimiterMetrics exposes the rate limiter state as gauges on reg.
func RegisterLimiterMetrics(reg prometheus.Registerer, r *RateLimiter) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "smsgate_rate_limiter_destinations",
		Help: "Destinations with a recorded send attempt.",
	}, func() float64 { return float64(r.Destinations()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "smsgate_rate_limiter_global_window",
		Help: "Send attempts currently kept in the global window.",
	}, func() float64 { return float64(r.GlobalLogLen()) })
}
