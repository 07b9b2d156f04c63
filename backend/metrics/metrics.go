// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "proficiency",
		Name:      "registrations_total",
		Help:      "Candidates registered.",
	})

	AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "proficiency",
		Name:      "attempts_started_total",
		Help:      "Test attempts assembled and persisted.",
	})

	AttemptItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "proficiency",
		Name:      "attempt_items",
		Help:      "Number of items per started attempt.",
		Buckets:   prometheus.LinearBuckets(5, 5, 12),
	})

	CertificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "proficiency",
		Name:      "certificates_issued_total",
		Help:      "Certificate identifiers assigned for the first time.",
	})

	CertificateRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proficiency",
		Name:      "certificate_renders_total",
		Help:      "Certificate PDF renders by outcome.",
	}, []string{"outcome"})

	CertificateRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "proficiency",
		Name:      "certificate_render_seconds",
		Help:      "Time spent converting certificate HTML to PDF.",
		Buckets:   prometheus.DefBuckets,
	})
)
