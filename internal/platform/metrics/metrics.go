// Package metrics holds the Prometheus collectors shared by the scan pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "comply"

var (
	// ScansTotal counts scan requests by outcome (completed, cached, rate_limited, failed, invalid).
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Scan requests by outcome.",
	}, []string{"outcome"})

	// ScanDuration tracks end-to-end pipeline latency of uncached scans.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of uncached scans in seconds.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60},
	})

	// PagesAudited counts page audits by result (ok, failed, skipped).
	PagesAudited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_audited_total",
		Help:      "Page audits by result.",
	}, []string{"result"})

	// CacheHits counts scans answered from the result cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Scans answered from a recent stored result.",
	})

	// RateLimited counts scan requests denied by the quota guard.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Scan requests denied by the hourly quota.",
	})

	// PDFChecks counts inspected PDF documents by result (accessible, inaccessible, error).
	PDFChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pdf_checks_total",
		Help:      "Inspected PDF documents by result.",
	}, []string{"result"})

	// VendorsDetected counts third-party vendor detections by vendor name.
	VendorsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vendors_detected_total",
		Help:      "Third-party healthcare vendors detected on scanned sites.",
	}, []string{"vendor"})

	// ReportsSent counts unlock report emails by result (sent, failed, skipped).
	ReportsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_sent_total",
		Help:      "Unlocked report emails by delivery result.",
	}, []string{"result"})

	// WaitlistSignups counts waitlist sign-ups by welcome email result (sent, failed, skipped).
	WaitlistSignups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "waitlist_signups_total",
		Help:      "Waitlist sign-ups by welcome email result.",
	}, []string{"welcome"})
)
