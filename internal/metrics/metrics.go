// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes recorded by RecordUpload.
const (
	UploadCommitted  = "committed"
	UploadRejected   = "rejected"
	UploadRolledBack = "rolled_back"
	UploadFailed     = "failed"
)

// Delete outcomes recorded by RecordDelete.
const (
	DeleteDeleted = "deleted"
	DeleteMissing = "missing"
	DeleteFailed  = "failed"
)

// Recorder is the metrics interface used by the media service and server.
type Recorder interface {
	RecordUpload(result string, sizeBytes int64, duration time.Duration)
	RecordRejection(reason string)
	RecordDelete(result string, count int)
	RecordCompensationFailure()
	RecordReconcile(kind string, count int)
	RecordHTTPStatus(statusCode int)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	uploads              *prometheus.CounterVec
	uploadBytes          prometheus.Counter
	uploadLatency        prometheus.Histogram
	rejections           *prometheus.CounterVec
	deletes              *prometheus.CounterVec
	compensationFailures prometheus.Counter
	reconcile            *prometheus.CounterVec
	httpStatus           *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgvault_uploads_total",
			Help: "Upload attempts by final state.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgvault_upload_bytes_total",
			Help: "Bytes of committed uploads.",
		}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "imgvault_upload_duration_seconds",
			Help:    "Upload latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgvault_upload_rejections_total",
			Help: "Rejected uploads by validation reason.",
		}, []string{"reason"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgvault_image_deletes_total",
			Help: "Image deletes by outcome.",
		}, []string{"result"}),
		compensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imgvault_compensation_failures_total",
			Help: "Blob deletes that failed while rolling back an upload.",
		}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgvault_reconcile_items_total",
			Help: "Items found or repaired by the reconcile sweep.",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imgvault_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.uploads,
		c.uploadBytes,
		c.uploadLatency,
		c.rejections,
		c.deletes,
		c.compensationFailures,
		c.reconcile,
		c.httpStatus,
	)

	return c
}

// RecordUpload records one finished upload attempt.
func (c *Collector) RecordUpload(result string, sizeBytes int64, duration time.Duration) {
	c.uploads.WithLabelValues(result).Inc()
	if result == UploadCommitted {
		c.uploadBytes.Add(float64(sizeBytes))
	}
	c.uploadLatency.Observe(duration.Seconds())
}

// RecordRejection records a validation rejection.
func (c *Collector) RecordRejection(reason string) {
	c.rejections.WithLabelValues(reason).Inc()
}

// RecordDelete records count image deletes with one outcome.
func (c *Collector) RecordDelete(result string, count int) {
	if count <= 0 {
		return
	}
	c.deletes.WithLabelValues(result).Add(float64(count))
}

// RecordCompensationFailure records a failed upload rollback.
func (c *Collector) RecordCompensationFailure() {
	c.compensationFailures.Inc()
}

// RecordReconcile records reconcile findings or repairs of one kind.
func (c *Collector) RecordReconcile(kind string, count int) {
	if count <= 0 {
		return
	}
	c.reconcile.WithLabelValues(kind).Add(float64(count))
}

// RecordHTTPStatus records one HTTP response status.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards all metrics.
type Nop struct{}

func (Nop) RecordUpload(string, int64, time.Duration) {}
func (Nop) RecordRejection(string)                    {}
func (Nop) RecordDelete(string, int)                  {}
func (Nop) RecordCompensationFailure()                {}
func (Nop) RecordReconcile(string, int)               {}
func (Nop) RecordHTTPStatus(int)                      {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
