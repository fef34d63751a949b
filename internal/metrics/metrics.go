// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the queue engine reports into.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal   *prometheus.CounterVec // label: status (completed, failed)
	UploadBytes    prometheus.Counter
	AlbumsTotal    *prometheus.CounterVec // label: status (completed, failed, cancelled)
	QueueStarts    *prometheus.CounterVec // label: queue (upload, album)
	FoldersSynced  prometheus.Counter
	OperationsLive prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photosync_uploads_total",
			Help: "File transfers finished, by final status.",
		}, []string{"status"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photosync_upload_bytes_total",
			Help: "Total bytes transferred to the photo library.",
		}),
		AlbumsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photosync_album_workflows_total",
			Help: "Album workflows finished, by final status.",
		}, []string{"status"}),
		QueueStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photosync_queue_loop_starts_total",
			Help: "Processing loops started, by queue type.",
		}, []string{"queue"}),
		FoldersSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photosync_folders_synced_total",
			Help: "Remote folder enumerations written to the cache.",
		}),
		OperationsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_operations_live",
			Help: "Operations currently tracked by the status hub.",
		}),
	}

	m.registry.MustRegister(
		m.UploadsTotal, m.UploadBytes, m.AlbumsTotal,
		m.QueueStarts, m.FoldersSynced, m.OperationsLive,
	)
	return m
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
