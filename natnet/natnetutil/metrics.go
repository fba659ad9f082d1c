// Package natnetutil holds small CLI-facing helpers (metrics export, table
// rendering) shared by cmd/natnetclient that don't belong in the protocol
// or client packages.
package natnetutil

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics is the set of counters/gauges natnetclient exposes on
// --metrics-port, grounded on the same registry-per-process pattern the
// sptp exporter uses.
type Metrics struct {
	registry *prometheus.Registry

	FramesReceived       prometheus.Counter
	DescriptionsReceived prometheus.Counter
	// DecodeErrors is registered and exported, but natnetclient's commands
	// never increment it: decode errors are logged by the client package
	// and not passed on to the CLI.
	DecodeErrors         prometheus.Counter
	RigidBodyCount       prometheus.Gauge
	MarkerSetCount       prometheus.Gauge
}

// NewMetrics builds and registers a fresh Metrics set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "natnetclient_frames_received_total",
			Help: "Number of FRAMEOFDATA messages decoded.",
		}),
		DescriptionsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "natnetclient_descriptions_received_total",
			Help: "Number of MODELDEF messages decoded.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "natnetclient_decode_errors_total",
			Help: "Number of messages that failed to decode.",
		}),
		RigidBodyCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "natnetclient_last_frame_rigid_bodies",
			Help: "Rigid body count in the most recently decoded frame.",
		}),
		MarkerSetCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "natnetclient_last_frame_marker_sets",
			Help: "Marker set count in the most recently decoded frame.",
		}),
	}
	m.registry.MustRegister(m.FramesReceived, m.DescriptionsReceived, m.DecodeErrors, m.RigidBodyCount, m.MarkerSetCount)
	return m
}

// Serve starts the /metrics endpoint and blocks. Intended to be run in its
// own goroutine by the caller.
func (m *Metrics) Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), mux))
}
