// Package metrics exposes the bridge's counters over Prometheus plus a JSON
// health endpoint. The counters themselves live in the components (relay
// slots, supervisor); this package only reads them through a snapshot
// function, so nothing here is on any hot path.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is one read of every counter the bridge exports.
type Snapshot struct {
	State string `json:"state"`

	VideoFramesPublished uint64 `json:"video_frames_published"`
	VideoFramesDropped   uint64 `json:"video_frames_dropped"`
	VideoFramesSent      uint64 `json:"video_frames_sent"`

	DepthFramesPublished uint64 `json:"depth_frames_published"`
	DepthFramesDropped   uint64 `json:"depth_frames_dropped"`
	DepthFramesSent      uint64 `json:"depth_frames_sent"`

	Reconnects      uint64 `json:"reconnects"`
	ConnectFailures uint64 `json:"connect_failures"`
	StreamErrors    uint64 `json:"stream_errors"`
}

// Connected reports whether the device is currently streaming.
func (s Snapshot) Connected() bool {
	return s.State == "streaming"
}

// Metrics serves /metrics and /healthz backed by a snapshot source.
type Metrics struct {
	source   func() Snapshot
	registry *prometheus.Registry
}

// New registers gauges for every Snapshot field against a fresh registry.
func New(source func() Snapshot) *Metrics {
	m := &Metrics{
		source:   source,
		registry: prometheus.NewRegistry(),
	}

	counters := []struct {
		name string
		help string
		read func(Snapshot) uint64
	}{
		{"kinectcast_video_frames_published_total", "Video frames delivered by the driver callback",
			func(s Snapshot) uint64 { return s.VideoFramesPublished }},
		{"kinectcast_video_frames_dropped_total", "Video frames overwritten before the publish loop drained them",
			func(s Snapshot) uint64 { return s.VideoFramesDropped }},
		{"kinectcast_video_frames_sent_total", "Video frames sent to the network transmitter",
			func(s Snapshot) uint64 { return s.VideoFramesSent }},
		{"kinectcast_depth_frames_published_total", "Depth frames delivered by the driver callback",
			func(s Snapshot) uint64 { return s.DepthFramesPublished }},
		{"kinectcast_depth_frames_dropped_total", "Depth frames overwritten before the publish loop drained them",
			func(s Snapshot) uint64 { return s.DepthFramesDropped }},
		{"kinectcast_depth_frames_sent_total", "Depth frames sent to the network transmitter",
			func(s Snapshot) uint64 { return s.DepthFramesSent }},
		{"kinectcast_reconnects_total", "Successful device connections",
			func(s Snapshot) uint64 { return s.Reconnects }},
		{"kinectcast_connect_failures_total", "Failed open or configure attempts",
			func(s Snapshot) uint64 { return s.ConnectFailures }},
		{"kinectcast_stream_errors_total", "Mid-stream event poll failures",
			func(s Snapshot) uint64 { return s.StreamErrors }},
	}
	for _, c := range counters {
		read := c.read
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(read(m.source())) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "kinectcast_connected",
			Help: "Device connected and streaming (0 or 1)",
		},
		func() float64 {
			if m.source().Connected() {
				return 1
			}
			return 0
		},
	))

	return m
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HealthHandler returns the JSON health handler.
func (m *Metrics) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := m.source()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"connected": snap.Connected(),
			"stats":     snap,
		})
	})
}

// StartServer serves /metrics and /healthz on addr. Blocks.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", m.HealthHandler())
	return http.ListenAndServe(addr, mux)
}
