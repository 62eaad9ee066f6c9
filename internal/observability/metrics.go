// Package observability provides Prometheus metrics for the audio
// pipeline.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	AudioCore *AudioCoreMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	audioCoreMetrics, err := NewAudioCoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create audiocore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		AudioCore: audioCoreMetrics,
	}, nil
}

// Registry exposes the underlying registry for HTTP handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
