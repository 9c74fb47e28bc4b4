// Package telemetry wires the core's runtime counters (§4.6/§6's "runtime
// tweaks" and the per-component diagnostics named throughout §4) into
// OpenTelemetry metrics, exported over Prometheus's text format the same
// way the mount tool's own otel_metrics.go does it.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// NewPrometheusMeterProvider builds a MeterProvider backed by a Prometheus
// exporter registered against reg (pass promclient.DefaultRegisterer to use
// the global registry, or a fresh one per test). The returned shutdown
// function should be called once on process exit.
func NewPrometheusMeterProvider(reg promclient.Registerer) (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return provider, provider.Shutdown, nil
}

// Meter is the subset of metric.Meter instrument construction the core
// packages in this module need.
type Meter = metric.Meter
