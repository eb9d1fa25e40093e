// Package metrics exports OpenTelemetry instruments through a private Prometheus registry.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Provider owns the meter provider and the registry /metrics serves.
type Provider struct {
	meterProvider *metric.MeterProvider
	registry      *prometheus.Registry
}

type providerOptions struct {
	serviceName string
	runtime     bool
}

// Option configures NewProvider.
type Option func(*providerOptions)

// WithServiceName sets service.name on the exported target_info.
func WithServiceName(name string) Option {
	return func(o *providerOptions) { o.serviceName = name }
}

// WithRuntimeCollectors adds the Go runtime and process collectors to the registry.
func WithRuntimeCollectors() Option {
	return func(o *providerOptions) { o.runtime = true }
}

// NewProvider creates a meter provider backed by a fresh registry, so tests and
// multiple containers never share collectors.
func NewProvider(opts ...Option) (*Provider, error) {
	o := providerOptions{serviceName: "sealdrop"}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	if o.runtime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", o.serviceName))

	return &Provider{
		meterProvider: metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res)),
		registry:      registry,
	}, nil
}

// Handler serves the registry in Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// MeterProvider returns the OpenTelemetry meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.meterProvider
}

// Shutdown flushes pending metrics. A zero Provider is a no-op.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
