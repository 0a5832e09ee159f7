package observability

import (
	"context"

	coreObservability "github.com/sygmaprotocol/sygma-core/observability"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterProvider is a metric provider that needs to be shut down on exit.
type MeterProvider interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

type noopMeterProvider struct {
	noop.MeterProvider
}

func (p noopMeterProvider) Shutdown(ctx context.Context) error {
	return nil
}

// InitMetricProvider exports metrics to the OTLP collector at collectorURL.
// Metrics are discarded when no collector is configured.
func InitMetricProvider(ctx context.Context, collectorURL string) (MeterProvider, error) {
	if collectorURL == "" {
		return noopMeterProvider{noop.NewMeterProvider()}, nil
	}

	mp, err := coreObservability.InitMetricProvider(ctx, collectorURL)
	if err != nil {
		return nil, err
	}
	return mp, nil
}
