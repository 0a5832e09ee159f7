package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ServiceMetrics struct {
	*HostMetrics
	*TreasuryMetrics
}

// NewServiceMetrics creates every metric of the service labeled with the
// deployment env, instance id and version.
func NewServiceMetrics(ctx context.Context, meter metric.Meter, env, id, version string) (*ServiceMetrics, error) {
	opts := metric.WithAttributes(
		attribute.String("env", env),
		attribute.String("instance", id),
		attribute.String("version", version),
	)

	hostMetrics, err := NewHostMetrics(ctx, meter, opts)
	if err != nil {
		return nil, err
	}
	treasuryMetrics, err := NewTreasuryMetrics(ctx, meter, opts)
	if err != nil {
		return nil, err
	}

	return &ServiceMetrics{
		HostMetrics:     hostMetrics,
		TreasuryMetrics: treasuryMetrics,
	}, nil
}
