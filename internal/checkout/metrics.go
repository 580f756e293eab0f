package checkout

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts checkout attempts by outcome. A nil *Metrics records
// nothing, so tests and minimal setups can pass nil.
type Metrics struct {
	attempts metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("storefront/checkout")

	attempts, err := meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{attempts: attempts}, nil
}

func (m *Metrics) record(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
