package metrics

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type TreasuryMetrics struct {
	opts metric.MeasurementOption

	withdrawalsCounter     metric.Int64Counter
	withdrawnAmountCounter metric.Int64Counter
	depositsCounter        metric.Int64Counter
	balanceGauge           metric.Int64ObservableGauge
	balance                *atomic.Int64
}

// NewTreasuryMetrics initializes metrics related to coupon redemption and treasury funds
func NewTreasuryMetrics(ctx context.Context, meter metric.Meter, opts metric.MeasurementOption) (*TreasuryMetrics, error) {
	withdrawalsCounter, err := meter.Int64Counter(
		"treasury.Withdrawals",
		metric.WithDescription("Coupon withdrawal attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}
	withdrawnAmountCounter, err := meter.Int64Counter(
		"treasury.WithdrawnAmount",
		metric.WithDescription("Amount paid out against coupons in local units"),
	)
	if err != nil {
		return nil, err
	}
	depositsCounter, err := meter.Int64Counter(
		"treasury.Deposits",
		metric.WithDescription("Number of treasury deposits"),
	)
	if err != nil {
		return nil, err
	}

	balance := new(atomic.Int64)
	balanceGauge, err := meter.Int64ObservableGauge(
		"treasury.Balance",
		metric.WithInt64Callback(func(context context.Context, result metric.Int64Observer) error {
			result.Observe(balance.Load(), opts)
			return nil
		}),
		metric.WithDescription("Last observed treasury balance"),
	)
	if err != nil {
		return nil, err
	}

	return &TreasuryMetrics{
		opts:                   opts,
		withdrawalsCounter:     withdrawalsCounter,
		withdrawnAmountCounter: withdrawnAmountCounter,
		depositsCounter:        depositsCounter,
		balanceGauge:           balanceGauge,
		balance:                balance,
	}, nil
}

func (m *TreasuryMetrics) TrackWithdrawal(outcome string, amount uint64) {
	m.withdrawalsCounter.Add(
		context.Background(),
		1,
		m.opts,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	if amount > 0 {
		m.withdrawnAmountCounter.Add(context.Background(), clamp(amount), m.opts)
	}
}

func (m *TreasuryMetrics) TrackDeposit(amount uint64) {
	m.depositsCounter.Add(context.Background(), 1, m.opts)
}

func (m *TreasuryMetrics) TrackBalance(balance uint64) {
	m.balance.Store(clamp(balance))
}

func (m *TreasuryMetrics) Balance() int64 {
	return m.balance.Load()
}

// clamp keeps values above the int64 range from wrapping negative.
func clamp(v uint64) int64 {
	if v > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(v)
}
