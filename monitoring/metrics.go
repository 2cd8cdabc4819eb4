package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tickethive/models"
)

var (
	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickethive_reconciliations_total",
			Help: "Reconciliation calls by outcome",
		},
		[]string{"outcome"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickethive_reconcile_duration_seconds",
			Help:    "Duration of reconciliation calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	checkoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickethive_checkout_sessions_total",
			Help: "Checkout session requests by result",
		},
		[]string{"result"},
	)

	unitsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickethive_ticket_units_sold_total",
			Help: "Ticket units decremented by applied reconciliations",
		},
	)

	oversold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickethive_ticket_oversell_total",
			Help: "Decrements that left a ticket with negative quantity",
		},
	)

	ledgerAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickethive_ledger_amount_total",
			Help: "Sum of applied transaction amounts in major units",
		},
		[]string{"currency"},
	)

	gatewayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickethive_gateway_errors_total",
			Help: "Failed payment gateway calls",
		},
		[]string{"operation"},
	)

	bookingsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickethive_bookings",
			Help: "Current number of bookings per status",
		},
		[]string{"status"},
	)
)

// BookingCounter reports the number of bookings in each status.
type BookingCounter interface {
	CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int, error)
}

// Monitor records domain metrics. A nil *Monitor is valid and records nothing.
type Monitor struct {
	interval time.Duration
}

func NewMonitor() *Monitor {
	return &Monitor{interval: 30 * time.Second}
}

// Start refreshes the booking gauges until ctx is done.
func (m *Monitor) Start(ctx context.Context, counter BookingCounter) {
	if m == nil || counter == nil {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collectBookingMetrics(ctx, counter)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectBookingMetrics(ctx, counter)
		}
	}
}

func (m *Monitor) collectBookingMetrics(ctx context.Context, counter BookingCounter) {
	counts, err := counter.CountBookingsByStatus(ctx)
	if err != nil {
		slog.Error("collect booking metrics", "error", err)
		return
	}

	bookingsByStatus.Reset()
	for st, n := range counts {
		bookingsByStatus.WithLabelValues(string(st)).Set(float64(n))
	}
}

// Track reconciliation outcome and latency
func (m *Monitor) TrackReconcile(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	reconciliations.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(duration.Seconds())
}

func (m *Monitor) TrackSale(units int, remaining int, amount float64, currency string) {
	if m == nil {
		return
	}
	unitsSold.Add(float64(units))
	ledgerAmount.WithLabelValues(currency).Add(amount)
	if remaining < 0 {
		oversold.Inc()
	}
}

func (m *Monitor) TrackCheckout(result string) {
	if m == nil {
		return
	}
	checkoutSessions.WithLabelValues(result).Inc()
}

func (m *Monitor) TrackGatewayError(operation string) {
	if m == nil {
		return
	}
	gatewayErrors.WithLabelValues(operation).Inc()
}
