package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts ledger state changes after their transaction commits.
type LedgerMetrics struct {
	purchases   *prometheus.CounterVec
	payments    *prometheus.CounterVec
	settlements prometheus.Counter
	deliveries  *prometheus.CounterVec
	waybills    prometheus.Counter
}

// NewLedgerMetrics registers the ledger counters on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_purchases_created_total",
		Help: "Purchases created by purchase type.",
	}, []string{"purchase_type"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_applied_total",
		Help: "Payments applied by method.",
	}, []string{"method"})
	settlements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_purchases_settled_total",
		Help: "Purchases whose outstanding balance reached zero.",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_delivery_transitions_total",
		Help: "Delivery status transitions by target status.",
	}, []string{"to"})
	waybills := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_waybills_issued_total",
		Help: "Waybills issued.",
	})
	reg.MustRegister(purchases, payments, settlements, deliveries, waybills)
	return &LedgerMetrics{
		purchases:   purchases,
		payments:    payments,
		settlements: settlements,
		deliveries:  deliveries,
		waybills:    waybills,
	}
}

func (m *LedgerMetrics) PurchaseCreated(purchaseType string) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(purchaseType)).Inc()
}

// PaymentApplied counts one payment and, when settled is true, one settlement.
func (m *LedgerMetrics) PaymentApplied(method string, settled bool) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(method)).Inc()
	if settled {
		m.settlements.Inc()
	}
}

func (m *LedgerMetrics) DeliveryTransition(to string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *LedgerMetrics) WaybillIssued() {
	if m == nil || m.waybills == nil {
		return
	}
	m.waybills.Inc()
}
