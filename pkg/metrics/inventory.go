package metrics

import "github.com/prometheus/client_golang/prometheus"

// InventoryMetrics counts reservation outcomes per operation.
type InventoryMetrics struct {
	operations *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory counters on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_operations_total",
		Help: "Inventory ledger operations by type and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &InventoryMetrics{operations: operations}
}

// IncOperation counts one ledger operation with its outcome
// (ok, insufficient_stock, error).
func (m *InventoryMetrics) IncOperation(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
