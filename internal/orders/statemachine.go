package orders

import (
	"time"

	"github.com/dvfashion/backend/pkg/db/models"
	"github.com/dvfashion/backend/pkg/enums"
)

// allowedTransitions is the whole order lifecycle. Anything not listed here
// is rejected, including every move out of a terminal status.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCanceled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCanceled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCanceled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusReturned},
	enums.OrderStatusDelivered:  {enums.OrderStatusReturned},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TargetsFrom lists the statuses reachable from the given one.
func TargetsFrom(from enums.OrderStatus) []enums.OrderStatus {
	targets := allowedTransitions[from]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// stampTransition records the moment a status was entered on the order row.
func stampTransition(order *models.Order, to enums.OrderStatus, now time.Time) {
	switch to {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case enums.OrderStatusShipped:
		order.ShippedAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	case enums.OrderStatusCanceled:
		order.CanceledAt = &now
	case enums.OrderStatusReturned:
		order.ReturnedAt = &now
	}
}
