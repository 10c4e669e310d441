package autotransition

import (
	"time"

	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/enums"
)

// transitionSpec is the status edge a transition type drives.
type transitionSpec struct {
	From enums.OrderStatus
	To   enums.OrderStatus
}

// transitionSpecs maps every supported transition type to its edge.
// AutoTransitionDeliveredToCompleted exists in the enum but has no edge in
// the lifecycle, so scheduling it is rejected.
var transitionSpecs = map[enums.AutoTransitionType]transitionSpec{
	enums.AutoTransitionConfirmedToProcessing: {From: enums.OrderStatusConfirmed, To: enums.OrderStatusProcessing},
	enums.AutoTransitionProcessingToShipped:   {From: enums.OrderStatusProcessing, To: enums.OrderStatusShipped},
	enums.AutoTransitionShippedToDelivered:    {From: enums.OrderStatusShipped, To: enums.OrderStatusDelivered},
	enums.AutoTransitionPendingToCancelled:    {From: enums.OrderStatusPending, To: enums.OrderStatusCanceled},
}

// typeForStatus picks the transition type that continues the chain once an
// order has entered the given status.
var typeForStatus = map[enums.OrderStatus]enums.AutoTransitionType{
	enums.OrderStatusPending:    enums.AutoTransitionPendingToCancelled,
	enums.OrderStatusConfirmed:  enums.AutoTransitionConfirmedToProcessing,
	enums.OrderStatusProcessing: enums.AutoTransitionProcessingToShipped,
	enums.OrderStatusShipped:    enums.AutoTransitionShippedToDelivered,
}

func delayFor(cfg config.AutoTransitionConfig, transitionType enums.AutoTransitionType) time.Duration {
	switch transitionType {
	case enums.AutoTransitionConfirmedToProcessing:
		return cfg.ConfirmedToProcessingDelay
	case enums.AutoTransitionProcessingToShipped:
		return cfg.ProcessingToShippedDelay
	case enums.AutoTransitionShippedToDelivered:
		return cfg.ShippedToDeliveredDelay
	case enums.AutoTransitionPendingToCancelled:
		return cfg.PendingToCancelledDelay
	default:
		return cfg.DefaultDelay
	}
}
