package enums

import "fmt"

// AutoTransitionType names a delayed, automatic order status change.
type AutoTransitionType string

const (
	AutoTransitionConfirmedToProcessing AutoTransitionType = "CONFIRMED_TO_PROCESSING"
	AutoTransitionProcessingToShipped   AutoTransitionType = "PROCESSING_TO_SHIPPED"
	AutoTransitionShippedToDelivered    AutoTransitionType = "SHIPPED_TO_DELIVERED"
	AutoTransitionPendingToCancelled    AutoTransitionType = "PENDING_TO_CANCELLED"
	AutoTransitionDeliveredToCompleted  AutoTransitionType = "DELIVERED_TO_COMPLETED"
)

var validAutoTransitionTypes = []AutoTransitionType{
	AutoTransitionConfirmedToProcessing,
	AutoTransitionProcessingToShipped,
	AutoTransitionShippedToDelivered,
	AutoTransitionPendingToCancelled,
	AutoTransitionDeliveredToCompleted,
}

// String implements fmt.Stringer.
func (a AutoTransitionType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AutoTransitionType.
func (a AutoTransitionType) IsValid() bool {
	for _, candidate := range validAutoTransitionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAutoTransitionType converts raw input into an AutoTransitionType.
func ParseAutoTransitionType(value string) (AutoTransitionType, error) {
	for _, candidate := range validAutoTransitionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auto transition type %q", value)
}
