package enums

import "fmt"

// ReservationState tracks the hold a cart item has on stock. Both the
// checkout confirm path and the expiry scanner must win a compare-and-swap
// out of pending before touching the ledger, so the two can never race.
type ReservationState string

const (
	ReservationStatePending   ReservationState = "pending"
	ReservationStateConfirmed ReservationState = "confirmed"
	ReservationStateReleased  ReservationState = "released"
)

var validReservationStates = []ReservationState{
	ReservationStatePending,
	ReservationStateConfirmed,
	ReservationStateReleased,
}

// String implements fmt.Stringer.
func (r ReservationState) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationState.
func (r ReservationState) IsValid() bool {
	for _, candidate := range validReservationStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationState converts raw input into a ReservationState.
func ParseReservationState(value string) (ReservationState, error) {
	for _, candidate := range validReservationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation state %q", value)
}
