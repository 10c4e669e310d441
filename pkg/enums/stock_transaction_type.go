package enums

import "fmt"

// StockTransactionType labels every mutation recorded in the stock ledger log.
type StockTransactionType string

const (
	StockTransactionInbound       StockTransactionType = "INBOUND"
	StockTransactionOutbound      StockTransactionType = "OUTBOUND"
	StockTransactionReserve       StockTransactionType = "RESERVE"
	StockTransactionRelease       StockTransactionType = "RELEASE"
	StockTransactionConfirmed     StockTransactionType = "CONFIRMED"
	StockTransactionAdjustmentIn  StockTransactionType = "ADJUSTMENT_IN"
	StockTransactionAdjustmentOut StockTransactionType = "ADJUSTMENT_OUT"
	StockTransactionReturn        StockTransactionType = "RETURN"
)

var validStockTransactionTypes = []StockTransactionType{
	StockTransactionInbound,
	StockTransactionOutbound,
	StockTransactionReserve,
	StockTransactionRelease,
	StockTransactionConfirmed,
	StockTransactionAdjustmentIn,
	StockTransactionAdjustmentOut,
	StockTransactionReturn,
}

// String implements fmt.Stringer.
func (s StockTransactionType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockTransactionType.
func (s StockTransactionType) IsValid() bool {
	for _, candidate := range validStockTransactionTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockTransactionType converts raw input into a StockTransactionType.
func ParseStockTransactionType(value string) (StockTransactionType, error) {
	for _, candidate := range validStockTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock transaction type %q", value)
}
