package domain

import "time"

// MovementKind tags a stock movement with the operation that produced it.
type MovementKind string

const (
	MovementAddition MovementKind = "addition"
	MovementRemoval  MovementKind = "removal"
	MovementUpdate   MovementKind = "update"
)

// StockMovement is an append-only journal entry for a quantity change.
// The product code is not required to still resolve to a live product.
type StockMovement struct {
	Kind      MovementKind `json:"kind"`
	Code      string       `json:"code"`
	Quantity  int          `json:"quantity"`
	Timestamp time.Time    `json:"timestamp"`
	User      string       `json:"user"`
}
