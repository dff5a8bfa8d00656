package domain

import "time"

// SaleItem is one line of a sale. UnitPrice is a snapshot of the product's
// price at sale time; any caller-supplied price is replaced before totals
// are computed. DiscountPercent is taken verbatim from the caller.
type SaleItem struct {
	Code            string  `json:"code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Sale is an immutable record of a completed transaction. Total is computed
// once at registration and never recalculated.
type Sale struct {
	ID              int        `json:"id"`
	Timestamp       time.Time  `json:"timestamp"`
	Items           []SaleItem `json:"items"`
	Total           float64    `json:"total"`
	DiscountPercent float64    `json:"discount_percent"`
	User            string     `json:"user"`
}
