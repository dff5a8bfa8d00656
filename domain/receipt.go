package domain

import "time"

// ReceiptItem is a single line on a receipt with its rounded subtotal.
type ReceiptItem struct {
	Code            string  `json:"code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	Subtotal        float64 `json:"subtotal"`
}

// Receipt is a value object composed from a stored sale at read time.
// It is never stored itself; the total reuses the value recorded on the sale.
type Receipt struct {
	SaleID          int           `json:"sale_id"`
	Date            time.Time     `json:"date"`
	Cashier         string        `json:"cashier"`
	Items           []ReceiptItem `json:"items"`
	DiscountPercent float64       `json:"discount_percent"`
	Total           float64       `json:"total"`
}
