package domain

// Promotion is a named, reusable discount percentage. It is never applied
// to a sale automatically; callers read it and pass the percentage along.
type Promotion struct {
	Code            string  `json:"code"`
	Description     string  `json:"description"`
	DiscountPercent float64 `json:"discount_percent"`
}
