package domain

// Product is a stock-keeping unit identified by its code.
type Product struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Supplier    string  `json:"supplier"`
}
