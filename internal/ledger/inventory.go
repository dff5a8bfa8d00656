package ledger

import (
	"fmt"
	"sync"

	"stockpos/m/domain"
)

// Inventory owns the product registry, keyed by product code. All mutating
// operations are serialized by a single lock so concurrent callers cannot
// interleave a read-check with a write.
type Inventory struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewInventory() *Inventory {
	return &Inventory{products: make(map[string]*domain.Product)}
}

// Register stores a new product. The code must not already be in use.
func (inv *Inventory) Register(p domain.Product) (domain.Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.products[p.Code]; ok {
		return domain.Product{}, fmt.Errorf("product code %s: %w", p.Code, ErrDuplicateCode)
	}
	stored := p
	inv.products[p.Code] = &stored
	return stored, nil
}

// IncreaseStock adds amount to the product's quantity. The amount is taken
// as given; negative values are not rejected here.
func (inv *Inventory) IncreaseStock(code string, amount int) (domain.Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	p.Quantity += amount
	return *p, nil
}

// DecreaseStock subtracts amount from the product's quantity, refusing to
// take it below zero.
func (inv *Inventory) DecreaseStock(code string, amount int) (domain.Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	if amount > p.Quantity {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrInsufficientStock)
	}
	p.Quantity -= amount
	return *p, nil
}

// SetStock overwrites the product's quantity unconditionally.
func (inv *Inventory) SetStock(code string, amount int) (domain.Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	p.Quantity = amount
	return *p, nil
}

// ProductUpdate carries optional field updates; nil fields are left alone.
type ProductUpdate struct {
	Price       *float64
	Category    *string
	Description *string
	Supplier    *string
}

// UpdateProduct applies non-nil fields of upd to the product.
func (inv *Inventory) UpdateProduct(code string, upd ProductUpdate) (domain.Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Supplier != nil {
		p.Supplier = *upd.Supplier
	}
	return *p, nil
}

// Product returns a copy of the product with the given code.
func (inv *Inventory) Product(code string) (domain.Product, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	p, ok := inv.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", code, ErrNotFound)
	}
	return *p, nil
}

// Products returns a snapshot of the whole registry.
func (inv *Inventory) Products() map[string]domain.Product {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make(map[string]domain.Product, len(inv.products))
	for code, p := range inv.products {
		out[code] = *p
	}
	return out
}

// LowStock returns every product whose quantity is strictly below threshold.
func (inv *Inventory) LowStock(threshold int) map[string]domain.Product {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make(map[string]domain.Product)
	for code, p := range inv.products {
		if p.Quantity < threshold {
			out[code] = *p
		}
	}
	return out
}

// CommitSale validates every line item and, only if all of them can be
// satisfied, decrements stock for each. The whole sequence runs under one
// lock, so two concurrent sales can never both pass validation against the
// same units. Validation is cumulative: repeated codes within one sale are
// checked against what the earlier lines leave over. Returns the live unit
// price per code for total computation.
func (inv *Inventory) CommitSale(items []domain.SaleItem) (map[string]float64, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	remaining := make(map[string]int, len(items))
	for _, it := range items {
		p, ok := inv.products[it.Code]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", it.Code, ErrNotFound)
		}
		if _, seen := remaining[it.Code]; !seen {
			remaining[it.Code] = p.Quantity
		}
		if it.Quantity > remaining[it.Code] {
			return nil, fmt.Errorf("product %s: %w", it.Code, ErrInsufficientStock)
		}
		remaining[it.Code] -= it.Quantity
	}

	prices := make(map[string]float64, len(items))
	for _, it := range items {
		p := inv.products[it.Code]
		p.Quantity -= it.Quantity
		prices[it.Code] = p.Price
	}
	return prices, nil
}
