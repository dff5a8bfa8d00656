package ledger

import (
	"fmt"
	"sync"

	"stockpos/m/domain"
)

// Promotions is a thin keyed registry of reusable discounts. Discount
// percentages are stored as given; values above 100 are accepted (applying
// one to a sale produces a negative total).
type Promotions struct {
	mu     sync.RWMutex
	byCode map[string]struct{}
	promos []domain.Promotion
}

func NewPromotions() *Promotions {
	return &Promotions{byCode: make(map[string]struct{})}
}

// Create stores a new promotion. The code must not already be in use.
func (pr *Promotions) Create(p domain.Promotion) (domain.Promotion, error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if _, ok := pr.byCode[p.Code]; ok {
		return domain.Promotion{}, fmt.Errorf("promotion code %s: %w", p.Code, ErrDuplicateCode)
	}
	pr.byCode[p.Code] = struct{}{}
	pr.promos = append(pr.promos, p)
	return p, nil
}

// List returns all promotions in insertion order.
func (pr *Promotions) List() []domain.Promotion {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	out := make([]domain.Promotion, len(pr.promos))
	copy(out, pr.promos)
	return out
}
