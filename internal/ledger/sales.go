package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"stockpos/m/domain"
)

// Sales owns the sale log and the stock movement journal. It reads and
// mutates product state through the Inventory ledger; it does not own
// products. Both logs are append-only.
type Sales struct {
	mu        sync.RWMutex
	inv       *Inventory
	sales     []domain.Sale
	movements []domain.StockMovement
	nextID    int
}

func NewSales(inv *Inventory) *Sales {
	return &Sales{inv: inv, nextID: 1}
}

// RegisterSale validates every line against current stock, computes the
// discounted total from live unit prices, decrements stock and journals one
// removal movement per line. The validate-then-commit sequence is atomic
// with respect to concurrent stock mutation: either every line commits or
// none do, and no id is consumed on failure.
//
// Caller-supplied unit prices are discarded in favor of the product's
// current price; caller-supplied discount percentages are applied as given.
// An empty item list yields a sale with total 0 and no movements.
func (s *Sales) RegisterSale(items []domain.SaleItem, saleDiscount float64, user string) (domain.Sale, error) {
	prices, err := s.inv.CommitSale(items)
	if err != nil {
		return domain.Sale{}, err
	}

	now := time.Now().UTC()
	stored := make([]domain.SaleItem, len(items))
	var total float64
	for i, it := range items {
		it.UnitPrice = prices[it.Code]
		stored[i] = it
		total += float64(it.Quantity) * it.UnitPrice * (1 - it.DiscountPercent/100)
	}
	total = round2(total * (1 - saleDiscount/100))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range stored {
		s.movements = append(s.movements, domain.StockMovement{
			Kind:      domain.MovementRemoval,
			Code:      it.Code,
			Quantity:  it.Quantity,
			Timestamp: now,
			User:      user,
		})
	}
	sale := domain.Sale{
		ID:              s.nextID,
		Timestamp:       now,
		Items:           stored,
		Total:           total,
		DiscountPercent: saleDiscount,
		User:            user,
	}
	s.nextID++
	s.sales = append(s.sales, sale)
	return sale, nil
}

// Receipt rebuilds a presentation receipt for a past sale. Per-item
// subtotals are recomputed and rounded; the total reuses the value stored
// at sale time.
func (s *Sales) Receipt(saleID int) (domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if saleID < 1 || saleID > len(s.sales) {
		return domain.Receipt{}, fmt.Errorf("sale %d: %w", saleID, ErrNotFound)
	}
	sale := s.sales[saleID-1]

	items := make([]domain.ReceiptItem, len(sale.Items))
	for i, it := range sale.Items {
		items[i] = domain.ReceiptItem{
			Code:            it.Code,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			Subtotal:        round2(float64(it.Quantity) * it.UnitPrice * (1 - it.DiscountPercent/100)),
		}
	}
	return domain.Receipt{
		SaleID:          sale.ID,
		Date:            sale.Timestamp,
		Cashier:         sale.User,
		Items:           items,
		DiscountPercent: sale.DiscountPercent,
		Total:           round2(sale.Total),
	}, nil
}

// Sales returns all recorded sales in creation order.
func (s *Sales) Sales() []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

// Movements returns the full stock movement journal in creation order.
func (s *Sales) Movements() []domain.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StockMovement, len(s.movements))
	copy(out, s.movements)
	return out
}

// AddStock increases stock and journals an addition movement.
func (s *Sales) AddStock(code string, amount int, user string) (domain.Product, error) {
	p, err := s.inv.IncreaseStock(code, amount)
	if err != nil {
		return domain.Product{}, err
	}
	s.record(domain.MovementAddition, code, amount, user)
	return p, nil
}

// RemoveStock decreases stock and journals a removal movement.
func (s *Sales) RemoveStock(code string, amount int, user string) (domain.Product, error) {
	p, err := s.inv.DecreaseStock(code, amount)
	if err != nil {
		return domain.Product{}, err
	}
	s.record(domain.MovementRemoval, code, amount, user)
	return p, nil
}

// SetStock overwrites stock and journals an update movement carrying the
// new quantity.
func (s *Sales) SetStock(code string, amount int, user string) (domain.Product, error) {
	p, err := s.inv.SetStock(code, amount)
	if err != nil {
		return domain.Product{}, err
	}
	s.record(domain.MovementUpdate, code, amount, user)
	return p, nil
}

func (s *Sales) record(kind domain.MovementKind, code string, quantity int, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, domain.StockMovement{
		Kind:      kind,
		Code:      code,
		Quantity:  quantity,
		Timestamp: time.Now().UTC(),
		User:      user,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
