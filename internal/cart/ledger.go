package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/shopspring/decimal"
)

var (
	ErrOutOfStock   = errors.New("insufficient stock")
	ErrLineNotFound = errors.New("cart line not found")
)

// StockError reports a rejected add or quantity change. It matches ErrOutOfStock.
type StockError struct {
	ProductID int
	Name      string
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d left", e.ProductID, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrOutOfStock }

// Line is one product in the cart. Product is the snapshot last observed,
// its Stock is the ceiling for Quantity.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (l Line) Amount() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Ledger is the in-memory cart of one cashier session. Lines keep insertion
// order and are unique per product id.
type Ledger struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Ledger { return &Ledger{} }

// Add puts one unit of p in the cart, or bumps the existing line by one. A
// rejected add leaves the cart untouched; clamping is ObserveStock's job.
func (l *Ledger) Add(p catalog.Product) (Line, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(p.ID)
	if p.Stock <= 0 {
		return Line{}, &StockError{ProductID: p.ID, Name: p.Name, Available: 0}
	}
	if i >= 0 {
		line := &l.lines[i]
		if line.Quantity >= p.Stock {
			return *line, &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock}
		}
		line.Product = p
		line.Quantity++
		return *line, nil
	}
	line := Line{Product: p, Quantity: 1}
	l.lines = append(l.lines, line)
	return line, nil
}

// SetQuantity replaces a line's quantity. Zero or below removes the line; a
// quantity above the observed stock is rejected without partial update.
func (l *Ledger) SetQuantity(productID, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(productID)
	if qty <= 0 {
		if i >= 0 {
			l.removeAt(i)
		}
		return nil
	}
	if i < 0 {
		return ErrLineNotFound
	}
	p := l.lines[i].Product
	if qty > p.Stock {
		return &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock}
	}
	l.lines[i].Quantity = qty
	return nil
}

func (l *Ledger) Remove(productID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(productID); i >= 0 {
		l.removeAt(i)
	}
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	l.lines = nil
	l.mu.Unlock()
}

// ObserveStock refreshes product snapshots after a catalog fetch. Lines above
// the new stock are clamped down; lines whose product vanished or sold out are
// dropped. It returns the ids of adjusted lines.
func (l *Ledger) ObserveStock(products []catalog.Product) []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var adjusted []int
	kept := l.lines[:0]
	for _, line := range l.lines {
		p, ok := catalog.ByID(products, line.Product.ID)
		if !ok || p.Stock <= 0 {
			adjusted = append(adjusted, line.Product.ID)
			continue
		}
		line.Product = p
		if line.Quantity > p.Stock {
			line.Quantity = p.Stock
			adjusted = append(adjusted, p.ID)
		}
		kept = append(kept, line)
	}
	l.lines = kept
	return adjusted
}

func (l *Ledger) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func (l *Ledger) Subtotal() decimal.Decimal { return Compute(l.Lines()).Subtotal }
func (l *Ledger) Tax() decimal.Decimal      { return Compute(l.Lines()).Tax }
func (l *Ledger) Total() decimal.Decimal    { return Compute(l.Lines()).Total }

func (l *Ledger) ItemCount() int {
	n := 0
	for _, line := range l.Lines() {
		n += line.Quantity
	}
	return n
}

func (l *Ledger) index(productID int) int {
	for i := range l.lines {
		if l.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (l *Ledger) removeAt(i int) {
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
}
