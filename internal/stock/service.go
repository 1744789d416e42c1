package stock

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/ariefcatur/telava-pos/internal/notify"
)

var (
	ErrNoProduct       = errors.New("product must be selected")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
)

type Backend interface {
	StockIn(ctx context.Context, productID, qty int) error
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// Intake records incoming stock ("stok masuk").
type Intake struct {
	Backend Backend
	Notices notify.Notifier
}

// Receive validates locally, posts the movement and returns the refreshed
// product list so callers can update stock figures.
func (s *Intake) Receive(ctx context.Context, productID, qty int) ([]catalog.Product, error) {
	if productID <= 0 {
		s.notify(notify.LevelWarning, "Pilih produk terlebih dahulu")
		return nil, ErrNoProduct
	}
	if qty <= 0 {
		s.notify(notify.LevelWarning, "Jumlah stok harus lebih dari 0")
		return nil, ErrInvalidQuantity
	}
	if err := s.Backend.StockIn(ctx, productID, qty); err != nil {
		log.Printf("stock: intake product=%d qty=%d: %v", productID, qty, err)
		s.notify(notify.LevelError, "Gagal menambah stok")
		return nil, fmt.Errorf("stock in: %w", err)
	}
	s.notify(notify.LevelSuccess, fmt.Sprintf("Stok berhasil ditambahkan (+%d)", qty))

	products, err := s.Backend.ListProducts(ctx)
	if err != nil {
		// the movement is stored; a stale list is not an intake failure
		log.Printf("stock: refresh after intake: %v", err)
		return nil, nil
	}
	return products, nil
}

func (s *Intake) notify(level notify.Level, msg string) {
	if s.Notices == nil {
		return
	}
	title := "Stok"
	if level == notify.LevelError {
		title = "Error"
	}
	s.Notices.Notify(notify.Notice{Level: level, Title: title, Message: msg})
}
