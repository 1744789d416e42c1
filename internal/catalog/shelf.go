package catalog

import (
	"sync"
	"time"
)

// Shelf holds the last fetched products and categories for the terminal.
type Shelf struct {
	mu         sync.RWMutex
	products   []Product
	categories []Category
	fetchedAt  time.Time
}

func (s *Shelf) SetProducts(ps []Product) {
	s.mu.Lock()
	s.products = ps
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}

func (s *Shelf) SetCategories(cs []Category) {
	s.mu.Lock()
	s.categories = cs
	s.mu.Unlock()
}

func (s *Shelf) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...)
}

func (s *Shelf) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category(nil), s.categories...)
}

// Product looks id up in the last fetch.
func (s *Shelf) Product(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ByID(s.products, id)
}

func (s *Shelf) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}
