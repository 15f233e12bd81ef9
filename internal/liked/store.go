// Package liked keeps the products the current user has favourited, for
// the lifetime of the process.
package liked

import (
	"slices"
	"sync"

	"github.com/msomdec/spacebook/internal/domain"
)

// Store is the liked-products set plus the currently viewed product.
type Store struct {
	mu       sync.RWMutex
	products []domain.LikedProduct
	selected *domain.LikedProduct
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// ToggleLike removes p if a product with the same ID is present and appends
// it otherwise. It reports whether p is liked afterwards.
func (s *Store) ToggleLike(p domain.LikedProduct) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(p.ID)
	if i >= 0 {
		s.products = slices.Delete(s.products, i, i+1)
		return false
	}
	s.products = append(s.products, cloneProduct(p))
	return true
}

// IsLiked reports whether a product with id is in the set.
func (s *Store) IsLiked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) >= 0
}

// Liked returns the liked products in insertion order.
func (s *Store) Liked() []domain.LikedProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.products == nil {
		return nil
	}
	out := make([]domain.LikedProduct, len(s.products))
	for i, p := range s.products {
		out[i] = cloneProduct(p)
	}
	return out
}

// SetSelectedProduct overwrites the currently viewed product.
func (s *Store) SetSelectedProduct(p domain.LikedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = cloneProduct(p)
	s.selected = &p
}

// SelectedProduct returns the currently viewed product, if any.
func (s *Store) SelectedProduct() (domain.LikedProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return domain.LikedProduct{}, false
	}
	return cloneProduct(*s.selected), true
}

// Clear drops all user-scoped state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.selected = nil
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.products, func(p domain.LikedProduct) bool { return p.ID == id })
}

// cloneProduct copies p including the values behind its optional fields.
func cloneProduct(p domain.LikedProduct) domain.LikedProduct {
	p.Rating = clonePtr(p.Rating)
	p.ReviewCount = clonePtr(p.ReviewCount)
	p.PricePerAdult = clonePtr(p.PricePerAdult)
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
