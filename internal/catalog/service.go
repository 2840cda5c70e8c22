package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// Subscriber receives the full product list after every applied refresh.
type Subscriber func(products []Product)

// Service exposes the cached catalog.
type Service interface {
	// Refresh reloads the catalog from the remote store. Concurrent
	// refreshes may finish out of order; only the newest result is kept.
	Refresh(ctx context.Context) error
	Products(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
	// ProductsByIDs reads the remote store directly, bypassing the
	// cache, for flows that need fresh stock.
	ProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Subscribe(fn Subscriber)
	DecrementStock(ctx context.Context, decrements []StockDecrement) error
	UpdateRating(ctx context.Context, productID string, rating float64) error
}

type service struct {
	repo   *Repository
	logger *logger.Logger

	mu          sync.RWMutex
	products    []Product
	byID        map[string]Product
	loaded      bool
	nextSeq     uint64
	appliedSeq  uint64
	subscribers []Subscriber
}

// NewService constructs the catalog service.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("catalog logger required")
	}
	return &service{
		repo:   repo,
		logger: logg,
		byID:   make(map[string]Product),
	}, nil
}

func (s *service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if seq <= s.appliedSeq {
		// A refresh that started later already landed.
		s.mu.Unlock()
		return nil
	}
	s.appliedSeq = seq
	s.products = products
	byID := make(map[string]Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	s.byID = byID
	s.loaded = true
	subscribers := append([]Subscriber(nil), s.subscribers...)
	s.mu.Unlock()

	snapshot := append([]Product(nil), products...)
	for _, fn := range subscribers {
		fn(snapshot)
	}
	return nil
}

func (s *service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *service) Products(ctx context.Context) ([]Product, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...), nil
}

func (s *service) ProductByID(ctx context.Context, id string) (Product, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	product, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	return s.repo.ByIDs(ctx, ids)
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var categories []string
	for _, product := range products {
		if _, ok := seen[product.Category]; ok {
			continue
		}
		seen[product.Category] = struct{}{}
		categories = append(categories, product.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *service) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *service) DecrementStock(ctx context.Context, decrements []StockDecrement) error {
	if err := s.repo.DecrementStock(ctx, decrements); err != nil {
		return err
	}
	// Keep the cache close to reality until the next refresh lands.
	s.mu.Lock()
	for _, dec := range decrements {
		if product, ok := s.byID[dec.ProductID]; ok {
			product.AvailableStock -= dec.Quantity
			if product.AvailableStock < 0 {
				product.AvailableStock = 0
			}
			s.byID[dec.ProductID] = product
			for i := range s.products {
				if s.products[i].ID == dec.ProductID {
					s.products[i] = product
					break
				}
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *service) UpdateRating(ctx context.Context, productID string, rating float64) error {
	return s.repo.UpdateRating(ctx, productID, rating)
}
