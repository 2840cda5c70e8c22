package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/logger"
)

// Service owns one engine per logged-in user and reconciles all of
// them whenever the catalog cache refreshes.
type Service struct {
	catalog catalog.Service
	store   *Store
	cfg     config.CartConfig
	logger  *logger.Logger

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewService constructs the cart service and hooks it into catalog
// refresh notifications.
func NewService(catalogSvc catalog.Service, store *Store, cfg config.CartConfig, logg *logger.Logger) (*Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("cart logger required")
	}
	s := &Service{
		catalog: catalogSvc,
		store:   store,
		cfg:     cfg,
		logger:  logg,
		engines: make(map[string]*Engine),
	}
	catalogSvc.Subscribe(s.reconcileAll)
	return s, nil
}

// Engine returns the user's cart engine, hydrating it from the remote
// store on first use.
func (s *Service) Engine(ctx context.Context, userID string) (*Engine, error) {
	s.mu.Lock()
	engine, ok := s.engines[userID]
	if !ok {
		engine = newEngine(userID, s.cfg.MaxWeightKG, s.cfg.PersistDebounce, s.cfg.AdjustmentTTL, s.store.Save, s.logger)
		s.engines[userID] = engine
	}
	s.mu.Unlock()

	if !ok {
		items, err := s.loadItems(ctx, userID)
		if err != nil {
			s.mu.Lock()
			delete(s.engines, userID)
			s.mu.Unlock()
			return nil, err
		}
		engine.Hydrate(items)
	}
	return engine, nil
}

// Drop forgets the user's engine, e.g. on logout. A pending persist
// timer, if any, still fires.
func (s *Service) Drop(userID string) {
	s.mu.Lock()
	delete(s.engines, userID)
	s.mu.Unlock()
}

// loadItems resolves the persisted cart against live product records.
// Quantities are keyed by product name; names missing from the fetched
// products drop out, as do zero quantities.
func (s *Service) loadItems(ctx context.Context, userID string) ([]Item, error) {
	stored, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(stored.ProductIDs) == 0 || len(stored.Quantities) == 0 {
		return nil, nil
	}

	products, err := s.catalog.ProductsByIDs(ctx, stored.ProductIDs)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}

	quantityByID := make(map[string]float64, len(stored.Quantities))
	for _, entry := range stored.Quantities {
		for _, product := range products {
			if product.Name == entry.Name {
				quantityByID[product.ID] = entry.Quantity
				break
			}
		}
	}

	items := make([]Item, 0, len(products))
	for _, product := range products {
		if quantity := quantityByID[product.ID]; quantity > 0 {
			items = append(items, Item{Product: product, Quantity: quantity})
		}
	}
	return items, nil
}

func (s *Service) reconcileAll(products []catalog.Product) {
	s.mu.Lock()
	engines := make([]*Engine, 0, len(s.engines))
	for _, engine := range s.engines {
		engines = append(engines, engine)
	}
	s.mu.Unlock()

	for _, engine := range engines {
		engine.Reconcile(products)
	}
}
