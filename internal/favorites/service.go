// Package favorites keeps each user's starred products. The set lives in
// the session store rather than the base, since it is per-device state
// the storefront reads on every render.
package favorites

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/pkg/errors"
)

type favoritesStore interface {
	AddMember(ctx context.Context, key string, members ...any) error
	RemoveMember(ctx context.Context, key string, members ...any) error
	Members(ctx context.Context, key string) ([]string, error)
	HasMember(ctx context.Context, key string, member any) (bool, error)
	FavoritesKey(userID string) string
}

type productLister interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
}

type Service interface {
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
	IsFavorite(ctx context.Context, userID, productID string) (bool, error)
	// List resolves the starred IDs against the catalog. Products that
	// left the catalog are silently dropped.
	List(ctx context.Context, userID string) ([]catalog.Product, error)
	IDs(ctx context.Context, userID string) ([]string, error)
}

type service struct {
	store   favoritesStore
	catalog productLister
}

func NewService(store favoritesStore, catalogSvc productLister) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("favorites store required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("favorites product lister required")
	}
	return &service{store: store, catalog: catalogSvc}, nil
}

func (s *service) Add(ctx context.Context, userID, productID string) error {
	if productID == "" {
		return errors.New(errors.CodeValidation, "product id is required")
	}
	if err := s.store.AddMember(ctx, s.store.FavoritesKey(userID), productID); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "adding favorite")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, userID, productID string) error {
	if err := s.store.RemoveMember(ctx, s.store.FavoritesKey(userID), productID); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "removing favorite")
	}
	return nil
}

func (s *service) IsFavorite(ctx context.Context, userID, productID string) (bool, error) {
	ok, err := s.store.HasMember(ctx, s.store.FavoritesKey(userID), productID)
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "checking favorite")
	}
	return ok, nil
}

func (s *service) IDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.Members(ctx, s.store.FavoritesKey(userID))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing favorites")
	}
	return ids, nil
}

func (s *service) List(ctx context.Context, userID string) ([]catalog.Product, error) {
	ids, err := s.IDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	return s.catalog.ProductsByIDs(ctx, ids)
}
