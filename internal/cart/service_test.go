package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/logger"
)

type fakeCatalog struct {
	products   []catalog.Product
	subscriber catalog.Subscriber
}

func (f *fakeCatalog) Refresh(ctx context.Context) error { return nil }

func (f *fakeCatalog) Products(ctx context.Context) ([]catalog.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) ProductByID(ctx context.Context, id string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, nil
}

func (f *fakeCatalog) ProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeCatalog) Subscribe(fn catalog.Subscriber) { f.subscriber = fn }

func (f *fakeCatalog) DecrementStock(ctx context.Context, decrements []catalog.StockDecrement) error {
	return nil
}

func (f *fakeCatalog) UpdateRating(ctx context.Context, productID string, rating float64) error {
	return nil
}

type fakeUserTable struct {
	record  *airtable.Record
	updates []airtable.Fields
}

func (f *fakeUserTable) Get(ctx context.Context, id string) (*airtable.Record, error) {
	return f.record, nil
}

func (f *fakeUserTable) Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error) {
	f.updates = append(f.updates, fields)
	return &airtable.Record{ID: id, Fields: fields}, nil
}

func newCartService(t *testing.T, cat catalog.Service, users userTable) *Service {
	t.Helper()
	store, err := NewStore(users)
	require.NoError(t, err)
	svc, err := NewService(cat, store, config.CartConfig{
		MaxWeightKG:     10,
		PersistDebounce: time.Millisecond,
		AdjustmentTTL:   4 * time.Second,
	}, logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestEngineHydratesFromStoredCart(t *testing.T) {
	cat := &fakeCatalog{products: []catalog.Product{
		{ID: "p1", Name: "Молоко", Price: 89, AvailableStock: 10, WeightMode: catalog.WeightModePiece},
		{ID: "p2", Name: "Сыр", Price: 650, AvailableStock: 5, WeightMode: catalog.WeightModeLoose, PricePerKG: 650},
	}}
	users := &fakeUserTable{record: &airtable.Record{
		ID: "user-1",
		Fields: airtable.Fields{
			"корзина":       []any{"p1", "p2"},
			"колво товаров": "Молоко - 2 шт, Сыр - 0.5 кг",
		},
	}}
	svc := newCartService(t, cat, users)

	engine, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)
	items := engine.Items()
	require.Len(t, items, 2)
	assert.InDelta(t, 2, items[0].Quantity, 1e-9)
	assert.InDelta(t, 0.5, items[1].Quantity, 1e-9)

	// Second call reuses the hydrated engine.
	again, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Same(t, engine, again)
}

func TestEngineEmptyStoredCart(t *testing.T) {
	cat := &fakeCatalog{}
	users := &fakeUserTable{record: &airtable.Record{ID: "user-1", Fields: airtable.Fields{}}}
	svc := newCartService(t, cat, users)

	engine, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, engine.Items())
}

func TestCatalogRefreshReconcilesEngines(t *testing.T) {
	cat := &fakeCatalog{products: []catalog.Product{
		{ID: "p1", Name: "Молоко", Price: 89, AvailableStock: 10, WeightMode: catalog.WeightModePiece},
	}}
	users := &fakeUserTable{record: &airtable.Record{
		ID: "user-1",
		Fields: airtable.Fields{
			"корзина":       []any{"p1"},
			"колво товаров": "Молоко - 5 шт",
		},
	}}
	svc := newCartService(t, cat, users)
	require.NotNil(t, cat.subscriber)

	engine, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)

	// Stock dropped to 2 on refresh: quantity clamps across all engines.
	cat.subscriber([]catalog.Product{
		{ID: "p1", Name: "Молоко", Price: 89, AvailableStock: 2, WeightMode: catalog.WeightModePiece},
	})
	assert.InDelta(t, 2, engine.Items()[0].Quantity, 1e-9)
	require.Len(t, engine.Adjustments(), 1)
}

func TestDropForgetsEngine(t *testing.T) {
	cat := &fakeCatalog{}
	users := &fakeUserTable{record: &airtable.Record{ID: "user-1", Fields: airtable.Fields{}}}
	svc := newCartService(t, cat, users)

	first, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)
	svc.Drop("user-1")
	second, err := svc.Engine(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
