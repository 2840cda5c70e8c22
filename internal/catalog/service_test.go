package catalog

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/internal/airtable"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type fakeTable struct {
	records      []airtable.Record
	listCalls    int
	batchUpdates [][]airtable.RecordUpdate
	updates      []airtable.RecordUpdate
}

func (f *fakeTable) List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error) {
	f.listCalls++
	return f.records, nil
}

func (f *fakeTable) Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error) {
	f.updates = append(f.updates, airtable.RecordUpdate{ID: id, Fields: fields})
	return &airtable.Record{ID: id, Fields: fields}, nil
}

func (f *fakeTable) BatchUpdate(ctx context.Context, updates []airtable.RecordUpdate) error {
	f.batchUpdates = append(f.batchUpdates, updates)
	return nil
}

func productRecord(id, name string, price, stock float64) airtable.Record {
	return airtable.Record{
		ID: id,
		Fields: airtable.Fields{
			"Название товара": name,
			"цена":            price,
			"кол-во":          stock,
		},
	}
}

func newTestService(t *testing.T, table *fakeTable) Service {
	t.Helper()
	repo, err := NewRepository(table)
	require.NoError(t, err)
	svc, err := NewService(repo, logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestProductsLoadsOnFirstUse(t *testing.T) {
	table := &fakeTable{records: []airtable.Record{
		productRecord("rec1", "Молоко", 89, 10),
		productRecord("rec2", "Хлеб", 45, 0),
	}}
	svc := newTestService(t, table)

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, 1, table.listCalls)

	// Cache serves the second call.
	_, err = svc.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.listCalls)
}

func TestRefreshNotifiesSubscribers(t *testing.T) {
	table := &fakeTable{records: []airtable.Record{productRecord("rec1", "Молоко", 89, 10)}}
	svc := newTestService(t, table)

	var got []Product
	svc.Subscribe(func(products []Product) { got = products })

	require.NoError(t, svc.Refresh(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, "rec1", got[0].ID)
}

func TestProductByIDNotFound(t *testing.T) {
	table := &fakeTable{}
	svc := newTestService(t, table)

	_, err := svc.ProductByID(context.Background(), "recMISSING")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDecrementStockUpdatesCache(t *testing.T) {
	table := &fakeTable{records: []airtable.Record{productRecord("rec1", "Молоко", 89, 10)}}
	svc := newTestService(t, table)
	require.NoError(t, svc.Refresh(context.Background()))

	err := svc.DecrementStock(context.Background(), []StockDecrement{
		{ProductID: "rec1", Quantity: 3, CurrentStock: 10},
	})
	require.NoError(t, err)

	require.Len(t, table.batchUpdates, 1)
	assert.InDelta(t, 7, table.batchUpdates[0][0].Fields["кол-во"].(float64), 1e-9)

	product, err := svc.ProductByID(context.Background(), "rec1")
	require.NoError(t, err)
	assert.InDelta(t, 7, product.AvailableStock, 1e-9)
}

func TestDecrementStockNeverGoesNegative(t *testing.T) {
	table := &fakeTable{records: []airtable.Record{productRecord("rec1", "Молоко", 89, 2)}}
	svc := newTestService(t, table)
	require.NoError(t, svc.Refresh(context.Background()))

	err := svc.DecrementStock(context.Background(), []StockDecrement{
		{ProductID: "rec1", Quantity: 5, CurrentStock: 2},
	})
	require.NoError(t, err)
	assert.Zero(t, table.batchUpdates[0][0].Fields["кол-во"].(float64))
}

func TestUpdateRating(t *testing.T) {
	table := &fakeTable{}
	svc := newTestService(t, table)
	require.NoError(t, svc.UpdateRating(context.Background(), "rec1", 4.3))
	require.Len(t, table.updates, 1)
	assert.InDelta(t, 4.3, table.updates[0].Fields["оценка товара"].(float64), 1e-9)
}
