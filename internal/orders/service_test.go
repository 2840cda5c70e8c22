package orders

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/pkg/config"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type fakeOrderTable struct {
	records   map[string]*airtable.Record
	listFn    func(opts airtable.ListOptions) ([]airtable.Record, error)
	created   []airtable.Fields
	updates   map[string][]airtable.Fields
	createdID string
}

func newFakeOrderTable() *fakeOrderTable {
	return &fakeOrderTable{
		records:   make(map[string]*airtable.Record),
		updates:   make(map[string][]airtable.Fields),
		createdID: "recNEW",
	}
}

func (f *fakeOrderTable) List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error) {
	if f.listFn != nil {
		return f.listFn(opts)
	}
	return nil, nil
}

func (f *fakeOrderTable) Get(ctx context.Context, id string) (*airtable.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such order")
	}
	return record, nil
}

func (f *fakeOrderTable) CreateRecords(ctx context.Context, fieldsList []airtable.Fields) ([]airtable.Record, error) {
	f.created = append(f.created, fieldsList...)
	records := make([]airtable.Record, 0, len(fieldsList))
	for _, fields := range fieldsList {
		records = append(records, airtable.Record{ID: f.createdID, Fields: fields})
	}
	return records, nil
}

func (f *fakeOrderTable) Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error) {
	f.updates[id] = append(f.updates[id], fields)
	if record, ok := f.records[id]; ok {
		for k, v := range fields {
			record.Fields[k] = v
		}
	}
	return &airtable.Record{ID: id, Fields: fields}, nil
}

type fakeCatalogReader struct {
	products   []catalog.Product
	decrements []catalog.StockDecrement
}

func (f *fakeCatalogReader) ProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
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

func (f *fakeCatalogReader) DecrementStock(ctx context.Context, decrements []catalog.StockDecrement) error {
	f.decrements = append(f.decrements, decrements...)
	return nil
}

type fakeCouriers struct {
	id    string
	found bool
	err   error
}

func (f *fakeCouriers) FindAvailable(ctx context.Context) (string, bool, error) {
	return f.id, f.found, f.err
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) NotifyDelivered(ctx context.Context, customerID string, total float64, createdAt time.Time) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %.0f", customerID, total))
	return nil
}

func newOrdersService(t *testing.T, table *fakeOrderTable, cat *fakeCatalogReader, couriers *fakeCouriers, notifier deliveredNotifier) Service {
	t.Helper()
	repo, err := NewRepository(table)
	require.NoError(t, err)
	svc, err := NewService(repo, cat, couriers, notifier, config.CheckoutConfig{
		DeliveryFee:       99,
		DefaultETAMinutes: 15,
		DelayMinutes:      15,
	}, logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func cartItem(id, name string, price, stock, qty float64) cart.Item {
	return cart.Item{
		Product: catalog.Product{
			ID:             id,
			Name:           name,
			Price:          price,
			AvailableStock: stock,
			WeightMode:     catalog.WeightModePiece,
		},
		Quantity: qty,
	}
}

func TestCheckoutConfirmedWithCourier(t *testing.T) {
	table := newFakeOrderTable()
	cat := &fakeCatalogReader{}
	svc := newOrdersService(t, table, cat, &fakeCouriers{id: "empl-1", found: true}, nil)

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:  "user-1",
		Address: "ул. Ленина, 1",
		Items: []cart.Item{
			cartItem("p1", "Молоко", 89, 10, 2),
		},
		CartTotal: 178,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, "Заказ принят!", result.Message)

	require.Len(t, table.created, 1)
	fields := table.created[0]
	assert.Equal(t, string(StatusAccepted), fields["статус"])
	assert.Equal(t, []string{"empl-1"}, fields["работники"])
	assert.Equal(t, "Молоко - 2 шт", fields["колво товаров"])
	assert.Equal(t, 15, fields["время на доставку"])
	assert.InDelta(t, 277, fields["сумма заказа"].(float64), 1e-9)
	number, _ := fields["номер заказа"].(string)
	assert.True(t, strings.HasPrefix(number, "ED-"))
	assert.Len(t, number, len("ED-")+6)

	require.Len(t, cat.decrements, 1)
	assert.InDelta(t, 2, cat.decrements[0].Quantity, 1e-9)
	assert.InDelta(t, 10, cat.decrements[0].CurrentStock, 1e-9)
}

func TestCheckoutQueuedWithoutCourier(t *testing.T) {
	table := newFakeOrderTable()
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    "user-1",
		Address:   "адрес",
		Items:     []cart.Item{cartItem("p1", "Молоко", 89, 10, 1)},
		CartTotal: 89,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, result.Outcome)
	assert.Equal(t, "Все курьеры заняты. Ваш заказ в очереди!", result.Message)
	assert.Equal(t, []string{}, table.created[0]["работники"])
}

func TestCheckoutCourierLookupFailureStillQueues(t *testing.T) {
	table := newFakeOrderTable()
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{err: fmt.Errorf("boom")}, nil)

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    "user-1",
		Address:   "адрес",
		Items:     []cart.Item{cartItem("p1", "Молоко", 89, 10, 1)},
		CartTotal: 89,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, result.Outcome)
}

func TestCheckoutRejectsSecondActiveOrder(t *testing.T) {
	table := newFakeOrderTable()
	table.listFn = func(opts airtable.ListOptions) ([]airtable.Record, error) {
		return []airtable.Record{{
			ID:     "recACTIVE",
			Fields: airtable.Fields{"статус": string(StatusDelivering)},
		}}, nil
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    "user-1",
		Items:     []cart.Item{cartItem("p1", "Молоко", 89, 10, 1)},
		CartTotal: 89,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCheckoutSkipsUnderStockedPositions(t *testing.T) {
	table := newFakeOrderTable()
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{found: true, id: "e1"}, nil)

	// 5 requested but only 3 left: position is skipped, not shrunk.
	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:  "user-1",
		Address: "адрес",
		Items: []cart.Item{
			cartItem("p1", "Молоко", 89, 3, 5),
			cartItem("p2", "Хлеб", 45, 10, 1),
		},
		CartTotal: 312,
	})
	require.NoError(t, err)
	assert.Equal(t, "Хлеб - 1 шт", table.created[0]["колво товаров"])
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
}

func TestCheckoutAllSoldOut(t *testing.T) {
	svc := newOrdersService(t, newFakeOrderTable(), &fakeCatalogReader{}, &fakeCouriers{}, nil)
	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID: "user-1",
		Items:  []cart.Item{cartItem("p1", "Молоко", 89, 0, 2)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "закончились")
}

func TestActiveOrderPrefersNonTerminal(t *testing.T) {
	table := newFakeOrderTable()
	table.listFn = func(opts airtable.ListOptions) ([]airtable.Record, error) {
		return []airtable.Record{
			{ID: "recDONE", Fields: airtable.Fields{"статус": string(StatusDelivered)}},
			{ID: "recLIVE", Fields: airtable.Fields{"статус": string(StatusPicking)}},
		}, nil
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	order, err := svc.ActiveOrderForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "recLIVE", order.ID)
}

func TestActiveOrderFallsBackToNewestDelivered(t *testing.T) {
	table := newFakeOrderTable()
	table.listFn = func(opts airtable.ListOptions) ([]airtable.Record, error) {
		return []airtable.Record{
			{ID: "recCANCEL", Fields: airtable.Fields{"статус": string(StatusCancelled)}},
			{ID: "recDONE", Fields: airtable.Fields{"статус": string(StatusDelivered)}},
		}, nil
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	order, err := svc.ActiveOrderForUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "recDONE", order.ID)
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	table := newFakeOrderTable()
	table.records["rec1"] = &airtable.Record{
		ID:     "rec1",
		Fields: airtable.Fields{"статус": string(StatusAccepted)},
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	err := svc.UpdateStatus(context.Background(), "rec1", StatusDelivered)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.UpdateStatus(context.Background(), "rec1", StatusPicking))
	assert.Equal(t, string(StatusPicking), table.records["rec1"].Fields.String("статус"))
}

func TestUpdateStatusCancelClearsCouriers(t *testing.T) {
	table := newFakeOrderTable()
	table.records["rec1"] = &airtable.Record{
		ID:     "rec1",
		Fields: airtable.Fields{"статус": string(StatusDelivering), "работники": []any{"empl-1"}},
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	require.NoError(t, svc.UpdateStatus(context.Background(), "rec1", StatusCancelled))
	last := table.updates["rec1"][len(table.updates["rec1"])-1]
	assert.Equal(t, []string{}, last["работники"])
}

func TestUpdateStatusDeliveredNotifies(t *testing.T) {
	table := newFakeOrderTable()
	table.records["rec1"] = &airtable.Record{
		ID: "rec1",
		Fields: airtable.Fields{
			"статус":       string(StatusDelivering),
			"Table 1":      []any{"user-7"},
			"сумма заказа": float64(524),
		},
	}
	notifier := &fakeNotifier{}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, notifier)

	require.NoError(t, svc.UpdateStatus(context.Background(), "rec1", StatusDelivered))
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "user-7 524", notifier.calls[0])
}

func TestDelayExtendsETAWithoutStatusChange(t *testing.T) {
	table := newFakeOrderTable()
	table.records["rec1"] = &airtable.Record{
		ID: "rec1",
		Fields: airtable.Fields{
			"статус":           string(StatusDelivering),
			"время на доставку": float64(15),
		},
	}
	svc := newOrdersService(t, table, &fakeCatalogReader{}, &fakeCouriers{}, nil)

	require.NoError(t, svc.Delay(context.Background(), "rec1"))
	last := table.updates["rec1"][len(table.updates["rec1"])-1]
	assert.Equal(t, 30, last["время на доставку"])
	_, hasStatus := last["статус"]
	assert.False(t, hasStatus)
}

func TestClaimQueuedOrderAssignsOldest(t *testing.T) {
	table := newFakeOrderTable()
	table.listFn = func(opts airtable.ListOptions) ([]airtable.Record, error) {
		if opts.MaxRecords == 1 {
			return []airtable.Record{{
				ID:     "recQ",
				Fields: airtable.Fields{"статус": string(StatusAccepted), "колво товаров": "Молоко - 1 шт"},
			}}, nil
		}
		return nil, nil
	}
	table.records["recQ"] = &airtable.Record{
		ID: "recQ",
		Fields: airtable.Fields{
			"статус":        string(StatusAccepted),
			"колво товаров": "Молоко - 1 шт",
			"составляющие":  []any{"p1"},
			"Table 1":       []any{"user-1"},
		},
	}
	cat := &fakeCatalogReader{products: []catalog.Product{{ID: "p1", Name: "Молоко", Price: 89, AvailableStock: 5}}}
	svc := newOrdersService(t, table, cat, &fakeCouriers{}, nil)

	details, err := svc.ClaimQueuedOrder(context.Background(), "empl-1")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, []string{"empl-1"}, table.updates["recQ"][0]["работники"])
	require.Len(t, details.Products, 1)
	assert.InDelta(t, 1, details.Products[0].Quantity, 1e-9)
	assert.Equal(t, "user-1", details.CustomerID)
}

func TestClaimQueuedOrderEmptyQueue(t *testing.T) {
	svc := newOrdersService(t, newFakeOrderTable(), &fakeCatalogReader{}, &fakeCouriers{}, nil)
	details, err := svc.ClaimQueuedOrder(context.Background(), "empl-1")
	require.NoError(t, err)
	assert.Nil(t, details)
}
