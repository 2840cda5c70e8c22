package employees

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/internal/orders"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type fakeEmployeeTable struct {
	records map[string]*airtable.Record
	byList  []airtable.Record
	filters []string
	updates map[string][]airtable.Fields
}

func newFakeEmployeeTable() *fakeEmployeeTable {
	return &fakeEmployeeTable{
		records: make(map[string]*airtable.Record),
		updates: make(map[string][]airtable.Fields),
	}
}

func (f *fakeEmployeeTable) List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error) {
	f.filters = append(f.filters, opts.Filter)
	return f.byList, nil
}

func (f *fakeEmployeeTable) Get(ctx context.Context, id string) (*airtable.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such employee")
	}
	return record, nil
}

func (f *fakeEmployeeTable) Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error) {
	f.updates[id] = append(f.updates[id], fields)
	return &airtable.Record{ID: id, Fields: fields}, nil
}

type fakeOrderReader struct {
	orders  []orders.Order
	details map[string]*orders.FullDetails
}

func (f *fakeOrderReader) ListByIDs(ctx context.Context, ids []string) ([]orders.Order, error) {
	return f.orders, nil
}

func (f *fakeOrderReader) FullDetails(ctx context.Context, orderID string) (*orders.FullDetails, error) {
	return f.details[orderID], nil
}

type fakeBusyLister struct {
	busy map[string]struct{}
}

func (f *fakeBusyLister) BusyEmployeeIDs(ctx context.Context) (map[string]struct{}, error) {
	return f.busy, nil
}

func newEmployeesService(t *testing.T, table *fakeEmployeeTable, reader *fakeOrderReader, busy *fakeBusyLister) Service {
	t.Helper()
	repo, err := NewRepository(table)
	require.NoError(t, err)
	svc, err := NewService(repo, reader, busy, logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestFindByPassword(t *testing.T) {
	table := newFakeEmployeeTable()
	table.byList = []airtable.Record{{
		ID: "empl-1",
		Fields: airtable.Fields{
			"имя":    "Иван",
			"почта":  "ivan@dostavka.ru",
			"статус": StatusOnline,
		},
	}}
	svc := newEmployeesService(t, table, &fakeOrderReader{}, &fakeBusyLister{})

	employee, err := svc.FindByPassword(context.Background(), "secret")
	require.NoError(t, err)
	require.NotNil(t, employee)
	assert.Equal(t, "Иван", employee.Name)
	assert.True(t, employee.Online())
	assert.Equal(t, `{пароль}="secret"`, table.filters[0])

	table.byList = nil
	missing, err := svc.FindByPassword(context.Background(), "wrong")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetStatusValidatesValue(t *testing.T) {
	table := newFakeEmployeeTable()
	svc := newEmployeesService(t, table, &fakeOrderReader{}, &fakeBusyLister{})

	require.NoError(t, svc.SetStatus(context.Background(), "empl-1", StatusOffline))
	assert.Equal(t, StatusOffline, table.updates["empl-1"][0]["статус"])

	err := svc.SetStatus(context.Background(), "empl-1", "в отпуске")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAssignedOrderPicksActiveAmongLinks(t *testing.T) {
	table := newFakeEmployeeTable()
	table.records["empl-1"] = &airtable.Record{
		ID:     "empl-1",
		Fields: airtable.Fields{"заказ": []any{"recOLD", "recLIVE"}},
	}
	reader := &fakeOrderReader{
		orders: []orders.Order{
			{ID: "recOLD", Status: orders.StatusDelivered},
			{ID: "recLIVE", Status: orders.StatusDelivering},
		},
		details: map[string]*orders.FullDetails{
			"recLIVE": {Order: orders.Order{ID: "recLIVE"}},
		},
	}
	svc := newEmployeesService(t, table, reader, &fakeBusyLister{})

	details, err := svc.AssignedOrder(context.Background(), "empl-1")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "recLIVE", details.ID)
}

func TestAssignedOrderNoLinks(t *testing.T) {
	table := newFakeEmployeeTable()
	table.records["empl-1"] = &airtable.Record{ID: "empl-1", Fields: airtable.Fields{}}
	svc := newEmployeesService(t, table, &fakeOrderReader{}, &fakeBusyLister{})

	details, err := svc.AssignedOrder(context.Background(), "empl-1")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestFindAvailableSkipsBusyCouriers(t *testing.T) {
	table := newFakeEmployeeTable()
	table.byList = []airtable.Record{
		{ID: "empl-1", Fields: airtable.Fields{"статус": StatusOnline}},
		{ID: "empl-2", Fields: airtable.Fields{"статус": StatusOnline}},
	}
	busy := &fakeBusyLister{busy: map[string]struct{}{"empl-1": {}}}
	svc := newEmployeesService(t, table, &fakeOrderReader{}, busy)

	id, found, err := svc.FindAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "empl-2", id)
}

func TestFindAvailableNoFreeCourier(t *testing.T) {
	table := newFakeEmployeeTable()
	table.byList = []airtable.Record{
		{ID: "empl-1", Fields: airtable.Fields{"статус": StatusOnline}},
	}
	busy := &fakeBusyLister{busy: map[string]struct{}{"empl-1": {}}}
	svc := newEmployeesService(t, table, &fakeOrderReader{}, busy)

	_, found, err := svc.FindAvailable(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}
