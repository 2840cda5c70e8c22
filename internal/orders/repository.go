package orders

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
)

type orderTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Get(ctx context.Context, id string) (*airtable.Record, error)
	CreateRecords(ctx context.Context, fieldsList []airtable.Fields) ([]airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
}

// Repository reads and writes the orders table.
type Repository struct {
	table orderTable
}

// NewRepository constructs an orders repository.
func NewRepository(table orderTable) (*Repository, error) {
	if table == nil {
		return nil, fmt.Errorf("orders table required")
	}
	return &Repository{table: table}, nil
}

// CreateInput is the full set of fields for a new order row.
type CreateInput struct {
	Number      string
	CustomerID  string
	ProductIDs  []string
	Quantities  string
	TotalAmount float64
	ETAMinutes  int
	Address     string
	EmployeeIDs []string
}

// Create inserts the order. The creation date is a computed column and
// is never written.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Order, error) {
	employees := input.EmployeeIDs
	if employees == nil {
		employees = []string{}
	}
	records, err := r.table.CreateRecords(ctx, []airtable.Fields{{
		fieldNumber:     input.Number,
		fieldCustomer:   []string{input.CustomerID},
		fieldProducts:   input.ProductIDs,
		fieldQuantities: input.Quantities,
		fieldTotal:      input.TotalAmount,
		fieldETA:        input.ETAMinutes,
		fieldStatus:     string(StatusAccepted),
		fieldAddress:    input.Address,
		fieldEmployees:  employees,
	}})
	if err != nil {
		return Order{}, err
	}
	if len(records) == 0 {
		return Order{}, fmt.Errorf("order create returned no records")
	}
	return orderFromRecord(records[0]), nil
}

// Get fetches one order row.
func (r *Repository) Get(ctx context.Context, id string) (*airtable.Record, error) {
	return r.table.Get(ctx, id)
}

// ListForUser returns all of the user's orders, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter:    airtable.FindInJoined(userID, fieldCustomer),
		SortField: fieldCreated,
		SortDesc:  true,
	})
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, orderFromRecord(record))
	}
	return orders, nil
}

// ListByIDs fetches the given orders.
func (r *Repository) ListByIDs(ctx context.Context, ids []string) ([]Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	exprs := make([]string, 0, len(ids))
	for _, id := range ids {
		exprs = append(exprs, airtable.RecordIDEq(id))
	}
	records, err := r.table.List(ctx, airtable.ListOptions{Filter: airtable.Or(exprs...)})
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, orderFromRecord(record))
	}
	return orders, nil
}

// BusyEmployeeIDs collects every employee linked to a non-terminal
// order. Only the employees column is fetched.
func (r *Repository) BusyEmployeeIDs(ctx context.Context) (map[string]struct{}, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter: airtable.And(
			airtable.Not(airtable.Eq(fieldStatus, string(StatusDelivered))),
			airtable.Not(airtable.Eq(fieldStatus, string(StatusCancelled))),
		),
		Fields: []string{fieldEmployees},
	})
	if err != nil {
		return nil, err
	}
	busy := make(map[string]struct{})
	for _, record := range records {
		for _, id := range record.Fields.StringSlice(fieldEmployees) {
			busy[id] = struct{}{}
		}
	}
	return busy, nil
}

// OldestQueued returns the oldest accepted order with no courier, or
// nil when the queue is empty.
func (r *Repository) OldestQueued(ctx context.Context) (*Order, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter: airtable.And(
			airtable.Eq(fieldStatus, string(StatusAccepted)),
			airtable.Not(airtable.HasField(fieldEmployees)),
		),
		SortField:  fieldCreated,
		MaxRecords: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	order := orderFromRecord(records[0])
	return &order, nil
}

// AssignEmployee links the courier to the order.
func (r *Repository) AssignEmployee(ctx context.Context, orderID, employeeID string) error {
	_, err := r.table.Update(ctx, orderID, airtable.Fields{fieldEmployees: []string{employeeID}})
	return err
}

// UpdateStatus patches the status and optional companions: a new
// delivery estimate, and clearing the courier links on terminal states.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status Status, etaMinutes int) error {
	fields := airtable.Fields{fieldStatus: string(status)}
	if etaMinutes > 0 {
		fields[fieldETA] = etaMinutes
	}
	if status.IsTerminal() {
		fields[fieldEmployees] = []string{}
	}
	_, err := r.table.Update(ctx, orderID, fields)
	return err
}

// UpdateETA extends the delivery estimate without touching the status.
func (r *Repository) UpdateETA(ctx context.Context, orderID string, etaMinutes int) error {
	_, err := r.table.Update(ctx, orderID, airtable.Fields{fieldETA: etaMinutes})
	return err
}
