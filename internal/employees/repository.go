// Package employees covers the courier side: shift status, order
// assignment and availability for checkout.
package employees

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
)

// Shift statuses as stored in the base.
const (
	StatusOnline  = "на линии"
	StatusOffline = "не работает"
)

// Column names of the employees table.
const (
	fieldName     = "имя"
	fieldEmail    = "почта"
	fieldPassword = "пароль"
	fieldStatus   = "статус"
	fieldOrders   = "заказ"
)

// Employee is one courier row.
type Employee struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Status   string   `json:"status"`
	OrderIDs []string `json:"-"`
}

// Online reports whether the courier is on shift.
func (e Employee) Online() bool {
	return e.Status == StatusOnline
}

type employeeTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Get(ctx context.Context, id string) (*airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
}

// Repository reads and writes the employees table.
type Repository struct {
	table employeeTable
}

// NewRepository constructs an employees repository.
func NewRepository(table employeeTable) (*Repository, error) {
	if table == nil {
		return nil, fmt.Errorf("employees table required")
	}
	return &Repository{table: table}, nil
}

// FindByPassword looks a courier up by the shared-terminal password.
// Nil when no row matches.
func (r *Repository) FindByPassword(ctx context.Context, password string) (*Employee, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter: airtable.Eq(fieldPassword, password),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	employee := employeeFromRecord(records[0])
	return &employee, nil
}

// Get fetches one courier row.
func (r *Repository) Get(ctx context.Context, id string) (*Employee, error) {
	record, err := r.table.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	employee := employeeFromRecord(*record)
	return &employee, nil
}

// ListOnline returns the couriers currently on shift.
func (r *Repository) ListOnline(ctx context.Context) ([]Employee, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter: airtable.Eq(fieldStatus, StatusOnline),
	})
	if err != nil {
		return nil, err
	}
	employees := make([]Employee, 0, len(records))
	for _, record := range records {
		employees = append(employees, employeeFromRecord(record))
	}
	return employees, nil
}

// SetStatus flips the courier's shift status.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.table.Update(ctx, id, airtable.Fields{fieldStatus: status})
	return err
}

func employeeFromRecord(record airtable.Record) Employee {
	return Employee{
		ID:       record.ID,
		Name:     record.Fields.String(fieldName),
		Email:    record.Fields.String(fieldEmail),
		Status:   record.Fields.String(fieldStatus),
		OrderIDs: record.Fields.StringSlice(fieldOrders),
	}
}
