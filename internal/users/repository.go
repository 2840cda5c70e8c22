// Package users reads and writes customer accounts. Unlike the rest of
// the base the customers table uses latin column names.
package users

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/pkg/errors"
)

// Column names of the customers table.
const (
	fieldName       = "name"
	fieldEmail      = "email"
	fieldPhone      = "phone"
	fieldPassword   = "password"
	fieldCardNumber = "card number"
)

// User is one customer account. Password never leaves the package
// boundary in API responses.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"-"`
}

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
}

type userTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Get(ctx context.Context, id string) (*airtable.Record, error)
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
}

// Repository reads and writes the customers table.
type Repository struct {
	table userTable
}

func NewRepository(table userTable) (*Repository, error) {
	if table == nil {
		return nil, fmt.Errorf("users table required")
	}
	return &Repository{table: table}, nil
}

// FindByEmail returns the account with the given email, or nil when none
// exists.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	records, err := r.table.List(ctx, airtable.ListOptions{
		Filter:     airtable.Eq(fieldEmail, email),
		MaxRecords: 1,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "finding user by email")
	}
	if len(records) == 0 {
		return nil, nil
	}
	user := userFromRecord(records[0])
	return &user, nil
}

// Get returns the account by record ID.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	record, err := r.table.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user := userFromRecord(*record)
	return &user, nil
}

// Create opens a new account row.
func (r *Repository) Create(ctx context.Context, input RegisterInput) (*User, error) {
	record, err := r.table.Create(ctx, airtable.Fields{
		fieldName:     input.Name,
		fieldEmail:    input.Email,
		fieldPhone:    input.Phone,
		fieldPassword: input.Password,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "creating user")
	}
	user := userFromRecord(*record)
	return &user, nil
}

func userFromRecord(rec airtable.Record) User {
	return User{
		ID:       rec.ID,
		Name:     rec.Fields.String(fieldName),
		Email:    rec.Fields.String(fieldEmail),
		Phone:    rec.Fields.String(fieldPhone),
		Password: rec.Fields.String(fieldPassword),
	}
}
