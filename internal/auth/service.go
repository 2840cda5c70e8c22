// Package auth issues and resolves opaque session tokens. Customers log
// in with email and password; couriers log in from the shared terminal
// with the reserved login and their personal password.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edostavka/backend/internal/employees"
	"github.com/edostavka/backend/internal/users"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/localstate"
	"github.com/edostavka/backend/pkg/logger"
)

// EmployeeLogin is the reserved login that routes to courier auth.
const EmployeeLogin = "work"

// Roles carried by a session.
const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
)

// Session is the authenticated identity behind a token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEmployee reports whether the session belongs to a courier.
func (s Session) IsEmployee() bool {
	return s.Role == RoleEmployee
}

// LoginInput is the login form payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type customerRepo interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Create(ctx context.Context, input users.RegisterInput) (*users.User, error)
}

type employeeAuth interface {
	FindByPassword(ctx context.Context, password string) (*employees.Employee, error)
	SetStatus(ctx context.Context, employeeID, status string) error
}

type sessionStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(token string) string
}

type Service interface {
	Login(ctx context.Context, input LoginInput) (*Session, error)
	Register(ctx context.Context, input users.RegisterInput) (*Session, error)
	// Resolve returns the session behind a token, or an unauthorized
	// error when the token is unknown or expired.
	Resolve(ctx context.Context, token string) (*Session, error)
	Logout(ctx context.Context, session Session) error
}

type service struct {
	customers customerRepo
	couriers  employeeAuth
	store     sessionStore
	cfg       config.SessionConfig
	logger    *logger.Logger
}

func NewService(customers customerRepo, couriers employeeAuth, store sessionStore, cfg config.SessionConfig, logg *logger.Logger) (Service, error) {
	if customers == nil {
		return nil, fmt.Errorf("auth customer repo required")
	}
	if couriers == nil {
		return nil, fmt.Errorf("auth employee service required")
	}
	if store == nil {
		return nil, fmt.Errorf("auth session store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("auth logger required")
	}
	return &service{customers: customers, couriers: couriers, store: store, cfg: cfg, logger: logg}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	if strings.EqualFold(input.Email, EmployeeLogin) {
		return s.loginEmployee(ctx, input.Password)
	}
	return s.loginCustomer(ctx, input)
}

func (s *service) loginEmployee(ctx context.Context, password string) (*Session, error) {
	courier, err := s.couriers.FindByPassword(ctx, password)
	if err != nil {
		return nil, err
	}
	if courier == nil {
		return nil, errors.New(errors.CodeUnauthorized, "Неверный пароль сотрудника.")
	}
	return s.issue(ctx, courier.ID, RoleEmployee, courier.Name, courier.Email)
}

func (s *service) loginCustomer(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.customers.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New(errors.CodeUnauthorized, "Пользователь с таким email не найден.")
	}
	if user.Password != input.Password {
		return nil, errors.New(errors.CodeUnauthorized, "Неверный пароль.")
	}
	return s.issue(ctx, user.ID, RoleCustomer, user.Name, user.Email)
}

func (s *service) Register(ctx context.Context, input users.RegisterInput) (*Session, error) {
	if strings.EqualFold(input.Email, EmployeeLogin) {
		return nil, errors.New(errors.CodeValidation, "Этот email зарезервирован для сотрудников.")
	}
	existing, err := s.customers.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.CodeConflict, "Пользователь с таким email уже существует. Пожалуйста, войдите.")
	}

	user, err := s.customers.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user.ID, RoleCustomer, user.Name, user.Email)
}

func (s *service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errors.New(errors.CodeUnauthorized, "session token is required")
	}
	var session Session
	err := s.store.GetJSON(ctx, s.store.SessionKey(token), &session)
	if err == localstate.ErrNotFound {
		return nil, errors.New(errors.CodeUnauthorized, "session expired or unknown")
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading session")
	}
	return &session, nil
}

func (s *service) Logout(ctx context.Context, session Session) error {
	// Couriers go off shift on logout. Losing the status update must
	// not keep the session alive.
	if session.IsEmployee() {
		if err := s.couriers.SetStatus(ctx, session.UserID, employees.StatusOffline); err != nil {
			s.logger.Error(s.logger.WithUserID(ctx, session.UserID), "setting courier offline on logout", err)
		}
	}
	if err := s.store.Del(ctx, s.store.SessionKey(session.Token)); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "deleting session")
	}
	return nil
}

func (s *service) issue(ctx context.Context, userID, role, name, email string) (*Session, error) {
	session := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SetJSON(ctx, s.store.SessionKey(session.Token), session, s.cfg.TTL); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "storing session")
	}
	return &session, nil
}
