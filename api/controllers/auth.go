package controllers

import (
	"net/http"

	"github.com/edostavka/backend/api/middleware"
	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/api/validators"
	"github.com/edostavka/backend/internal/auth"
	"github.com/edostavka/backend/internal/users"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// sessionLoops starts and stops the per-session background pollers.
type sessionLoops interface {
	StartCustomer(token, userID, email string) error
	StartEmployee(token, employeeID string) error
	StopSession(token string)
}

// cartDropper forgets a user's in-process cart engine.
type cartDropper interface {
	Drop(userID string)
}

// AuthLogin handles both identity spaces: the reserved courier login
// and customer email+password.
func AuthLogin(svc auth.Service, loops sessionLoops, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.LoginInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := startLoops(loops, session); err != nil {
			logg.Error(r.Context(), "starting session loops", err)
		}
		responses.WriteSuccess(w, session)
	}
}

// AuthRegister opens a customer account and signs it in.
func AuthRegister(svc auth.Service, loops sessionLoops, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload users.RegisterInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := startLoops(loops, session); err != nil {
			logg.Error(r.Context(), "starting session loops", err)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// AuthLogout tears the session down: pollers, the in-process cart
// engine, and the stored session. The next login reloads the cart
// from the remote store.
func AuthLogout(svc auth.Service, loops sessionLoops, carts cartDropper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		loops.StopSession(session.Token)
		if !session.IsEmployee() {
			carts.Drop(session.UserID)
		}
		if err := svc.Logout(r.Context(), session); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthMe returns the session behind the token, so a reloaded app can
// restore its identity.
func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}
		responses.WriteSuccess(w, session)
	}
}

func startLoops(loops sessionLoops, session *auth.Session) error {
	if loops == nil {
		return nil
	}
	if session.IsEmployee() {
		return loops.StartEmployee(session.Token, session.UserID)
	}
	return loops.StartCustomer(session.Token, session.UserID, session.Email)
}
