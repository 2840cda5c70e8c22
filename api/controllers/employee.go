package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edostavka/backend/api/middleware"
	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/api/validators"
	"github.com/edostavka/backend/internal/employees"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/internal/sync"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type setShiftRequest struct {
	Online bool `json:"online"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// employeeSessions is the session-loop side of the courier endpoints.
type employeeSessions interface {
	Employee(token string) (*sync.EmployeeTracker, bool)
}

// EmployeeCurrentOrder serves the courier's assigned order. The tracker
// snapshot answers when the session loop is running; otherwise the base
// is consulted directly.
func EmployeeCurrentOrder(svc employees.Service, sessions employeeSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		if tracker, ok := sessions.Employee(session.Token); ok {
			responses.WriteSuccess(w, map[string]any{"order": tracker.Current()})
			return
		}

		details, err := svc.AssignedOrder(r.Context(), session.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order": details})
	}
}

// EmployeeSetShift flips the courier on or off shift. Going off shift
// clears the tracked order so the poll loop stops advancing it.
func EmployeeSetShift(svc employees.Service, sessions employeeSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setShiftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		status := employees.StatusOffline
		if payload.Online {
			status = employees.StatusOnline
		}
		if err := svc.SetStatus(r.Context(), session.UserID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Online {
			if tracker, ok := sessions.Employee(session.Token); ok {
				tracker.Clear()
			}
		}
		responses.WriteSuccess(w, map[string]any{"online": payload.Online})
	}
}

// EmployeeUpdateOrderStatus moves the assigned order to its next stage.
func EmployeeUpdateOrderStatus(ordersSvc orders.Service, sessions employeeSessions, cSessions customerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID := chi.URLParam(r, "orderID")
		to := orders.Status(payload.Status)
		if err := ordersSvc.UpdateStatus(r.Context(), orderID, to); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if to.IsTerminal() {
			if session, ok := middleware.SessionFromContext(r.Context()); ok {
				if tracker, ok := sessions.Employee(session.Token); ok {
					tracker.Clear()
				}
			}
		}
		if to == orders.StatusCancelled {
			// Cancelled positions go back on the shelf.
			cSessions.KickCatalog()
		}
		responses.WriteSuccess(w, map[string]any{"status": to})
	}
}

// EmployeeDelayOrder pushes the delivery estimate out.
func EmployeeDelayOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ordersSvc.Delay(r.Context(), chi.URLParam(r, "orderID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"delayed": true})
	}
}
