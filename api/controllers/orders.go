package controllers

import (
	"net/http"

	"github.com/edostavka/backend/api/middleware"
	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/api/validators"
	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/internal/sync"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type checkoutRequest struct {
	Address string `json:"address" validate:"required"`
}

// customerSessions is the session-loop side of checkout and polling.
type customerSessions interface {
	Customer(token string) (*sync.CustomerTracker, bool)
	KickCatalog()
}

// Checkout turns the cart into an order. The cart is cleared only when
// the order was created.
func Checkout(ordersSvc orders.Service, cartSvc *cart.Service, sessions customerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, ok := middleware.SessionFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		engine, err := cartSvc.Engine(ctx, session.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := ordersSvc.Checkout(ctx, orders.CheckoutInput{
			UserID:    session.UserID,
			Address:   payload.Address,
			Items:     engine.Items(),
			CartTotal: engine.Totals().Total,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		engine.Clear()
		if err := engine.Flush(ctx); err != nil {
			logg.Warn(logg.WithField(ctx, "flush_error", err.Error()), "checkout: cart flush failed")
		}

		// Stock changed; let the catalog catch up.
		sessions.KickCatalog()

		if tracker, ok := sessions.Customer(session.Token); ok {
			if err := tracker.TrackOrder(ctx, result.Order); err != nil {
				logg.Warn(logg.WithOrderID(ctx, result.Order.ID), "checkout: order tracking failed")
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderHistory lists the user's past orders, newest first.
func OrderHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}
		history, err := svc.ListForUser(r.Context(), session.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": history})
	}
}

// OrderState serves what the storefront should render right now: the
// active order, a review prompt, or a thank-you banner.
func OrderState(sessions customerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracker, err := customerTracker(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := tracker.View(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// DismissReviewPrompt hides the post-delivery review prompt for good.
func DismissReviewPrompt(sessions customerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracker, err := customerTracker(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := tracker.DismissReview(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dismissed": true})
	}
}

// DismissThankYou hides the thank-you banner early.
func DismissThankYou(sessions customerSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracker, err := customerTracker(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := tracker.DismissThankYou(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dismissed": true})
	}
}

func customerTracker(r *http.Request, sessions customerSessions) (*sync.CustomerTracker, error) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	tracker, ok := sessions.Customer(session.Token)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no active session loop")
	}
	return tracker, nil
}
