package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edostavka/backend/api/middleware"
	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/api/validators"
	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/catalog"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

type cartView struct {
	Items       []cart.Item       `json:"items"`
	Totals      cart.Totals       `json:"totals"`
	Adjustments []cart.Adjustment `json:"adjustments"`
	// Notice carries a stock-clamp message for the mutation that
	// produced this view, if any.
	Notice string `json:"notice,omitempty"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type setCartQuantityRequest struct {
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

func viewOf(engine *cart.Engine, notice string) cartView {
	return cartView{
		Items:       engine.Items(),
		Totals:      engine.Totals(),
		Adjustments: engine.Adjustments(),
		Notice:      notice,
	}
}

// GetCart serves the user's current cart.
func GetCart(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(engine, ""))
	}
}

// AddCartItem puts one more unit of a product into the cart.
func AddCartItem(svc *cart.Service, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engine, err := engineFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := catalogSvc.ProductByID(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.Add(product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(engine, ""))
	}
}

// SetCartQuantity sets the exact quantity of a cart position. Zero
// removes it. Stock clamps come back as a notice, not an error.
func SetCartQuantity(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setCartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engine, err := engineFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notice, err := engine.SetQuantity(chi.URLParam(r, "productID"), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(engine, notice))
	}
}

// RemoveCartItem drops a position from the cart.
func RemoveCartItem(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine.Remove(chi.URLParam(r, "productID"))
		responses.WriteSuccess(w, viewOf(engine, ""))
	}
}

// ClearCart empties the cart.
func ClearCart(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine.Clear()
		responses.WriteSuccess(w, viewOf(engine, ""))
	}
}

func engineFor(r *http.Request, svc *cart.Service) (*cart.Engine, error) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	return svc.Engine(r.Context(), session.UserID)
}
