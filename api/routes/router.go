package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edostavka/backend/api/controllers"
	"github.com/edostavka/backend/api/middleware"
	"github.com/edostavka/backend/internal/auth"
	"github.com/edostavka/backend/internal/banners"
	"github.com/edostavka/backend/internal/cart"
	"github.com/edostavka/backend/internal/catalog"
	"github.com/edostavka/backend/internal/employees"
	"github.com/edostavka/backend/internal/favorites"
	"github.com/edostavka/backend/internal/feedback"
	"github.com/edostavka/backend/internal/notifications"
	"github.com/edostavka/backend/internal/orders"
	"github.com/edostavka/backend/internal/reviews"
	"github.com/edostavka/backend/internal/sync"
	"github.com/edostavka/backend/pkg/config"
	"github.com/edostavka/backend/pkg/localstate"
	"github.com/edostavka/backend/pkg/logger"
)

// Dependencies is everything the HTTP surface needs.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger
	State  *localstate.Client

	Auth          auth.Service
	Catalog       catalog.Service
	Cart          *cart.Service
	Orders        orders.Service
	Employees     employees.Service
	Reviews       reviews.Service
	Notifications notifications.Service
	Banners       banners.Service
	Feedback      feedback.Service
	Favorites     favorites.Service

	Sessions *sync.Manager
}

func NewRouter(deps Dependencies) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS())

	r.Get("/health/live", controllers.HealthLive(deps.Config))
	r.Get("/health/ready", controllers.HealthReady(deps.Config, logg, deps.State))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", controllers.AuthLogin(deps.Auth, deps.Sessions, logg))
		r.Post("/auth/register", controllers.AuthRegister(deps.Auth, deps.Sessions, logg))

		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/products/{productID}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/products/{productID}/reviews", controllers.ListProductReviews(deps.Reviews, logg))
		r.Get("/categories", controllers.ListCategories(deps.Catalog, logg))

		r.Get("/banners", controllers.BannerByName(deps.Banners, logg))
		r.Get("/banners/splash", controllers.SplashImages(deps.Banners, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Auth, logg))

			r.Get("/auth/me", controllers.AuthMe(logg))
			r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, deps.Sessions, deps.Cart, logg))

			r.Post("/feedback", controllers.SubmitFeedback(deps.Feedback, logg))

			// Storefront surface.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleCustomer, logg))

				r.Get("/cart", controllers.GetCart(deps.Cart, logg))
				r.Post("/cart/items", controllers.AddCartItem(deps.Cart, deps.Catalog, logg))
				r.Put("/cart/items/{productID}", controllers.SetCartQuantity(deps.Cart, logg))
				r.Delete("/cart/items/{productID}", controllers.RemoveCartItem(deps.Cart, logg))
				r.Delete("/cart", controllers.ClearCart(deps.Cart, logg))

				r.Post("/orders", controllers.Checkout(deps.Orders, deps.Cart, deps.Sessions, logg))
				r.Get("/orders", controllers.OrderHistory(deps.Orders, logg))
				r.Get("/orders/state", controllers.OrderState(deps.Sessions, logg))
				r.Post("/orders/state/dismiss-review", controllers.DismissReviewPrompt(deps.Sessions, logg))
				r.Post("/orders/state/dismiss-thank-you", controllers.DismissThankYou(deps.Sessions, logg))

				r.Post("/reviews", controllers.SubmitReview(deps.Reviews, logg))

				r.Get("/favorites", controllers.ListFavorites(deps.Favorites, logg))
				r.Put("/favorites/{productID}", controllers.AddFavorite(deps.Favorites, logg))
				r.Delete("/favorites/{productID}", controllers.RemoveFavorite(deps.Favorites, logg))

				r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
				r.Get("/notifications/unread", controllers.UnreadNotificationCount(deps.Notifications, logg))
				r.Post("/notifications/read", controllers.MarkNotificationsRead(deps.Notifications, logg))
			})

			// Courier surface.
			r.Route("/employee", func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleEmployee, logg))

				r.Get("/order", controllers.EmployeeCurrentOrder(deps.Employees, deps.Sessions, logg))
				r.Post("/shift", controllers.EmployeeSetShift(deps.Employees, deps.Sessions, logg))
				r.Post("/orders/{orderID}/status", controllers.EmployeeUpdateOrderStatus(deps.Orders, deps.Sessions, deps.Sessions, logg))
				r.Post("/orders/{orderID}/delay", controllers.EmployeeDelayOrder(deps.Orders, logg))
			})
		})
	})

	return r
}
