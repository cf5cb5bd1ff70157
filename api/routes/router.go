package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftkart/storefront-backend/api/controllers"
	"github.com/craftkart/storefront-backend/api/middleware"
	"github.com/craftkart/storefront-backend/internal/abandonedcart"
	"github.com/craftkart/storefront-backend/internal/auth"
	"github.com/craftkart/storefront-backend/internal/inventory"
	"github.com/craftkart/storefront-backend/internal/orders"
	"github.com/craftkart/storefront-backend/internal/returns"
	"github.com/craftkart/storefront-backend/pkg/config"
	"github.com/craftkart/storefront-backend/pkg/db"
	"github.com/craftkart/storefront-backend/pkg/logger"
	pkgredis "github.com/craftkart/storefront-backend/pkg/redis"
)

// NewRouter wires every HTTP surface of the storefront: health probes,
// auth, the order/payment flow, returns, abandoned-cart recovery, and
// the admin endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cacheP pkgredis.Pinger,
	idemStore pkgredis.IdempotencyStore,
	authService auth.Service,
	ordersService orders.Service,
	returnsService returns.Service,
	cartService abandonedcart.Service,
	inventoryService inventory.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cacheP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.Idempotency(idemStore, logg)).Post("/register", controllers.AuthRegister(authService, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AdminAuthLogin(authService, logg))
	})

	// Guest-reachable storefront surface. OptionalAuth lets a logged-in
	// shopper attach their identity to carts and payment verification
	// without making auth a prerequisite.
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Post("/orders/guest", controllers.CreateGuestOrder(ordersService, logg))
			r.Get("/orders/lookup", controllers.GuestOrderLookup(ordersService, logg))
			r.Post("/payments/verify", controllers.VerifyPayment(ordersService, logg))

			r.Route("/carts", func(r chi.Router) {
				r.Post("/abandoned", controllers.CaptureAbandonedCart(cartService, logg))
				r.Get("/recover", controllers.RecoverCart(cartService, logg))
				r.Post("/recovered", controllers.MarkCartRecovered(cartService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(ordersService, logg))
				r.Get("/", controllers.ListOrders(ordersService, logg))
				r.Get("/{orderId}", controllers.GetOrder(ordersService, logg))
			})
			r.Route("/returns", func(r chi.Router) {
				r.Post("/", controllers.CreateReturn(returnsService, logg))
				r.Get("/", controllers.ListReturns(returnsService, logg))
				r.Get("/{returnId}", controllers.GetReturn(returnsService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(ordersService, logg))
		r.Patch("/returns/{returnId}", controllers.AdminUpdateReturn(returnsService, logg))
		r.Post("/inventory/alerts", controllers.AdminSubscribeInventoryAlert(inventoryService, logg))
	})

	return r
}
