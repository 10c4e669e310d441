package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvfashion/backend/api/controllers"
	"github.com/dvfashion/backend/api/middleware"
	"github.com/dvfashion/backend/internal/autotransition"
	"github.com/dvfashion/backend/internal/cart"
	checkoutsvc "github.com/dvfashion/backend/internal/checkout"
	"github.com/dvfashion/backend/internal/inventory"
	"github.com/dvfashion/backend/internal/orders"
	"github.com/dvfashion/backend/pkg/config"
	"github.com/dvfashion/backend/pkg/db"
	"github.com/dvfashion/backend/pkg/logger"
	"github.com/dvfashion/backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       redis.Pinger
	Registry    prometheus.Gatherer
	Inventory   inventory.Service
	Cart        cart.Service
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Transitions autotransition.Scheduler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CustomerContext(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartList(deps.Cart, logg))
				r.Post("/items", controllers.CartAdd(deps.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(deps.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemove(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, deps.Transitions, logg))
			})
		})

		// Payment confirmation arrives from the payment gateway, not the
		// customer, so it sits outside the customer context group.
		r.Post("/checkout/{orderId}/confirm", controllers.CheckoutConfirmPayment(deps.Checkout, logg))

		r.Route("/stock/{sizeId}", func(r chi.Router) {
			r.Get("/availability", controllers.StockAvailability(deps.Inventory, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/stock", func(r chi.Router) {
			r.Post("/import", controllers.StockImport(deps.Inventory, logg))
			r.Post("/export", controllers.StockExport(deps.Inventory, logg))
			r.Post("/adjust", controllers.StockAdjust(deps.Inventory, logg))
			r.Get("/report", controllers.StockReport(deps.Inventory, logg))
			r.Get("/low", controllers.StockLowList(deps.Inventory, logg))
			r.Get("/out", controllers.StockOutList(deps.Inventory, logg))
			r.Get("/{sizeId}", controllers.StockDetail(deps.Inventory, logg))
			r.Get("/{sizeId}/transactions", controllers.StockHistory(deps.Inventory, logg))
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/transition", controllers.AdminOrderTransition(deps.Orders, deps.Transitions, logg))
			r.Get("/auto-transitions", controllers.AdminOrderAutoTransitions(deps.Transitions, logg))
			r.Post("/auto-transitions/cancel", controllers.AdminOrderAutoTransitionCancel(deps.Transitions, logg))
		})
	})

	return r
}
