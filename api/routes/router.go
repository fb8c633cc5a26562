package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novashop/novashop-backend/api/controllers"
	"github.com/novashop/novashop-backend/api/middleware"
	cartsvc "github.com/novashop/novashop-backend/internal/cart"
	ordersvc "github.com/novashop/novashop-backend/internal/orders"
	productsvc "github.com/novashop/novashop-backend/internal/products"
	reviewsvc "github.com/novashop/novashop-backend/internal/reviews"
	"github.com/novashop/novashop-backend/pkg/auth"
	"github.com/novashop/novashop-backend/pkg/config"
	"github.com/novashop/novashop-backend/pkg/logger"
	"github.com/novashop/novashop-backend/pkg/metrics"
	pkgredis "github.com/novashop/novashop-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	DB     controllers.Pinger
	Redis  *pkgredis.Client
	// IdempotencyStore defaults to Redis when unset.
	IdempotencyStore pkgredis.IdempotencyStore
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Products    productsvc.Service
	Reviews     reviewsvc.Service
	Cart        cartsvc.Service
	Orders      ordersvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// A typed nil *redis.Client must not masquerade as a live store.
	idemStore := deps.IdempotencyStore
	pingers := map[string]controllers.Pinger{"database": deps.DB}
	if deps.Redis != nil {
		if idemStore == nil {
			idemStore = deps.Redis
		}
		pingers["redis"] = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/", controllers.ProductDetail(deps.Products, logg))
			r.Get("/reviews", controllers.ReviewList(deps.Reviews, logg))
			r.Post("/reviews", controllers.ReviewCreate(deps.Reviews, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(auth.RoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))
		})
	})

	return r
}
