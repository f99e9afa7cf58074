package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/serranodev/quickcart-backend/api/controllers"
	"github.com/serranodev/quickcart-backend/api/middleware"
	"github.com/serranodev/quickcart-backend/internal/auth"
	"github.com/serranodev/quickcart-backend/internal/cart"
	checkoutsvc "github.com/serranodev/quickcart-backend/internal/checkout"
	"github.com/serranodev/quickcart-backend/internal/orders"
	"github.com/serranodev/quickcart-backend/internal/products"
	"github.com/serranodev/quickcart-backend/pkg/auth/session"
	"github.com/serranodev/quickcart-backend/pkg/config"
	"github.com/serranodev/quickcart-backend/pkg/db"
	"github.com/serranodev/quickcart-backend/pkg/logger"
	"github.com/serranodev/quickcart-backend/pkg/metrics"
	"github.com/serranodev/quickcart-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       redis.Pinger
	RateLimiter *redis.Client
	Sessions    session.AccessSessionChecker
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	AuthService auth.Service
	Products    products.Service
	Cart        cart.Service
	Checkout    checkoutsvc.Service
	Orders      orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(middleware.AuthRateLimit(cfg.RateLimit, deps.RateLimiter, logg))
		}
		r.Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items/{productId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Patch("/", controllers.CartUpdateMeta(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.MyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.MyOrderDetail(deps.Orders, logg))
			r.Get("/{orderId}/tracking", controllers.MyOrderTracking(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole("agent", logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AgentAssignedOrders(deps.Orders, logg))
				r.Post("/{orderId}/confirm", controllers.AgentConfirmOrder(deps.Orders, logg))
				r.Post("/{orderId}/ship", controllers.AgentShipOrder(deps.Orders, logg))
				r.Post("/{orderId}/deliver", controllers.AgentDeliverOrder(deps.Orders, logg))
				r.Post("/{orderId}/tracking", controllers.AgentSetTracking(deps.Orders, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
				r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/unassigned", controllers.AdminUnassignedOrders(deps.Orders, logg))
				r.Post("/{orderId}/assign", controllers.AdminAssignAgent(deps.Orders, logg))
			})
		})
	})

	return r
}
