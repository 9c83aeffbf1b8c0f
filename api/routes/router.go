package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cloudcore-storefront/api/controllers"
	"github.com/angelmondragon/cloudcore-storefront/api/middleware"
	"github.com/angelmondragon/cloudcore-storefront/internal/orders"
	"github.com/angelmondragon/cloudcore-storefront/pkg/config"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
	"github.com/angelmondragon/cloudcore-storefront/pkg/redis"
)

// Deps carries everything the router wires into handlers. Idempotency is nil
// when no redis endpoint is configured.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Catalog     controllers.CatalogService
	Sessions    controllers.CartSessions
	Pricing     controllers.Quoter
	Orders      orders.Service
	Idempotency redis.IdempotencyStore
	Readiness   []controllers.ReadinessCheck
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	cartDeps := controllers.CartDeps{
		Sessions: deps.Sessions,
		Catalog:  deps.Catalog,
		Pricing:  deps.Pricing,
		Logger:   logg,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Get("/featured", controllers.ProductFeatured(deps.Catalog, cfg.Catalog.FeaturedCount, logg))
			r.Post("/refresh", controllers.ProductRefresh(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartDeps))
				r.Delete("/", controllers.CartClear(cartDeps))
				r.Get("/quote", controllers.CartQuote(cartDeps))
				r.Post("/items", controllers.CartAddItem(cartDeps))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(cartDeps))
			})
			r.Post("/checkout", controllers.Checkout(deps.Orders, logg))
		})
	})

	return r
}
