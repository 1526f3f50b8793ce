package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	paymentcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/payments"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/items"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/purchases"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer depends on.
type RedisStore interface {
	redis.IdempotencyStore
	redis.RateLimiter
	redis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	itemService items.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	paymentService payments.Service,
	purchaseService purchases.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	paymentsPolicy := middleware.NewRateLimitPolicy(
		"payments",
		cfg.RateLimit.PaymentsWindow,
		cfg.RateLimit.PaymentsLimit,
	)
	sellers := []string{string(enums.UserRoleSeller), string(enums.UserRoleAdmin)}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisStore,
		}, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/items", controllers.ItemList(itemService, logg))
		r.Get("/items/{itemId}", controllers.ItemDetail(itemService, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(redisStore, logg),
			)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, sellers...))
				r.Post("/items", controllers.ItemCreate(itemService, logg))
				r.Put("/items/{itemId}", controllers.ItemUpdate(itemService, logg))
				r.Delete("/items/{itemId}", controllers.ItemDelete(itemService, logg))
				r.Post("/items/{itemId}/stock", controllers.ItemAdjustStock(itemService, logg))
			})

			// Flat registrations keep the full route pattern visible to the
			// idempotency middleware.
			r.Get("/cart", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/cart/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Put("/cart/items/{itemId}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/cart/items/{itemId}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Post("/cart/checkout", controllers.Checkout(checkoutService, logg))

			limited := middleware.RateLimit(paymentsPolicy, redisStore, logg)
			r.Get("/payments/key", paymentcontrollers.PublicKey(paymentService, logg))
			r.With(limited).Post("/payments/create-order", paymentcontrollers.CreateOrder(paymentService, logg))
			r.With(limited).Post("/payments/verify-payment", paymentcontrollers.VerifyPayment(paymentService, logg))

			r.Get("/purchases", controllers.PurchaseHistory(purchaseService, logg))
			r.Get("/purchases/{purchaseId}", controllers.PurchaseDetail(purchaseService, logg))
		})
	})

	return r
}
