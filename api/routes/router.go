package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/hirepurchase-backend/api/controllers"
	ledgercontrollers "github.com/angelmondragon/hirepurchase-backend/api/controllers/ledger"
	"github.com/angelmondragon/hirepurchase-backend/api/middleware"
	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	"github.com/angelmondragon/hirepurchase-backend/internal/delivery"
	"github.com/angelmondragon/hirepurchase-backend/internal/payments"
	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/internal/waybills"
	"github.com/angelmondragon/hirepurchase-backend/pkg/config"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
	"github.com/angelmondragon/hirepurchase-backend/pkg/redis"
)

// Services groups the ledger services exposed over HTTP.
type Services struct {
	Purchases purchases.Service
	Payments  payments.Service
	Delivery  delivery.Service
	Waybills  waybills.Service
	Customers customers.Service
}

// Readiness lists the dependencies /health/ready pings, keyed by name.
type Readiness map[string]controllers.Pinger

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness Readiness,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if cfg.FeatureFlags.MetricsPublic && gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// A nil *redis.Client must reach the middleware as a nil interface.
	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        *redis.Client
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
	}
	writePolicy := middleware.NewRateLimitPolicy("writes", cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitPerWindow)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if rateStore != nil {
			r.Use(middleware.RateLimit(writePolicy, rateStore, logg))
		}
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", ledgercontrollers.CreatePurchase(svcs.Purchases, logg))
			r.Get("/", ledgercontrollers.ListPurchases(svcs.Purchases, logg))

			r.Route("/{purchaseId}", func(r chi.Router) {
				r.Get("/", ledgercontrollers.PurchaseDetail(svcs.Purchases, logg))
				r.Post("/payments", ledgercontrollers.ApplyPayment(svcs.Payments, logg))
				r.Get("/payments", ledgercontrollers.ListPayments(svcs.Payments, logg))
				r.Post("/delivery", ledgercontrollers.SetDeliveryStatus(svcs.Delivery, logg))
				r.Post("/waybill", ledgercontrollers.IssueWaybill(svcs.Waybills, logg))
				r.Get("/waybill", ledgercontrollers.GetWaybill(svcs.Waybills, logg))
			})
		})

		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.StaffRoleOwner, enums.StaffRoleManager))
			r.Put("/{customerId}/collector", ledgercontrollers.AssignCollector(svcs.Customers, logg))
		})

		r.Route("/collector", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.StaffRoleCollector))
			r.Get("/purchases", ledgercontrollers.CollectorPurchases(svcs.Purchases, logg))
		})
	})

	return r
}
