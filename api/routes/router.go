package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veldtcommerce/pricing-engine/api/controllers"
	"github.com/veldtcommerce/pricing-engine/api/middleware"
	"github.com/veldtcommerce/pricing-engine/internal/quote"
	"github.com/veldtcommerce/pricing-engine/pkg/config"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	mets *metrics.EngineMetrics,
	quoteService *quote.Service,
	redisPinger controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cart/quote", controllers.CartQuote(quoteService, logg))
		r.Post("/orders/price", controllers.OrderPrice(quoteService, logg))
		r.Post("/orders/refund-preview", controllers.OrderRefundPreview(logg))
		r.Post("/orders/transition", controllers.OrderTransition(mets, logg))
	})

	return r
}
