package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soundlease/soundlease-backend/api/controllers"
	"github.com/soundlease/soundlease-backend/api/middleware"
	"github.com/soundlease/soundlease-backend/internal/chain"
	"github.com/soundlease/soundlease-backend/internal/licenses"
	"github.com/soundlease/soundlease-backend/internal/uploads"
	"github.com/soundlease/soundlease-backend/pkg/config"
	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/pinning/pinata"
	"github.com/soundlease/soundlease-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	chainP chain.Pinger,
	pinataP pinata.Pinger,
	redisClient *redis.Client,
	uploadService uploads.Service,
	licenseService licenses.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	maxUploadBytes := int64(cfg.Media.MaxUploadMB) << 20

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, chainP, pinataP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/upload", controllers.Upload(uploadService, logg, maxUploadBytes))
		r.Route("/licenses", func(r chi.Router) {
			r.Get("/", controllers.LicenseList(licenseService, logg))
			r.Post("/", controllers.LicenseIssue(licenseService, logg, maxUploadBytes))
			r.Post("/{licenseId}/deactivate", controllers.LicenseDeactivate(licenseService, logg))
		})
	})

	return r
}
