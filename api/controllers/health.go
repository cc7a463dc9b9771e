package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/soundlease/soundlease-backend/api/responses"
	"github.com/soundlease/soundlease-backend/internal/chain"
	"github.com/soundlease/soundlease-backend/pkg/config"
	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/pinning/pinata"
	"github.com/soundlease/soundlease-backend/pkg/redis"
)

const readyProbeTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SoundLease-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every upstream the API depends on. Redis is optional and
// skipped when not configured.
func HealthReady(cfg *config.Config, logg *logger.Logger, chainP chain.Pinger, pinataP pinata.Pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SoundLease-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		probe := func(name string, ping func(context.Context) error) {
			if err := ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness probe failed", err)
				}
				return
			}
			checks[name] = "up"
		}

		if chainP != nil {
			probe("chain", chainP.Ping)
		}
		if pinataP != nil {
			probe("pinata", pinataP.Ping)
		}
		if redisClient != nil {
			probe("redis", redisClient.Ping)
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
