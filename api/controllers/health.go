package controllers

import (
	"context"
	"net/http"

	"github.com/veldtcommerce/pricing-engine/api/responses"
	"github.com/veldtcommerce/pricing-engine/pkg/config"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
)

const envHeader = "X-Pricing-Env"

// Pinger is the health-check surface of an optional dependency.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the usage counter backend when one is configured.
// With the in-memory store there is nothing to check.
func HealthReady(cfg *config.Config, logg *logger.Logger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
