package controllers

import (
	"net/http"

	"github.com/veldtcommerce/pricing-engine/api/responses"
	"github.com/veldtcommerce/pricing-engine/api/validators"
	"github.com/veldtcommerce/pricing-engine/internal/quote"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
)

// CartQuote prices a cart preview. No usage counters move.
func CartQuote(svc *quote.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quote.Request
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		breakdown, err := svc.Quote(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}
