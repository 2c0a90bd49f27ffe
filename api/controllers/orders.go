package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/api/responses"
	"github.com/veldtcommerce/pricing-engine/api/validators"
	"github.com/veldtcommerce/pricing-engine/internal/lifecycle"
	"github.com/veldtcommerce/pricing-engine/internal/pricing"
	"github.com/veldtcommerce/pricing-engine/internal/quote"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/events"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/metrics"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// OrderPrice prices an order at finalization and burns one redemption
// per applied rule. A CONFLICT response means a limit was consumed
// concurrently; the client should re-quote.
func OrderPrice(svc *quote.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req quote.Request
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		breakdown, err := svc.PriceOrder(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}

type refundPreviewRequest struct {
	Order          types.OrderSnapshot `json:"order" validate:"required"`
	ItemIDs        []uuid.UUID         `json:"item_ids,omitempty"`
	RefundShipping bool                `json:"refund_shipping"`
}

// OrderRefundPreview computes the refund entitlement for a delivered or
// returned order without side effects.
func OrderRefundPreview(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req refundPreviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !lifecycle.IsRefundable(req.Order.Status) {
			responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order in status %s is not refundable", req.Order.Status).
				WithDetails(map[string]any{"status": req.Order.Status.String()}))
			return
		}

		refund, err := pricing.CalculateRefund(req.Order, req.ItemIDs, req.RefundShipping)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, refund)
	}
}

type transitionRequest struct {
	OrderID            uuid.UUID `json:"order_id" validate:"required"`
	From               string    `json:"from" validate:"required"`
	To                 string    `json:"to" validate:"required"`
	PaymentValidated   bool      `json:"payment_validated"`
	InventoryReserved  bool      `json:"inventory_reserved"`
	InventoryAllocated bool      `json:"inventory_allocated"`
	TrackingNumber     string    `json:"tracking_number,omitempty"`
}

type transitionResponse struct {
	Status     enums.OrderStatus    `json:"status"`
	Terminal   bool                 `json:"terminal"`
	OccurredAt time.Time            `json:"occurred_at"`
	Events     []events.DomainEvent `json:"events"`
}

// OrderTransition validates a status change against the lifecycle table
// and returns the events the caller must dispatch after persisting the
// new status.
func OrderTransition(mets *metrics.EngineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, err := enums.ParseOrderStatus(req.From)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from status"))
			return
		}
		to, err := enums.ParseOrderStatus(req.To)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to status"))
			return
		}

		guards := lifecycle.Guards{
			PaymentValidated:   req.PaymentValidated,
			InventoryReserved:  req.InventoryReserved,
			InventoryAllocated: req.InventoryAllocated,
			TrackingNumber:     req.TrackingNumber,
		}

		result, err := lifecycle.Transition(req.OrderID, from, to, guards, time.Now().UTC())
		if err != nil {
			mets.IncTransition("rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		mets.IncTransition("accepted")
		responses.WriteSuccess(w, transitionResponse{
			Status:     result.Status,
			Terminal:   result.Terminal,
			OccurredAt: result.OccurredAt,
			Events:     result.Events,
		})
	}
}
