package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/veldtcommerce/pricing-engine/internal/catalog"
	"github.com/veldtcommerce/pricing-engine/internal/pricing"
	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/internal/promotion/resolver"
	"github.com/veldtcommerce/pricing-engine/internal/quote"
	"github.com/veldtcommerce/pricing-engine/internal/usagestore"
	"github.com/veldtcommerce/pricing-engine/pkg/config"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/metrics"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

func newTestRouter(t *testing.T, rules []promotion.Rule) http.Handler {
	t.Helper()

	engine, err := pricing.NewEngine(
		resolver.New(nil),
		decimal.RequireFromString("0.08"),
		pricing.NewFlatRate(money.MustNew(500, enums.CurrencyUSD)),
		nil,
		nil,
	)
	require.NoError(t, err)

	svc, err := quote.NewService(quote.ServiceParams{
		Loader: catalog.NewStatic(rules),
		Engine: engine,
		Usage:  usagestore.NewMemory(),
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(cfg, nil, metrics.NewEngineMetrics(nil), svc, nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestRouter(t, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "test", rec.Header().Get("X-Pricing-Env"))
	}
}

func TestCartQuoteEndpoint(t *testing.T) {
	rule := promotion.Rule{
		ID:         uuid.New(),
		Code:       "TEN",
		Type:       enums.PromotionTypePercentage,
		Scope:      enums.PromotionScopeGlobal,
		Percentage: &promotion.PercentageConfig{Percent: decimal.NewFromInt(10)},
		Stackable:  true,
		ValidFrom:  time.Now().UTC().Add(-time.Hour),
	}
	handler := newTestRouter(t, []promotion.Rule{rule})

	rec := postJSON(t, handler, "/api/v1/cart/quote", map[string]any{
		"currency": "USD",
		"store_id": uuid.New(),
		"user_id":  uuid.New(),
		"items": []map[string]any{
			{"product_id": uuid.New(), "unit_price_cents": 1000, "quantity": 3},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Subtotal      map[string]string `json:"subtotal"`
			DiscountTotal map[string]string `json:"discount_total"`
			Total         map[string]string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "30.00", envelope.Data.Subtotal["amount"])
	require.Equal(t, "3.00", envelope.Data.DiscountTotal["amount"])
	// 30.00 - 3.00 + 8% tax (2.16) + 5.00 shipping
	require.Equal(t, "34.16", envelope.Data.Total["amount"])
}

func TestCartQuoteRejectsMalformedBody(t *testing.T) {
	handler := newTestRouter(t, nil)

	rec := postJSON(t, handler, "/api/v1/cart/quote", map[string]any{
		"currency": "USD",
		"items":    []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler, "/api/v1/cart/quote", map[string]any{
		"currency": "USD",
		"surprise": true,
		"items": []map[string]any{
			{"product_id": uuid.New(), "unit_price_cents": 100, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderTransitionEndpoint(t *testing.T) {
	handler := newTestRouter(t, nil)

	rec := postJSON(t, handler, "/api/v1/orders/transition", map[string]any{
		"order_id":           uuid.New(),
		"from":               "pending",
		"to":                 "confirmed",
		"payment_validated":  true,
		"inventory_reserved": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, handler, "/api/v1/orders/transition", map[string]any{
		"order_id": uuid.New(),
		"from":     "delivered",
		"to":       "pending",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "ILLEGAL_TRANSITION", envelope.Error.Code)
	require.Equal(t, "delivered", envelope.Error.Details["from"])
}

func TestOrderRefundPreviewEndpoint(t *testing.T) {
	handler := newTestRouter(t, nil)
	itemID := uuid.New()

	moneyJSON := func(cents int64) map[string]string {
		return map[string]string{
			"amount":   fmt.Sprintf("%d.%02d", cents/100, cents%100),
			"currency": "USD",
		}
	}

	order := map[string]any{
		"id":       uuid.New(),
		"currency": "USD",
		"status":   "delivered",
		"items": []map[string]any{
			{
				"id":         itemID,
				"product_id": uuid.New(),
				"unit_price": moneyJSON(4000),
				"quantity":   1,
			},
		},
		"subtotal":       moneyJSON(10000),
		"discount_total": moneyJSON(0),
		"tax":            moneyJSON(800),
		"shipping":       moneyJSON(500),
		"total":          moneyJSON(11300),
		"free_shipping":  false,
	}

	rec := postJSON(t, handler, "/api/v1/orders/refund-preview", map[string]any{
		"order":           order,
		"item_ids":        []uuid.UUID{itemID},
		"refund_shipping": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Items map[string]string `json:"items"`
			Tax   map[string]string `json:"tax"`
			Total map[string]string `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "40.00", envelope.Data.Items["amount"])
	require.Equal(t, "3.20", envelope.Data.Tax["amount"])
	require.Equal(t, "43.20", envelope.Data.Total["amount"])

	// A pending order has nothing to refund yet.
	order["status"] = "pending"
	rec = postJSON(t, handler, "/api/v1/orders/refund-preview", map[string]any{
		"order": order,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}
