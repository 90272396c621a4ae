package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailpos/promo-engine/internal/domain/promotion"
)

type redeemRequest struct {
	CustomerID     string          `json:"customerId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Redeem is called by the order pipeline when an order finalizes: it consumes
// one unit of the promotion's quota and writes the ledger row. Quota
// exhaustion is a conflict, not a fault, so concurrent checkouts racing for
// the last redemption get 409.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.lookupPromotion(w, r)
	if p == nil || err != nil {
		return
	}

	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	err = h.redeemer.Redeem(ctx, &promotion.Reservation{
		PromotionID:    p.ID,
		CustomerID:     req.CustomerID,
		DiscountAmount: req.DiscountAmount,
	})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, promotion.ErrUsageLimitReached),
		errors.Is(err, promotion.ErrCustomerLimitReached):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zctx.From(ctx).Error("redeem promotion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
