package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailpos/promo-engine/internal/domain/product"
	"github.com/retailpos/promo-engine/internal/domain/promotion"
)

type validateRequest struct {
	Code       string             `json:"code" validate:"required"`
	CustomerID string             `json:"customerId"`
	OrderItems []orderItemRequest `json:"orderItems" validate:"required,min=1,dive"`
	// CartTotal is accepted for compatibility with the checkout client but
	// the subtotal is always recomputed from the catalog's unit prices.
	CartTotal float64 `json:"cartTotal"`
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// ValidateCode is the checkout hot path: it resolves the cart against the
// product catalog, runs the promotion validator, and reports either the
// computed discount or a typed rejection. It never consumes quota.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")

	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.input.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := make([]string, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		ids = append(ids, it.ProductID)
	}
	products, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		zctx.From(ctx).Error("resolve products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	catalog := make(map[string]product.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	items := make([]promotion.Item, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		p, ok := catalog[it.ProductID]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown product: "+it.ProductID)
			return
		}
		items = append(items, promotion.Item{
			ProductID:  p.ID,
			CategoryID: p.CategoryID,
			Price:      p.Price,
			Quantity:   it.Quantity,
		})
	}

	res, err := h.validator.Validate(ctx, promotion.ValidateRequest{
		StoreID:    storeID,
		Code:       req.Code,
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	writeBody(w, http.StatusOK, encodeValidateResult(res))
}

// writeValidationError maps domain rejections to HTTP statuses: an unknown
// code is 404, policy rejections are 400, everything else is a fault.
func (h *Handler) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, promotion.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, promotion.ErrNotYetActive),
		errors.Is(err, promotion.ErrExpired),
		errors.Is(err, promotion.ErrOutsideWindow),
		errors.Is(err, promotion.ErrUsageLimitReached),
		errors.Is(err, promotion.ErrCustomerLimitReached),
		errors.Is(err, promotion.ErrNoEligibleItems):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("validate code", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func encodeValidateResult(res *promotion.Result) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("valid")
	e.Bool(true)
	e.FieldStart("promotion")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(res.Promotion.ID)
	e.FieldStart("name")
	e.Str(res.Promotion.Name)
	e.FieldStart("type")
	e.Str(string(res.Promotion.Type))
	e.FieldStart("discountValue")
	encodeDecimal(&e, res.Promotion.DiscountValue)
	e.ObjEnd()
	e.FieldStart("discountCode")
	e.Str(res.DiscountCode)
	e.FieldStart("discountAmount")
	encodeDecimal(&e, res.DiscountAmount)
	e.FieldStart("eligibleItems")
	e.ArrStart()
	for _, it := range res.EligibleItems {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("unitPrice")
		encodeDecimal(&e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// encodeDecimal writes a decimal as a bare JSON number. decimal.Decimal
// renders exact digits, so this never produces float artifacts.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.String())
}
