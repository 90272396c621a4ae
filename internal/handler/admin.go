package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/retailpos/promo-engine/internal/domain/promotion"
	"github.com/retailpos/promo-engine/internal/domain/store"
)

type promotionPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required"`

	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumPurchase decimal.Decimal  `json:"minimumPurchase"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount"`

	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`

	UsageLimit         *int `json:"usageLimit"`
	CustomerUsageLimit int  `json:"customerUsageLimit"`

	IsActive *bool `json:"isActive"`

	ApplicableCategories []string `json:"applicableCategories"`
	ApplicableProducts   []string `json:"applicableProducts"`

	BuyQuantity      int             `json:"buyQuantity"`
	GetQuantity      int             `json:"getQuantity"`
	GetDiscountType  string          `json:"getDiscountType"`
	GetDiscountValue decimal.Decimal `json:"getDiscountValue"`

	TimeBasedType   string   `json:"timeBasedType"`
	ActiveDays      []int    `json:"activeDays"`
	ActiveTimeStart string   `json:"activeTimeStart"`
	ActiveTimeEnd   string   `json:"activeTimeEnd"`
	SpecificDates   []string `json:"specificDates"`
}

type promotionResponse struct {
	ID          string `json:"id"`
	StoreID     string `json:"storeId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	State       string `json:"state"`

	DiscountValue   decimal.Decimal  `json:"discountValue"`
	MinimumPurchase decimal.Decimal  `json:"minimumPurchase"`
	MaximumDiscount *decimal.Decimal `json:"maximumDiscount,omitempty"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	UsageLimit         *int `json:"usageLimit,omitempty"`
	UsageCount         int  `json:"usageCount"`
	CustomerUsageLimit int  `json:"customerUsageLimit,omitempty"`

	IsActive bool `json:"isActive"`

	ApplicableCategories []string `json:"applicableCategories,omitempty"`
	ApplicableProducts   []string `json:"applicableProducts,omitempty"`

	BuyQuantity      int             `json:"buyQuantity,omitempty"`
	GetQuantity      int             `json:"getQuantity,omitempty"`
	GetDiscountType  string          `json:"getDiscountType,omitempty"`
	GetDiscountValue decimal.Decimal `json:"getDiscountValue,omitempty"`

	TimeBasedType   string   `json:"timeBasedType,omitempty"`
	ActiveDays      []int    `json:"activeDays,omitempty"`
	ActiveTimeStart string   `json:"activeTimeStart,omitempty"`
	ActiveTimeEnd   string   `json:"activeTimeEnd,omitempty"`
	SpecificDates   []string `json:"specificDates,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *promotionPayload) toDomain(storeID string) *promotion.Promotion {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	days := make([]time.Weekday, 0, len(p.ActiveDays))
	for _, d := range p.ActiveDays {
		days = append(days, time.Weekday(d))
	}
	return &promotion.Promotion{
		StoreID:     storeID,
		Name:        p.Name,
		Description: p.Description,

		Type:          promotion.Type(p.Type),
		DiscountValue: p.DiscountValue,

		MinimumPurchase: p.MinimumPurchase,
		MaximumDiscount: p.MaximumDiscount,

		StartDate: p.StartDate,
		EndDate:   p.EndDate,

		UsageLimit:         p.UsageLimit,
		CustomerUsageLimit: p.CustomerUsageLimit,

		IsActive: active,

		ApplicableCategories: p.ApplicableCategories,
		ApplicableProducts:   p.ApplicableProducts,

		BuyQuantity:      p.BuyQuantity,
		GetQuantity:      p.GetQuantity,
		GetDiscountType:  promotion.BonusType(p.GetDiscountType),
		GetDiscountValue: p.GetDiscountValue,

		ScheduleKind:    promotion.ScheduleKind(p.TimeBasedType),
		ActiveDays:      days,
		ActiveTimeStart: p.ActiveTimeStart,
		ActiveTimeEnd:   p.ActiveTimeEnd,
		SpecificDates:   p.SpecificDates,
	}
}

func toResponse(p *promotion.Promotion, now time.Time) promotionResponse {
	days := make([]int, 0, len(p.ActiveDays))
	for _, d := range p.ActiveDays {
		days = append(days, int(d))
	}
	return promotionResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		State:       string(p.StateAt(now)),

		DiscountValue:   p.DiscountValue,
		MinimumPurchase: p.MinimumPurchase,
		MaximumDiscount: p.MaximumDiscount,

		StartDate: p.StartDate,
		EndDate:   p.EndDate,

		UsageLimit:         p.UsageLimit,
		UsageCount:         p.UsageCount,
		CustomerUsageLimit: p.CustomerUsageLimit,

		IsActive: p.IsActive,

		ApplicableCategories: p.ApplicableCategories,
		ApplicableProducts:   p.ApplicableProducts,

		BuyQuantity:      p.BuyQuantity,
		GetQuantity:      p.GetQuantity,
		GetDiscountType:  string(p.GetDiscountType),
		GetDiscountValue: p.GetDiscountValue,

		TimeBasedType:   string(p.ScheduleKind),
		ActiveDays:      days,
		ActiveTimeStart: p.ActiveTimeStart,
		ActiveTimeEnd:   p.ActiveTimeEnd,
		SpecificDates:   p.SpecificDates,

		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CreatePromotion registers a new promotion for the store after checking the
// type-specific configuration invariants.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := chi.URLParam(r, "storeID")

	if _, err := h.stores.GetByID(ctx, storeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "store not found")
			return
		}
		zctx.From(ctx).Error("lookup store", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var payload promotionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.input.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := payload.toDomain(storeID)
	if err := promotion.ValidateConfig(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	if err := h.admin.Create(ctx, p); err != nil {
		zctx.From(ctx).Error("create promotion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusCreated, toResponse(p, time.Now()))
}

// ListPromotions returns all non-deleted promotions of the store.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	promos, err := h.admin.ListByStore(ctx, chi.URLParam(r, "storeID"))
	if err != nil {
		zctx.From(ctx).Error("list promotions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now()
	out := make([]promotionResponse, 0, len(promos))
	for i := range promos {
		out = append(out, toResponse(&promos[i], now))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GetPromotion returns a single promotion with its derived lifecycle state.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.lookupPromotion(w, r)
	if p == nil || err != nil {
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(p, time.Now()))
}

// UpdatePromotion replaces the mutable fields of a promotion. The payload
// carries the full configuration; usage counters are never touched.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, err := h.lookupPromotion(w, r)
	if existing == nil || err != nil {
		return
	}

	var payload promotionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.input.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := payload.toDomain(existing.StoreID)
	p.ID = existing.ID
	p.UsageCount = existing.UsageCount
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	if err := promotion.ValidateConfig(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.admin.Update(ctx, p); err != nil {
		zctx.From(ctx).Error("update promotion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, toResponse(p, time.Now()))
}

// DeletePromotion soft-deletes a promotion. Its codes stop resolving
// immediately, but the redemption ledger is kept.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.lookupPromotion(w, r)
	if p == nil || err != nil {
		return
	}
	if err := h.admin.SoftDelete(ctx, p.ID); err != nil {
		zctx.From(ctx).Error("delete promotion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PromotionStats summarizes the redemption ledger of a promotion.
func (h *Handler) PromotionStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.lookupPromotion(w, r)
	if p == nil || err != nil {
		return
	}
	stats, err := h.admin.Stats(ctx, p.ID)
	if err != nil {
		zctx.From(ctx).Error("promotion stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, struct {
		TotalRedemptions int             `json:"totalRedemptions"`
		TotalDiscount    decimal.Decimal `json:"totalDiscount"`
		UniqueCustomers  int             `json:"uniqueCustomers"`
	}{
		TotalRedemptions: stats.TotalRedemptions,
		TotalDiscount:    stats.TotalDiscount,
		UniqueCustomers:  stats.UniqueCustomers,
	})
}

type addCodeRequest struct {
	Code string `json:"code" validate:"required,min=3,max=64"`
}

// AddCode attaches a new redeemable code to a promotion and drops any cached
// not-found entry for it.
func (h *Handler) AddCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.lookupPromotion(w, r)
	if p == nil || err != nil {
		return
	}

	var req addCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.input.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := &promotion.DiscountCode{
		ID:          uuid.New().String(),
		PromotionID: p.ID,
		Code:        strings.ToUpper(req.Code),
		IsActive:    true,
	}
	if err := h.admin.AddCode(ctx, code); err != nil {
		zctx.From(ctx).Error("add code", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(p.StoreID, code.Code)
	}
	writeJSON(w, r, http.StatusCreated, struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}{ID: code.ID, Code: code.Code})
}

// lookupPromotion resolves {promotionID} within {storeID}, writing the error
// response itself. A nil promotion with nil error means the response was
// already written.
func (h *Handler) lookupPromotion(w http.ResponseWriter, r *http.Request) (*promotion.Promotion, error) {
	ctx := r.Context()

	p, err := h.admin.GetByID(ctx, chi.URLParam(r, "promotionID"))
	if err != nil {
		if errors.Is(err, promotion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "promotion not found")
			return nil, nil
		}
		zctx.From(ctx).Error("lookup promotion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, err
	}
	if p.StoreID != chi.URLParam(r, "storeID") {
		writeError(w, http.StatusNotFound, "promotion not found")
		return nil, nil
	}
	return p, nil
}
