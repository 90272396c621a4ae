// Package handler exposes the promotion engine over HTTP: the validation
// endpoint consumed by checkout, the redemption hook consumed by the order
// pipeline, and the administrative CRUD surface.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/retailpos/promo-engine/internal/domain/product"
	"github.com/retailpos/promo-engine/internal/domain/promotion"
	"github.com/retailpos/promo-engine/internal/domain/store"
)

// AdminRepository is the persistence surface behind the administrative routes.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*promotion.Promotion, error)
	ListByStore(ctx context.Context, storeID string) ([]promotion.Promotion, error)
	Create(ctx context.Context, p *promotion.Promotion) error
	Update(ctx context.Context, p *promotion.Promotion) error
	SoftDelete(ctx context.Context, id string) error
	AddCode(ctx context.Context, c *promotion.DiscountCode) error
	Stats(ctx context.Context, id string) (*promotion.Stats, error)
}

// CacheInvalidator drops cached code resolutions after admin mutations.
type CacheInvalidator interface {
	Invalidate(storeID, code string)
}

// Handler implements the HTTP surface, delegating business logic to the
// injected domain collaborators.
type Handler struct {
	validator promotion.Validator
	redeemer  *promotion.Redeemer
	products  product.Repository
	stores    store.Repository
	admin     AdminRepository
	cache     CacheInvalidator // may be nil
	input     *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
// cache may be nil when no code cache is in front of the repository.
func NewHandler(
	v promotion.Validator,
	redeemer *promotion.Redeemer,
	products product.Repository,
	stores store.Repository,
	admin AdminRepository,
	cache CacheInvalidator,
) *Handler {
	return &Handler{
		validator: v,
		redeemer:  redeemer,
		products:  products,
		stores:    stores,
		admin:     admin,
		cache:     cache,
		input:     validator.New(),
	}
}

// Routes builds the chi router. The secured middleware guards every route
// that mutates state or exposes cross-customer data; validation stays open
// to the cart frontend.
func (h *Handler) Routes(secured func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/v1/stores/{storeID}/promotions", func(r chi.Router) {
		r.Post("/validate", h.ValidateCode)

		r.Group(func(r chi.Router) {
			r.Use(secured)
			r.Post("/", h.CreatePromotion)
			r.Get("/", h.ListPromotions)
			r.Get("/{promotionID}", h.GetPromotion)
			r.Put("/{promotionID}", h.UpdatePromotion)
			r.Delete("/{promotionID}", h.DeletePromotion)
			r.Get("/{promotionID}/stats", h.PromotionStats)
			r.Post("/{promotionID}/codes", h.AddCode)
			r.Post("/{promotionID}/redeem", h.Redeem)
		})
	})
	return r
}
