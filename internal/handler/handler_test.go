package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailpos/promo-engine/internal/domain/product"
	"github.com/retailpos/promo-engine/internal/domain/promotion"
	"github.com/retailpos/promo-engine/internal/domain/store"
)

// --- Mock implementations ---

type mockValidator struct {
	result *promotion.Result
	err    error

	lastReq promotion.ValidateRequest
}

func (m *mockValidator) Validate(_ context.Context, req promotion.ValidateRequest) (*promotion.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

type mockProductRepo struct {
	products []product.Product
	err      error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		for i := range m.products {
			if m.products[i].ID == id {
				out = append(out, m.products[i])
			}
		}
	}
	return out, nil
}

type mockStoreRepo struct {
	store *store.Store
	err   error
}

func (m *mockStoreRepo) GetByID(_ context.Context, _ string) (*store.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.store, nil
}

type mockAdminRepo struct {
	promos map[string]*promotion.Promotion
	stats  *promotion.Stats
	err    error

	created   *promotion.Promotion
	updated   *promotion.Promotion
	deleted   string
	addedCode *promotion.DiscountCode
}

func (m *mockAdminRepo) GetByID(_ context.Context, id string) (*promotion.Promotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.promos[id]
	if !ok {
		return nil, promotion.ErrNotFound
	}
	return p, nil
}

func (m *mockAdminRepo) ListByStore(_ context.Context, storeID string) ([]promotion.Promotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []promotion.Promotion
	for _, p := range m.promos {
		if p.StoreID == storeID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockAdminRepo) Create(_ context.Context, p *promotion.Promotion) error {
	m.created = p
	return m.err
}

func (m *mockAdminRepo) Update(_ context.Context, p *promotion.Promotion) error {
	m.updated = p
	return m.err
}

func (m *mockAdminRepo) SoftDelete(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *mockAdminRepo) AddCode(_ context.Context, c *promotion.DiscountCode) error {
	m.addedCode = c
	return m.err
}

func (m *mockAdminRepo) Stats(_ context.Context, _ string) (*promotion.Stats, error) {
	return m.stats, m.err
}

type mockUsageRepo struct {
	reserveErr error
	reserved   []promotion.Reservation
}

func (m *mockUsageRepo) CountByCustomer(_ context.Context, _, _ string) (int, error) {
	return 0, nil
}

func (m *mockUsageRepo) Reserve(_ context.Context, res *promotion.Reservation) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved = append(m.reserved, *res)
	return nil
}

type mockKeyRepo struct {
	info *APIKeyInfo
	err  error
}

func (m *mockKeyRepo) FindByHash(_ context.Context, _ string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// --- Helpers ---

type testDeps struct {
	validator *mockValidator
	products  *mockProductRepo
	stores    *mockStoreRepo
	admin     *mockAdminRepo
	usage     *mockUsageRepo
}

func allowAll(next http.Handler) http.Handler { return next }

func newTestHandler(deps testDeps) http.Handler {
	if deps.validator == nil {
		deps.validator = &mockValidator{}
	}
	if deps.products == nil {
		deps.products = &mockProductRepo{}
	}
	if deps.stores == nil {
		deps.stores = &mockStoreRepo{store: &store.Store{ID: "store-1", Timezone: "UTC"}}
	}
	if deps.admin == nil {
		deps.admin = &mockAdminRepo{}
	}
	if deps.usage == nil {
		deps.usage = &mockUsageRepo{}
	}
	h := NewHandler(
		deps.validator,
		promotion.NewRedeemer(deps.usage),
		deps.products,
		deps.stores,
		deps.admin,
		nil,
	)
	return h.Routes(allowAll)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func activeAdminPromo() *promotion.Promotion {
	return &promotion.Promotion{
		ID:            "promo-1",
		StoreID:       "store-1",
		Name:          "Ten Percent",
		Type:          promotion.TypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
}
