package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpos/promo-engine/internal/domain/store"
)

// --- Mock implementations ---

type mockPromoRepo struct {
	promo *Promotion
	code  *DiscountCode
	err   error

	lastCode string
	calls    int
}

func (m *mockPromoRepo) FindByCode(_ context.Context, _, code string) (*Promotion, *DiscountCode, error) {
	m.lastCode = code
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.promo, m.code, nil
}

type mockUsageRepo struct {
	customerCount int
	countErr      error
	reserveErr    error

	reserved []Reservation
	counts   int
}

func (m *mockUsageRepo) CountByCustomer(_ context.Context, _, _ string) (int, error) {
	m.counts++
	return m.customerCount, m.countErr
}

func (m *mockUsageRepo) Reserve(_ context.Context, res *Reservation) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved = append(m.reserved, *res)
	return nil
}

type mockStoreRepo struct {
	store *store.Store
	err   error
}

func (m *mockStoreRepo) GetByID(_ context.Context, _ string) (*store.Store, error) {
	return m.store, m.err
}

// --- Helpers ---

func testStore(tz string) *store.Store {
	return &store.Store{ID: "store-1", Name: "Test Store", Timezone: tz}
}

func activePromo() *Promotion {
	return &Promotion{
		ID:            "promo-1",
		StoreID:       "store-1",
		Name:          "Ten Percent",
		Type:          TypePercentage,
		DiscountValue: d("10"),
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		IsActive:      true,
	}
}

func newValidator(repo *mockPromoRepo, usage *mockUsageRepo, now time.Time) *RepoValidator {
	v := NewRepoValidator(repo, usage, &mockStoreRepo{store: testStore("UTC")})
	v.now = func() time.Time { return now }
	return v
}

var midYear = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// --- Tests ---

func TestValidate_Success(t *testing.T) {
	repo := &mockPromoRepo{
		promo: activePromo(),
		code:  &DiscountCode{ID: "code-1", PromotionID: "promo-1", Code: "SAVE10"},
	}
	usage := &mockUsageRepo{}
	v := newValidator(repo, usage, midYear)

	res, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1",
		Code:    "save10",
		Items:   []Item{item("p1", "c1", "20.00", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "promo-1", res.Promotion.ID)
	assert.Equal(t, "SAVE10", res.DiscountCode)
	assert.True(t, res.DiscountAmount.Equal(d("2.00")), "got %s", res.DiscountAmount)
	assert.Len(t, res.EligibleItems, 1)
}

func TestValidate_CodeIsCaseInsensitive(t *testing.T) {
	repo := &mockPromoRepo{
		promo: activePromo(),
		code:  &DiscountCode{Code: "SAVE10"},
	}
	v := newValidator(repo, &mockUsageRepo{}, midYear)

	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1",
		Code:    "sAvE10",
		Items:   []Item{item("p1", "c1", "20.00", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", repo.lastCode, "lookup must be upper-cased")
}

func TestValidate_UnknownCode(t *testing.T) {
	v := newValidator(&mockPromoRepo{err: ErrCodeNotFound}, &mockUsageRepo{}, midYear)

	_, err := v.Validate(context.Background(), ValidateRequest{StoreID: "store-1", Code: "NOPE"})
	require.ErrorIs(t, err, ErrCodeNotFound)
}

func TestValidate_NotYetActive(t *testing.T) {
	repo := &mockPromoRepo{promo: activePromo(), code: &DiscountCode{Code: "SAVE10"}}
	v := newValidator(repo, &mockUsageRepo{}, time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC))

	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrNotYetActive)
}

func TestValidate_Expired(t *testing.T) {
	repo := &mockPromoRepo{promo: activePromo(), code: &DiscountCode{Code: "SAVE10"}}
	v := newValidator(repo, &mockUsageRepo{}, time.Date(2027, 1, 1, 0, 0, 1, 0, time.UTC))

	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrExpired)
}

func TestValidate_WindowUsesStoreTimezone(t *testing.T) {
	// Daily window 16:00-18:00. At 21:00 UTC a New York store reads 17:00
	// local during DST, so the promotion is live there while a UTC store
	// would reject it.
	promo := activePromo()
	promo.Type = TypeTimeBased
	promo.DiscountValue = d("15")
	promo.ScheduleKind = ScheduleDaily
	promo.ActiveTimeStart = "16:00:00"
	promo.ActiveTimeEnd = "18:00:00"
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "HAPPY"}}
	nowUTC := time.Date(2026, 6, 15, 21, 0, 0, 0, time.UTC)

	v := NewRepoValidator(repo, &mockUsageRepo{}, &mockStoreRepo{store: testStore("America/New_York")})
	v.now = func() time.Time { return nowUTC }
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "HAPPY",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.NoError(t, err)

	v = newValidator(repo, &mockUsageRepo{}, nowUTC) // UTC store
	_, err = v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "HAPPY",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrOutsideWindow)
}

func TestValidate_TimeBasedOutsideWindow(t *testing.T) {
	promo := activePromo()
	promo.Type = TypeTimeBased
	promo.DiscountValue = d("15")
	promo.ScheduleKind = ScheduleDaily
	promo.ActiveTimeStart = "16:00:00"
	promo.ActiveTimeEnd = "18:00:00"
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "HAPPY"}}

	v := newValidator(repo, &mockUsageRepo{}, midYear) // 12:00, outside 16-18
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "HAPPY",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrOutsideWindow)

	v = newValidator(repo, &mockUsageRepo{}, time.Date(2026, 6, 15, 17, 0, 0, 0, time.UTC))
	res, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "HAPPY",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.NoError(t, err)
	assert.True(t, res.DiscountAmount.Equal(d("3.00")), "got %s", res.DiscountAmount)
}

func TestValidate_UsageLimitReached(t *testing.T) {
	promo := activePromo()
	limit := 5
	promo.UsageLimit = &limit
	promo.UsageCount = 5
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "SAVE10"}}

	v := newValidator(repo, &mockUsageRepo{}, midYear)
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestValidate_CustomerLimitReached(t *testing.T) {
	promo := activePromo()
	promo.CustomerUsageLimit = 1
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "SAVE10"}}
	usage := &mockUsageRepo{customerCount: 1}

	v := newValidator(repo, usage, midYear)
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10", CustomerID: "cust-1",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrCustomerLimitReached)
}

func TestValidate_AnonymousSkipsCustomerQuota(t *testing.T) {
	promo := activePromo()
	promo.CustomerUsageLimit = 1
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "SAVE10"}}
	usage := &mockUsageRepo{customerCount: 99}

	v := newValidator(repo, usage, midYear)
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.NoError(t, err)
	assert.Zero(t, usage.counts, "anonymous validation must not query the ledger")
}

func TestValidate_NoEligibleItems(t *testing.T) {
	promo := activePromo()
	promo.ApplicableProducts = []string{"p9"}
	repo := &mockPromoRepo{promo: promo, code: &DiscountCode{Code: "SAVE10"}}

	v := newValidator(repo, &mockUsageRepo{}, midYear)
	_, err := v.Validate(context.Background(), ValidateRequest{
		StoreID: "store-1", Code: "SAVE10",
		Items: []Item{item("p1", "c1", "20.00", 1)},
	})
	require.ErrorIs(t, err, ErrNoEligibleItems)
}

func TestValidate_IsDryRun(t *testing.T) {
	repo := &mockPromoRepo{promo: activePromo(), code: &DiscountCode{Code: "SAVE10"}}
	usage := &mockUsageRepo{}

	v := newValidator(repo, usage, midYear)
	for range 3 {
		_, err := v.Validate(context.Background(), ValidateRequest{
			StoreID: "store-1", Code: "SAVE10",
			Items: []Item{item("p1", "c1", "20.00", 1)},
		})
		require.NoError(t, err)
	}
	assert.Empty(t, usage.reserved, "validation must never write the ledger")
}

func TestValidate_RepositoryFault(t *testing.T) {
	v := newValidator(&mockPromoRepo{err: errors.New("db down")}, &mockUsageRepo{}, midYear)

	_, err := v.Validate(context.Background(), ValidateRequest{StoreID: "store-1", Code: "SAVE10"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeNotFound)
}
