package promotion

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeem_RecordsReservation(t *testing.T) {
	usage := &mockUsageRepo{}
	r := NewRedeemer(usage)

	err := r.Redeem(context.Background(), &Reservation{
		PromotionID:    "promo-1",
		CustomerID:     "cust-1",
		DiscountAmount: d("2.50"),
	})
	require.NoError(t, err)
	require.Len(t, usage.reserved, 1)
	assert.Equal(t, "promo-1", usage.reserved[0].PromotionID)
	assert.True(t, usage.reserved[0].DiscountAmount.Equal(d("2.50")))
}

func TestRedeem_RequiresPromotionID(t *testing.T) {
	r := NewRedeemer(&mockUsageRepo{})

	err := r.Redeem(context.Background(), &Reservation{DiscountAmount: d("1.00")})
	require.Error(t, err)
}

func TestRedeem_RejectsNegativeAmount(t *testing.T) {
	r := NewRedeemer(&mockUsageRepo{})

	err := r.Redeem(context.Background(), &Reservation{
		PromotionID:    "promo-1",
		DiscountAmount: d("-1.00"),
	})
	require.Error(t, err)
}

func TestRedeem_PassesThroughQuotaRejections(t *testing.T) {
	for _, sentinel := range []error{ErrUsageLimitReached, ErrCustomerLimitReached} {
		r := NewRedeemer(&mockUsageRepo{reserveErr: sentinel})
		err := r.Redeem(context.Background(), &Reservation{
			PromotionID:    "promo-1",
			DiscountAmount: d("1.00"),
		})
		require.ErrorIs(t, err, sentinel)
	}
}

func TestRedeem_WrapsInfrastructureErrors(t *testing.T) {
	r := NewRedeemer(&mockUsageRepo{reserveErr: errors.New("db down")})

	err := r.Redeem(context.Background(), &Reservation{
		PromotionID:    "promo-1",
		DiscountAmount: d("1.00"),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsageLimitReached)
}
