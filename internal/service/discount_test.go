package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/checkout-api/internal/model"
	"github.com/storefront-labs/checkout-api/internal/repository"
)

type mockDiscountRepo struct {
	codes map[string]*model.DiscountCode
}

func newMockDiscountRepo() *mockDiscountRepo {
	return &mockDiscountRepo{codes: make(map[string]*model.DiscountCode)}
}

func (m *mockDiscountRepo) Create(_ context.Context, code *model.DiscountCode) error {
	if _, exists := m.codes[code.Code]; exists {
		return repository.ErrDuplicateCode
	}
	stored := *code
	m.codes[code.Code] = &stored
	return nil
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	if dc, ok := m.codes[code]; ok {
		copied := *dc
		return &copied, nil
	}
	return nil, nil
}

func (m *mockDiscountRepo) ClaimUnused(_ context.Context, code string) (*model.DiscountCode, error) {
	dc, ok := m.codes[code]
	if !ok || dc.Used {
		return nil, nil
	}
	dc.Used = true
	copied := *dc
	return &copied, nil
}

func TestDiscountService_IsEligible(t *testing.T) {
	svc := NewDiscountService(newMockDiscountRepo(), 5, 10)

	// Eligible iff (priorOrderCount+1) is a multiple of 5.
	for prior := int64(0); prior <= 20; prior++ {
		want := (prior+1)%5 == 0
		assert.Equal(t, want, svc.IsEligible(prior), "priorOrderCount=%d", prior)
	}
}

func TestDiscountService_Mint(t *testing.T) {
	repo := newMockDiscountRepo()
	svc := NewDiscountService(repo, 5, 10)

	code, err := svc.Mint(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code.Code, "DISCOUNT-"))
	assert.False(t, code.Used)
	assert.Contains(t, repo.codes, code.Code)

	// A second mint yields a distinct code.
	other, err := svc.Mint(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, code.Code, other.Code)
}

func TestDiscountService_Redeem_ValidCode(t *testing.T) {
	repo := newMockDiscountRepo()
	repo.codes["DISCOUNT-ABC"] = &model.DiscountCode{Code: "DISCOUNT-ABC"}
	svc := NewDiscountService(repo, 5, 10)

	redemption, err := svc.Redeem(context.Background(), "DISCOUNT-ABC")
	require.NoError(t, err)
	assert.True(t, redemption.Applied)
	assert.True(t, redemption.Percent.Equal(decimal.NewFromInt(10)))
	assert.True(t, repo.codes["DISCOUNT-ABC"].Used)
}

func TestDiscountService_Redeem_FailsOpen(t *testing.T) {
	repo := newMockDiscountRepo()
	repo.codes["DISCOUNT-USED"] = &model.DiscountCode{Code: "DISCOUNT-USED", Used: true}
	svc := NewDiscountService(repo, 5, 10)
	ctx := context.Background()

	for _, code := range []string{"", "UNKNOWN", "DISCOUNT-USED"} {
		redemption, err := svc.Redeem(ctx, code)
		require.NoError(t, err, "code %q", code)
		assert.False(t, redemption.Applied, "code %q", code)
		assert.True(t, redemption.Percent.IsZero(), "code %q", code)
	}
}

func TestDiscountService_Redeem_SingleUse(t *testing.T) {
	repo := newMockDiscountRepo()
	repo.codes["DISCOUNT-ONCE"] = &model.DiscountCode{Code: "DISCOUNT-ONCE"}
	svc := NewDiscountService(repo, 5, 10)
	ctx := context.Background()

	first, err := svc.Redeem(ctx, "DISCOUNT-ONCE")
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := svc.Redeem(ctx, "DISCOUNT-ONCE")
	require.NoError(t, err)
	assert.False(t, second.Applied)
}
