package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/checkout-api/internal/model"
	"github.com/storefront-labs/checkout-api/internal/repository"
)

const (
	codePrefix    = "DISCOUNT-"
	codeSuffixLen = 8
	mintAttempts  = 5
)

// ErrMintExhausted is returned when minting keeps colliding with existing
// codes. With UUID-derived suffixes this indicates a broken index, not
// bad luck.
var ErrMintExhausted = errors.New("could not mint a unique discount code")

// Redemption is the outcome of redeeming a code. Applied is false when the
// code was unknown, already used, or empty; redemption fails open and the
// caller proceeds without a discount.
type Redemption struct {
	Code    string
	Percent decimal.Decimal
	Applied bool
}

type DiscountService struct {
	repo     repository.DiscountRepository
	interval int64
	percent  decimal.Decimal
}

func NewDiscountService(repo repository.DiscountRepository, interval, percent int) *DiscountService {
	return &DiscountService{
		repo:     repo,
		interval: int64(interval),
		percent:  decimal.NewFromInt(int64(percent)),
	}
}

// IsEligible reports whether the order following priorOrderCount existing
// orders is the Nth in sequence.
func (s *DiscountService) IsEligible(priorOrderCount int64) bool {
	return (priorOrderCount+1)%s.interval == 0
}

// Mint generates and persists a new unused code. The unique index on the
// code field turns a collision into a retry with a fresh suffix.
func (s *DiscountService) Mint(ctx context.Context) (*model.DiscountCode, error) {
	for range mintAttempts {
		code := &model.DiscountCode{Code: newCode(), Used: false}
		err := s.repo.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		return nil, fmt.Errorf("mint discount code: %w", err)
	}
	return nil, ErrMintExhausted
}

// Redeem claims the code if it exists and is unused, yielding the fixed
// discount percentage. Anything else yields a zero discount with no
// error; checkout must never block on a bad code.
func (s *DiscountService) Redeem(ctx context.Context, code string) (Redemption, error) {
	if code == "" {
		return Redemption{}, nil
	}
	claimed, err := s.repo.ClaimUnused(ctx, code)
	if err != nil {
		return Redemption{}, fmt.Errorf("redeem discount code: %w", err)
	}
	if claimed == nil {
		return Redemption{Code: code}, nil
	}
	return Redemption{Code: claimed.Code, Percent: s.percent, Applied: true}, nil
}

func newCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return codePrefix + suffix[:codeSuffixLen]
}
