package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/checkout-api/internal/dto"
	"github.com/storefront-labs/checkout-api/internal/repository"
)

// StatsCacheKey is shared with the order worker, which drops the entry
// whenever a checkout completes.
const StatsCacheKey = "admin:stats"

const statsCacheTTL = 60 * time.Second

type AdminService struct {
	orderRepo   repository.OrderRepository
	discounts   *DiscountService
	redisClient *redis.Client
}

func NewAdminService(orderRepo repository.OrderRepository, discounts *DiscountService, redisClient *redis.Client) *AdminService {
	return &AdminService{orderRepo: orderRepo, discounts: discounts, redisClient: redisClient}
}

// Stats aggregates purchase rollups across all orders. Pure reads; the
// result is cached briefly since every number is a full-collection scan.
func (s *AdminService) Stats(ctx context.Context) (*dto.AdminStatsResponse, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, StatsCacheKey).Result(); err == nil {
			var stats dto.AdminStatsResponse
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	itemsPurchased, err := s.orderRepo.TotalItemsPurchased(ctx)
	if err != nil {
		return nil, fmt.Errorf("total items purchased: %w", err)
	}
	purchaseAmount, err := s.orderRepo.TotalPurchaseAmount(ctx)
	if err != nil {
		return nil, fmt.Errorf("total purchase amount: %w", err)
	}
	discountedPrice, err := s.orderRepo.TotalDiscountedPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("total discounted price: %w", err)
	}
	codes, err := s.orderRepo.DistinctDiscountCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct discount codes: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}

	stats := &dto.AdminStatsResponse{
		TotalItemsPurchased:  itemsPurchased,
		TotalPurchaseAmount:  purchaseAmount,
		TotalDiscountAmount:  purchaseAmount.Sub(discountedPrice),
		TotalDiscountedPrice: discountedPrice,
		DiscountCodes:        codes,
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redisClient.Set(ctx, StatsCacheKey, data, statsCacheTTL)
		}
	}
	return stats, nil
}

// GenerateNthOrderCode is the standalone admin helper: it mints a code
// when the current order count lands on the discount interval. It is not
// part of the checkout path, which applies its own eligibility rule.
func (s *AdminService) GenerateNthOrderCode(ctx context.Context) (string, bool, error) {
	count, err := s.orderRepo.Count(ctx)
	if err != nil {
		return "", false, fmt.Errorf("count orders: %w", err)
	}
	if count == 0 || count%s.discounts.interval != 0 {
		return "", false, nil
	}
	code, err := s.discounts.Mint(ctx)
	if err != nil {
		return "", false, err
	}
	return code.Code, true, nil
}
