package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/port"
)

const (
	// ShippingFee applies below the free-shipping threshold, in minor units.
	ShippingFee int64 = 500
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold int64 = 4000

	priceCacheTTL     = 30 * time.Second
	promoUsageTimeout = 5 * time.Second
)

// TotalCalculator recomputes order totals exclusively from catalog data.
// Client-submitted prices are never trusted; they are only compared against
// the authoritative price for anomaly logging. The calculator performs no
// persistence and is safe to re-invoke.
type TotalCalculator struct {
	catalog port.CatalogRepository
	cache   port.PriceCache
	promos  port.PromotionEvaluator
	logger  *zap.Logger
}

func NewTotalCalculator(catalog port.CatalogRepository, cache port.PriceCache, promos port.PromotionEvaluator, logger *zap.Logger) *TotalCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TotalCalculator{
		catalog: catalog,
		cache:   cache,
		promos:  promos,
		logger:  logger,
	}
}

// ComputeTotals resolves every requested item against the catalog and builds
// the money breakdown. If any product fails to resolve the whole order fails
// with domain.ErrProductNotFound and no partial totals are returned.
func (c *TotalCalculator) ComputeTotals(ctx context.Context, items []domain.OrderRequestItem, promoCode string) ([]domain.ResolvedLineItem, domain.OrderTotals, error) {
	resolved := make([]domain.ResolvedLineItem, 0, len(items))
	var subtotal int64

	for _, item := range items {
		price, err := c.resolvePrice(ctx, item.ProductID)
		if err != nil {
			return nil, domain.OrderTotals{}, err
		}

		if item.ClientPrice != 0 && item.ClientPrice != price {
			c.logger.Warn("client price deviates from authoritative price",
				zap.String("product_id", item.ProductID),
				zap.Int64("client_price", item.ClientPrice),
				zap.Int64("authoritative_price", price),
			)
		}

		resolved = append(resolved, domain.ResolvedLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
		subtotal += price * int64(item.Quantity)
	}

	totals := domain.OrderTotals{Subtotal: subtotal}
	if subtotal < FreeShippingThreshold {
		totals.Shipping = ShippingFee
	}

	preDiscount := subtotal + totals.Shipping
	if code := normalizePromoCode(promoCode); code != "" {
		totals.Discount = c.evaluatePromotion(ctx, code, preDiscount)
	}

	totals.Total = preDiscount - totals.Discount
	if totals.Total < 0 {
		totals.Total = 0
	}

	return resolved, totals, nil
}

// resolvePrice is cache-then-fetch. Cache errors are logged and fall through
// to the catalog; the cache is never required for correctness.
func (c *TotalCalculator) resolvePrice(ctx context.Context, productID string) (int64, error) {
	if price, ok, err := c.cache.GetPrice(ctx, productID); err != nil {
		c.logger.Warn("price cache read failed", zap.String("product_id", productID), zap.Error(err))
	} else if ok {
		return price, nil
	}

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("catalog lookup: %w", err)
	}
	if product == nil || product.Price <= 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}

	if err := c.cache.SetPrice(ctx, productID, product.Price, priceCacheTTL); err != nil {
		c.logger.Warn("price cache write failed", zap.String("product_id", productID), zap.Error(err))
	}

	return product.Price, nil
}

// evaluatePromotion returns the discount for a normalized code, clamped so
// the total can never go negative. An invalid code or evaluator failure
// yields no discount rather than failing the order. Usage is incremented on
// a detached goroutine so a slow or failing counter never blocks checkout.
func (c *TotalCalculator) evaluatePromotion(ctx context.Context, code string, amount int64) int64 {
	result, err := c.promos.Evaluate(ctx, code, amount)
	if err != nil {
		c.logger.Warn("promotion evaluation failed", zap.String("code", code), zap.Error(err))
		return 0
	}
	if !result.Valid {
		c.logger.Info("promotion code rejected", zap.String("code", code))
		return 0
	}

	promotionID := result.PromotionID
	go func() {
		usageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), promoUsageTimeout)
		defer cancel()
		if err := c.promos.IncrementUsage(usageCtx, promotionID); err != nil {
			c.logger.Warn("promotion usage increment failed",
				zap.String("promotion_id", promotionID), zap.Error(err))
		}
	}()

	discount := result.Discount
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
