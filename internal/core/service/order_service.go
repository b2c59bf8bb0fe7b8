package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/port"
)

const orderNumberPrefix = "ORD"

// OrderService turns an untrusted cart submission into a committed order.
// The pipeline for one attempt is: compute totals, fraud bounds, advisory
// stock pre-check, header insert, line-item insert, per-line stock decrement.
// Any failure after the header insert triggers a compensating rollback that
// restores decremented stock and deletes items then header; there is no
// single storage transaction spanning the decrement, so the intermediate
// "rows exist but stock decrement failed" state is cleaned up explicitly.
type OrderService struct {
	calc    *TotalCalculator
	catalog port.CatalogRepository
	orders  port.OrderRepository
	rewards *RewardPipeline
	logger  *zap.Logger
}

func NewOrderService(calc *TotalCalculator, catalog port.CatalogRepository, orders port.OrderRepository, rewards *RewardPipeline, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		calc:    calc,
		catalog: catalog,
		orders:  orders,
		rewards: rewards,
		logger:  logger,
	}
}

// CreateOrder executes the full creation pipeline. ownerID is empty for
// guest checkout; rewards only run for authenticated owners.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.OrderRequest, ownerID string) (domain.OrderSummary, error) {
	if len(req.Items) == 0 {
		return domain.OrderSummary{}, fmt.Errorf("%w: order has no items", domain.ErrInvalidQuantity)
	}

	resolved, totals, err := s.calc.ComputeTotals(ctx, req.Items, req.PromoCode)
	if err != nil {
		return domain.OrderSummary{}, err
	}

	if err := ValidateOrderBounds(resolved, totals.Total); err != nil {
		if errors.Is(err, domain.ErrTotalTooHigh) {
			// Probable abuse, not an ordinary validation miss.
			s.logger.Warn("order total exceeds fraud ceiling",
				zap.Int64("total", totals.Total), zap.String("owner_id", ownerID))
		}
		return domain.OrderSummary{}, err
	}

	// Advisory pre-check: short-circuits obviously doomed orders, but the
	// atomic decrement below remains the sole authority on stock.
	for _, item := range resolved {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return domain.OrderSummary{}, &domain.PersistenceError{Op: "stock pre-check", Err: err}
		}
		if product == nil {
			return domain.OrderSummary{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return domain.OrderSummary{}, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, item.ProductID)
		}
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:          uuid.NewString(),
		OrderNumber: generateOrderNumber(now),
		UserID:      ownerID,
		Status:      domain.OrderStatusPending,
		Totals:      totals,
		PromoCode:   normalizePromoCode(req.PromoCode),
		Shipping:    req.Shipping,
		Attribution: req.Attribution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lineItems := make([]domain.OrderLineItem, 0, len(resolved))
	for _, item := range resolved {
		lineItems = append(lineItems, domain.OrderLineItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	if err := s.orders.InsertOrder(ctx, order); err != nil {
		return domain.OrderSummary{}, &domain.PersistenceError{Op: "order insert", Err: err}
	}

	if err := s.orders.InsertLineItems(ctx, lineItems); err != nil {
		s.rollback(ctx, order, nil)
		return domain.OrderSummary{}, &domain.PersistenceError{Op: "line item insert", Err: err}
	}

	decremented := make([]domain.OrderLineItem, 0, len(lineItems))
	for _, item := range lineItems {
		if _, err := s.catalog.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.rollback(ctx, order, decremented)
			if errors.Is(err, domain.ErrInsufficientStock) {
				return domain.OrderSummary{}, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, item.ProductID)
			}
			return domain.OrderSummary{}, &domain.PersistenceError{Op: "stock decrement", Err: err}
		}
		decremented = append(decremented, item)
	}

	s.logger.Info("order committed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", totals.Total),
	)

	if ownerID != "" && s.rewards != nil {
		if !s.rewards.Enqueue(order) {
			s.logger.Warn("reward queue full, dropping post-commit task",
				zap.String("order_id", order.ID))
		}
	}

	return domain.OrderSummary{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       totals.Total,
		CreatedAt:   order.CreatedAt,
	}, nil
}

// GetOrder returns a committed order with its line items. Callers facing a
// timed-out creation should query here before retrying.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLineItem, error) {
	return s.orders.GetOrder(ctx, orderID)
}

// CancelOrder cancels a pending order and restores its stock. A failed
// restore never resurrects the cancelled order, but it is reported to the
// caller so the restore can be retried.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	order, items, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCancelled)
	if err != nil {
		return &domain.PersistenceError{Op: "status transition", Err: err}
	}
	if !ok {
		return fmt.Errorf("%w: order %s is %s", domain.ErrNotCancellable, orderID, order.Status)
	}

	var restoreErr error
	for _, item := range items {
		if err := s.catalog.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("stock restore failed on cancellation",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			restoreErr = errors.Join(restoreErr, err)
		}
	}
	if restoreErr != nil {
		return &domain.PersistenceError{Op: "cancellation stock restore", Err: restoreErr}
	}

	return nil
}

// rollback undoes a partially written order: restore any decremented stock,
// delete line items, then delete the header. Line items are deleted even when
// the batch insert reported failure, because a failed batch may still have
// persisted part of its rows. Rollback failures are logged and never mask the
// original error. It runs detached from the caller's cancellation so a
// timed-out request still cleans up.
func (s *OrderService) rollback(ctx context.Context, order domain.Order, decremented []domain.OrderLineItem) {
	ctx = context.WithoutCancel(ctx)

	for _, item := range decremented {
		if err := s.catalog.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("rollback stock restore failed",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}

	if err := s.orders.DeleteLineItems(ctx, order.ID); err != nil {
		s.logger.Error("rollback line item delete failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}

	if err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
		s.logger.Error("rollback order delete failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}
}

// generateOrderNumber builds a human-readable, collision-resistant number:
// prefix, base36 timestamp, random base36 suffix. Uniqueness is
// probabilistic, which suffices for order numbers; the primary key is the
// UUID order id.
func generateOrderNumber(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(uint64(binary.BigEndian.Uint32(u[:4])), 36)
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper(orderNumberPrefix + "-" + ts + "-" + suffix)
}
