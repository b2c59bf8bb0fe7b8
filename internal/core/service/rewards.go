package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mercata/orderflow/internal/core/domain"
	"github.com/mercata/orderflow/internal/port"
)

const (
	// One loyalty point per 100 minor units of order total.
	loyaltyPointsDivisor int64 = 100
	// Minimum order total for a referral to qualify.
	referralMinimumTotal int64 = 2500
	referralRewardPoints int64 = 500

	rewardTaskTimeout = 10 * time.Second

	badgeFirstOrder    = "first-order"
	badgeTenOrders     = "ten-orders"
	badgeFiftyOrders   = "fifty-orders"
	badgeNightOwl      = "night-owl"
	nightOwlCutoffHour = 5
)

// RewardPipeline runs best-effort side effects after an order commits:
// loyalty points, referral completion, gamification badges. Orders are
// enqueued by the writer and drained by workers; every step is
// failure-isolated and a failure here never affects the committed order.
type RewardPipeline struct {
	repo   port.RewardRepository
	orders port.OrderRepository
	queue  chan domain.Order
	logger *zap.Logger
}

func NewRewardPipeline(repo port.RewardRepository, orders port.OrderRepository, queueSize int, logger *zap.Logger) *RewardPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardPipeline{
		repo:   repo,
		orders: orders,
		queue:  make(chan domain.Order, queueSize),
		logger: logger,
	}
}

// Enqueue submits a committed order without blocking; returns false when the
// queue is full and the task is dropped.
func (p *RewardPipeline) Enqueue(order domain.Order) bool {
	select {
	case p.queue <- order:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks; workers drain what remains and exit.
func (p *RewardPipeline) Close() {
	close(p.queue)
}

// Worker drains the queue until Close. Run one or more on goroutines.
func (p *RewardPipeline) Worker(id int) {
	for order := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), rewardTaskTimeout)
		p.process(ctx, order)
		cancel()
	}
	p.logger.Debug("reward worker stopped", zap.Int("worker_id", id))
}

func (p *RewardPipeline) process(ctx context.Context, order domain.Order) {
	if order.UserID == "" {
		return
	}

	p.awardLoyalty(ctx, order)

	orderCount, err := p.orders.CountOrdersByUser(ctx, order.UserID)
	if err != nil {
		p.logger.Warn("order count lookup failed, skipping referral and badges",
			zap.String("user_id", order.UserID), zap.Error(err))
		return
	}

	if orderCount == 1 {
		p.completeReferral(ctx, order)
	}
	p.awardBadges(ctx, order, orderCount)
}

func (p *RewardPipeline) awardLoyalty(ctx context.Context, order domain.Order) {
	points := order.Totals.Total / loyaltyPointsDivisor
	if points == 0 {
		return
	}
	if err := p.repo.AwardLoyaltyPoints(ctx, order.UserID, order.ID, points, "order placed"); err != nil {
		p.logger.Warn("loyalty award failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
	}
}

// completeReferral runs only on a user's first order. Both parties are
// rewarded when the order total meets the qualifying minimum.
func (p *RewardPipeline) completeReferral(ctx context.Context, order domain.Order) {
	if order.Totals.Total < referralMinimumTotal {
		return
	}

	referral, err := p.repo.PendingReferral(ctx, order.UserID)
	if err != nil {
		p.logger.Warn("referral lookup failed", zap.String("user_id", order.UserID), zap.Error(err))
		return
	}
	if referral == nil {
		return
	}

	if err := p.repo.CompleteReferral(ctx, referral.ID, order.ID); err != nil {
		p.logger.Warn("referral completion failed",
			zap.String("referral_id", referral.ID), zap.Error(err))
		return
	}

	if err := p.repo.AwardLoyaltyPoints(ctx, referral.ReferrerID, order.ID, referralRewardPoints, "referral reward"); err != nil {
		p.logger.Warn("referrer reward failed",
			zap.String("referral_id", referral.ID), zap.Error(err))
	}
	if err := p.repo.AwardLoyaltyPoints(ctx, order.UserID, order.ID, referralRewardPoints, "referral welcome bonus"); err != nil {
		p.logger.Warn("referred reward failed",
			zap.String("referral_id", referral.ID), zap.Error(err))
	}
}

func (p *RewardPipeline) awardBadges(ctx context.Context, order domain.Order, orderCount int) {
	var badges []string
	switch orderCount {
	case 1:
		badges = append(badges, badgeFirstOrder)
	case 10:
		badges = append(badges, badgeTenOrders)
	case 50:
		badges = append(badges, badgeFiftyOrders)
	}
	if order.CreatedAt.Hour() < nightOwlCutoffHour {
		badges = append(badges, badgeNightOwl)
	}

	for _, badge := range badges {
		if err := p.repo.AwardBadge(ctx, order.UserID, badge); err != nil {
			p.logger.Warn("badge award failed",
				zap.String("user_id", order.UserID),
				zap.String("badge", badge),
				zap.Error(err),
			)
		}
	}
}
