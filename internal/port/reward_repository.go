package port

import (
	"context"

	"github.com/mercata/orderflow/internal/core/domain"
)

// RewardRepository backs the post-commit reward pipeline. Every method is
// best effort from the pipeline's point of view: failures are logged and
// never affect the committed order.
type RewardRepository interface {
	// AwardLoyaltyPoints credits points to a user, tagged with the order and a
	// human-readable reason.
	AwardLoyaltyPoints(ctx context.Context, userID, orderID string, points int64, reason string) error

	// PendingReferral returns the pending referral for a referred user, nil
	// when there is none.
	PendingReferral(ctx context.Context, userID string) (*domain.Referral, error)

	// CompleteReferral marks a referral completed, recording the qualifying
	// order.
	CompleteReferral(ctx context.Context, referralID, orderID string) error

	// AwardBadge grants a badge to a user, idempotently.
	AwardBadge(ctx context.Context, userID, badge string) error
}
