package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mercata/orderflow/internal/core/domain"
)

// Reward repository methods, also on MySQLAdapter. All writes here are
// best-effort from the caller's perspective; errors are returned plainly and
// the reward pipeline decides what to log.

func (m *MySQLAdapter) AwardLoyaltyPoints(ctx context.Context, userID, orderID string, points int64, reason string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO loyalty_ledger (id, user_id, order_id, points, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, orderID, points, reason, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("award loyalty points: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) PendingReferral(ctx context.Context, userID string) (*domain.Referral, error) {
	var ref domain.Referral
	err := m.db.QueryRowContext(ctx, `
		SELECT id, referrer_id, referred_id, status, created_at
		FROM referrals WHERE referred_id = ? AND status = ?`,
		userID, domain.ReferralStatusPending,
	).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.Status, &ref.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query referral: %w", err)
	}

	return &ref, nil
}

func (m *MySQLAdapter) CompleteReferral(ctx context.Context, referralID, orderID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE referrals
		SET status = ?, completed_order_id = ?, completed_at = NOW()
		WHERE id = ? AND status = ?`,
		domain.ReferralStatusCompleted, orderID, referralID, domain.ReferralStatusPending,
	)
	if err != nil {
		return fmt.Errorf("complete referral: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("referral %s not pending", referralID)
	}
	return nil
}

func (m *MySQLAdapter) AwardBadge(ctx context.Context, userID, badge string) error {
	// INSERT IGNORE keeps badge grants idempotent across reprocessing.
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO user_badges (user_id, badge, awarded_at)
		VALUES (?, ?, ?)`,
		userID, badge, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("award badge: %w", err)
	}
	return nil
}
