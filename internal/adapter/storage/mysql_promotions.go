package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mercata/orderflow/internal/port"
)

// PromotionAdapter evaluates promotion codes against the promotions table.
// Codes are stored uppercase; callers normalize before evaluating.
type PromotionAdapter struct {
	db *sql.DB
}

func NewPromotionAdapter(db *sql.DB) *PromotionAdapter {
	return &PromotionAdapter{db: db}
}

func (p *PromotionAdapter) Evaluate(ctx context.Context, code string, amount int64) (port.PromotionResult, error) {
	var (
		id              string
		discountPercent int64
		minAmount       int64
		active          bool
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, discount_percent, min_amount, active
		FROM promotions WHERE code = ?`, code,
	).Scan(&id, &discountPercent, &minAmount, &active)

	if errors.Is(err, sql.ErrNoRows) {
		return port.PromotionResult{}, nil
	}
	if err != nil {
		return port.PromotionResult{}, fmt.Errorf("query promotion: %w", err)
	}

	if !active || amount < minAmount {
		return port.PromotionResult{}, nil
	}

	return port.PromotionResult{
		Valid:       true,
		Discount:    amount * discountPercent / 100,
		PromotionID: id,
	}, nil
}

func (p *PromotionAdapter) IncrementUsage(ctx context.Context, promotionID string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE promotions SET usage_count = usage_count + 1 WHERE id = ?`,
		promotionID,
	)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	return nil
}
