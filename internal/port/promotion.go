package port

import "context"

// PromotionResult is the outcome of evaluating a code against a pre-discount
// amount. Discount is in minor currency units, already capped by the
// evaluator's own rules; the calculator still clamps it against the total.
type PromotionResult struct {
	Valid       bool
	Discount    int64
	PromotionID string
}

// PromotionEvaluator validates promotion codes. IncrementUsage is
// fire-and-forget: a failure must never block or fail an order.
type PromotionEvaluator interface {
	Evaluate(ctx context.Context, code string, amount int64) (PromotionResult, error)
	IncrementUsage(ctx context.Context, promotionID string) error
}
