package domain

import "time"

// Product is the catalog view the order pipeline needs: the authoritative
// unit price and the current stock level. Price is in minor currency units.
type Product struct {
	ID        string
	Title     string
	Price     int64
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Referral is a pending invite record consulted by the post-commit reward
// pipeline on a user's first order.
type Referral struct {
	ID         string
	ReferrerID string
	ReferredID string
	Status     ReferralStatus
	CreatedAt  time.Time
}

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)
