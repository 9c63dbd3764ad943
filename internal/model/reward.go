package model

import "time"

// UnlimitedQuantity marks a reward with no stock tracking.
const UnlimitedQuantity = -1

type Reward struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	IsFamily    bool      `json:"is_family"`
	Quantity    int       `json:"quantity"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RedemptionStatus string

const (
	RedemptionStatusPending  RedemptionStatus = "pending"
	RedemptionStatusApproved RedemptionStatus = "approved"
	RedemptionStatusDenied   RedemptionStatus = "denied"
)

// RewardRedemption records a request to spend currency on a reward. Cost and
// IsFamily are snapshotted at request time so later reward edits never change
// what was debited or what a denial refunds.
type RewardRedemption struct {
	ID       int64            `json:"id"`
	RewardID int64            `json:"reward_id"`
	FamilyID int64            `json:"family_id"`
	UserID   int64            `json:"user_id"`
	Cost     int              `json:"cost"`
	IsFamily bool             `json:"is_family"`
	Status   RedemptionStatus `json:"status"`
	// StockDecremented marks that the request took a unit of finite stock, so
	// a denial restores only what was actually taken.
	StockDecremented bool       `json:"stock_decremented"`
	ResolvedBy       *int64     `json:"resolved_by"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	CreatedAt        time.Time  `json:"created_at"`
}
