package model

import "time"

type ChoreStatus string

const (
	ChoreStatusPending   ChoreStatus = "pending"
	ChoreStatusCompleted ChoreStatus = "completed"
	ChoreStatusVerified  ChoreStatus = "verified"
	ChoreStatusRejected  ChoreStatus = "rejected"
)

// Terminal reports whether no further transitions are allowed from s.
func (s ChoreStatus) Terminal() bool {
	return s == ChoreStatusVerified || s == ChoreStatusRejected
}

const (
	FrequencyOnce    = "once"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Recurring reports whether a chore with this frequency should be re-created
// as a fresh pending instance once the current one reaches a terminal state.
func Recurring(frequency string) bool {
	switch frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Chore struct {
	ID          int64       `json:"id"`
	FamilyID    int64       `json:"family_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CoinReward  int         `json:"coin_reward"`
	PointReward int         `json:"point_reward"`
	Frequency   string      `json:"frequency"`
	Status      ChoreStatus `json:"status"`
	CategoryID  *int64      `json:"category_id"`
	AssignedTo  *int64      `json:"assigned_to"`
	CreatedBy   *int64      `json:"created_by"`
	CompletedAt *time.Time  `json:"completed_at"`
	VerifiedAt  *time.Time  `json:"verified_at"`
	VerifiedBy  *int64      `json:"verified_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ChoreCategory groups a family's chores for display and filtering. Chores
// reference a category optionally; deleting a category detaches its chores.
type ChoreCategory struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
