package model

import "time"

type Goal struct {
	ID             int64      `json:"id"`
	FamilyID       int64      `json:"family_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	PointsRequired int        `json:"points_required"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	CompletedBy    *int64     `json:"completed_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
