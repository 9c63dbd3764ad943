package model

import "time"

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Coins        int       `json:"coins"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsParent reports whether the user holds the parent role.
func (u *User) IsParent() bool {
	return u.Role == RoleParent
}
