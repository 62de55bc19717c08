package user

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	SessionKey string
}

type LoginInput struct {
	Email      string
	Password   string
	SessionKey string
}

// AuthResult is what a successful register or login hands back.
type AuthResult struct {
	Token         string `json:"-"`
	User          *User  `json:"user"`
	ClaimedOrders int64  `json:"claimed_orders,omitempty"`
}

type Profile struct {
	UserID           uint      `json:"user_id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone"`
	ReceiveMarketing bool      `json:"receive_marketing"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type UpdateProfileParams struct {
	UserID           uint
	FullName         *string
	Phone            *string
	ReceiveMarketing *bool
}
