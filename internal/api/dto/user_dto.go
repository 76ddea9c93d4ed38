package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserRequest payload for creating or updating a user.
type UserRequest struct {
	FIO      string `json:"fio"`
	Phone    string `json:"phone"`
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
