package domain

import "time"

// Token describes an issued bearer token.
type Token struct {
	Value     string
	UserID    int64
	Role      RoleName
	ExpiresAt time.Time
	IssuedAt  time.Time
}
