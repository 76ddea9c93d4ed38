package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// MinPasswordLength is the shortest accepted plaintext password.
const MinPasswordLength = 6

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if len(strings.TrimSpace(password)) < MinPasswordLength {
		return "", apperrors.NewValidationError("password is too short", map[string]any{
			"field":      "password",
			"min_length": MinPasswordLength,
		})
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
