package validation

import (
	"context"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
)

// RoleResolver looks up role names through the view of the calling
// transaction, so checks and the write observe the same rows.
type RoleResolver struct {
	view store.View
}

// NewRoleResolver binds a resolver to view.
func NewRoleResolver(view store.View) *RoleResolver {
	return &RoleResolver{view: view}
}

// RoleOf returns the role name of userID or store.ErrNotFound.
func (r *RoleResolver) RoleOf(ctx context.Context, userID int64) (domain.RoleName, error) {
	user, err := r.view.FindUser(ctx, userID)
	if err != nil {
		return "", err
	}
	role, err := r.view.FindRole(ctx, user.RoleID)
	if err != nil {
		return "", err
	}
	return role.Name, nil
}
