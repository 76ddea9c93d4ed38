package service

import (
	"context"
	"errors"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// Editor is the user changing a repair request.
type Editor struct {
	ID   int64
	Role domain.RoleName
}

func isDeskRole(role domain.RoleName) bool {
	return role == domain.RoleManager || role == domain.RoleOperator || role == domain.RoleQualityManager
}

// CanAssignMaster reports whether role may set the master and due date.
func CanAssignMaster(role domain.RoleName) bool {
	return isDeskRole(role)
}

// CanSetClient reports whether role may file a request for another client.
func CanSetClient(role domain.RoleName) bool {
	return role == domain.RoleManager || role == domain.RoleOperator
}

func canEditRepairParts(role domain.RoleName) bool {
	return role == domain.RoleManager || role == domain.RoleOperator || domain.IsMasterRole(role)
}

// restrictUpdate checks that editor may edit existing and replaces the
// fields its role may not change with their stored values.
func restrictUpdate(ctx context.Context, view store.View, editor Editor, existing domain.RepairRequest, input RequestInput) (RequestInput, error) {
	current, err := view.FindStatus(ctx, existing.StatusID)
	if err != nil {
		return input, err
	}

	switch {
	case isDeskRole(editor.Role):
	case domain.IsMasterRole(editor.Role):
		if existing.MasterID == nil || *existing.MasterID != editor.ID {
			return input, apperrors.NewForbidden("request is not assigned to you")
		}
	case editor.Role == domain.RoleClient:
		if existing.ClientID != editor.ID {
			return input, apperrors.NewForbidden("request is not yours")
		}
		if current.IsFinal {
			return input, apperrors.NewForbidden("a completed request can no longer be edited")
		}
	default:
		return input, apperrors.NewForbidden("role may not edit repair requests")
	}

	if editor.Role == domain.RoleClient {
		input.StatusID = &existing.StatusID
	} else if err := checkStatusChange(ctx, view, editor.Role, current, input.StatusID); err != nil {
		return input, err
	}

	if !CanAssignMaster(editor.Role) {
		input.MasterID = existing.MasterID
		input.DueDate = existing.DueDate
	}
	if !canEditRepairParts(editor.Role) {
		input.RepairParts = existing.RepairPartsLegacy
	}

	switch {
	case editor.Role == domain.RoleClient:
		input.ClientID = editor.ID
	case CanSetClient(editor.Role):
		if input.ClientID == 0 {
			return input, apperrors.NewValidationError("client is required", map[string]any{"field": "client_id"})
		}
	default:
		input.ClientID = existing.ClientID
	}
	return input, nil
}

// checkStatusChange stops masters from moving a final request back to work.
// An unknown status is left to the validator.
func checkStatusChange(ctx context.Context, view store.View, role domain.RoleName, current domain.RequestStatus, next *int64) error {
	if !domain.IsMasterRole(role) || next == nil || *next == current.ID || !current.IsFinal {
		return nil
	}
	status, err := view.FindStatus(ctx, *next)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !status.IsFinal {
		return apperrors.NewForbidden("a completed request cannot be reopened by a master")
	}
	return nil
}
