package validation

import "github.com/repairdesk/repair-service/internal/domain"

// Slot names a user-referencing column as "<table>.<column>".
type Slot string

const (
	SlotRequestClient Slot = "repair_request.client_id"
	SlotRequestMaster Slot = "repair_request.master_id"
	SlotCommentMaster Slot = "request_comment.master_id"
	SlotHelpCreator   Slot = "help_request.created_by_master_id"
	SlotHelpQuality   Slot = "help_request.quality_manager_id"
	SlotHelpAssigned  Slot = "help_request.assigned_master_id"
	SlotRequestStatus Slot = "repair_request.status_id"
)

// Capabilities lists the roles a user must hold to be referenced from a slot.
var Capabilities = map[Slot][]domain.RoleName{
	SlotRequestClient: {domain.RoleClient},
	SlotRequestMaster: {domain.RoleMaster, domain.RoleSpecialist},
	SlotCommentMaster: {domain.RoleMaster, domain.RoleSpecialist},
	SlotHelpCreator:   {domain.RoleMaster, domain.RoleSpecialist},
	SlotHelpQuality:   {domain.RoleQualityManager, domain.RoleManager},
	SlotHelpAssigned:  {domain.RoleMaster, domain.RoleSpecialist},
}

// Allowed reports whether role may be referenced from slot.
func Allowed(slot Slot, role domain.RoleName) bool {
	for _, r := range Capabilities[slot] {
		if r == role {
			return true
		}
	}
	return false
}

func requiredNames(slot Slot) []string {
	roles := Capabilities[slot]
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
