package memory

import (
	"context"
	"time"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

type tx struct {
	view
	now time.Time
}

func (t *tx) InsertRole(_ context.Context, role *domain.UserRole) error {
	if _, dup := t.s.roles[role.ID]; dup && role.ID != 0 {
		return apperrors.NewUniquenessViolation("user_role", "id")
	}
	for _, r := range t.s.roles {
		if r.Name == role.Name {
			return apperrors.NewUniquenessViolation("user_role", "name")
		}
	}
	role.ID = t.s.nextID("user_role", role.ID)
	t.s.roles[role.ID] = *role
	return nil
}

func (t *tx) UpsertStatus(_ context.Context, status *domain.RequestStatus) error {
	for id, st := range t.s.statuses {
		if st.Name == status.Name {
			st.IsFinal = status.IsFinal
			t.s.statuses[id] = st
			status.ID = id
			return nil
		}
	}
	if _, dup := t.s.statuses[status.ID]; dup && status.ID != 0 {
		return apperrors.NewUniquenessViolation("request_status", "id")
	}
	status.ID = t.s.nextID("request_status", status.ID)
	t.s.statuses[status.ID] = *status
	return nil
}

func (t *tx) InsertEquipmentType(_ context.Context, et *domain.EquipmentType) error {
	if _, dup := t.s.equipmentTypes[et.ID]; dup && et.ID != 0 {
		return apperrors.NewUniquenessViolation("equipment_type", "id")
	}
	for _, existing := range t.s.equipmentTypes {
		if existing.Name == et.Name {
			return apperrors.NewUniquenessViolation("equipment_type", "name")
		}
	}
	et.ID = t.s.nextID("equipment_type", et.ID)
	t.s.equipmentTypes[et.ID] = *et
	return nil
}

func (t *tx) InsertEquipmentModel(_ context.Context, model *domain.EquipmentModel) error {
	if _, ok := t.s.equipmentTypes[model.EquipmentTypeID]; !ok {
		return apperrors.NewForeignKeyMissing("equipment_model.equipment_type_id")
	}
	if _, dup := t.s.equipmentModels[model.ID]; dup && model.ID != 0 {
		return apperrors.NewUniquenessViolation("equipment_model", "id")
	}
	for _, existing := range t.s.equipmentModels {
		if existing.EquipmentTypeID == model.EquipmentTypeID && existing.Name == model.Name {
			return apperrors.NewUniquenessViolation("equipment_model", "equipment_type_id,name")
		}
	}
	model.ID = t.s.nextID("equipment_model", model.ID)
	t.s.equipmentModels[model.ID] = *model
	return nil
}

func (t *tx) InsertIssueType(_ context.Context, it *domain.IssueType) error {
	if _, dup := t.s.issueTypes[it.ID]; dup && it.ID != 0 {
		return apperrors.NewUniquenessViolation("issue_type", "id")
	}
	for _, existing := range t.s.issueTypes {
		if existing.Name == it.Name {
			return apperrors.NewUniquenessViolation("issue_type", "name")
		}
	}
	it.ID = t.s.nextID("issue_type", it.ID)
	t.s.issueTypes[it.ID] = *it
	return nil
}

func (t *tx) InsertSparePart(_ context.Context, part *domain.SparePart) error {
	if _, dup := t.s.spareParts[part.ID]; dup && part.ID != 0 {
		return apperrors.NewUniquenessViolation("spare_part", "id")
	}
	for _, existing := range t.s.spareParts {
		if existing.Name == part.Name {
			return apperrors.NewUniquenessViolation("spare_part", "name")
		}
	}
	part.ID = t.s.nextID("spare_part", part.ID)
	t.s.spareParts[part.ID] = *part
	return nil
}

func (t *tx) checkUser(user *domain.AppUser) error {
	if _, ok := t.s.roles[user.RoleID]; !ok {
		return apperrors.NewForeignKeyMissing("app_user.role_id")
	}
	for _, existing := range t.s.users {
		if existing.ID != user.ID && existing.Login == user.Login {
			return apperrors.NewUniquenessViolation("app_user", "login")
		}
	}
	return nil
}

func (t *tx) InsertUser(_ context.Context, user *domain.AppUser) error {
	if _, dup := t.s.users[user.ID]; dup && user.ID != 0 {
		return apperrors.NewUniquenessViolation("app_user", "id")
	}
	if err := t.checkUser(user); err != nil {
		return err
	}
	user.ID = t.s.nextID("app_user", user.ID)
	t.s.users[user.ID] = *user
	return nil
}

func (t *tx) UpdateUser(_ context.Context, user *domain.AppUser) error {
	if _, ok := t.s.users[user.ID]; !ok {
		return store.ErrNotFound
	}
	if err := t.checkUser(user); err != nil {
		return err
	}
	t.s.users[user.ID] = *user
	return nil
}

func (t *tx) DeleteUser(_ context.Context, id int64) error {
	if _, ok := t.s.users[id]; !ok {
		return store.ErrNotFound
	}
	if t.userReferenced(id) {
		return apperrors.NewConflict("user is still referenced", map[string]any{"user_id": id})
	}
	delete(t.s.users, id)
	return nil
}

func (t *tx) userReferenced(id int64) bool {
	for _, r := range t.s.requests {
		if r.ClientID == id || (r.MasterID != nil && *r.MasterID == id) {
			return true
		}
	}
	for _, c := range t.s.comments {
		if c.MasterID == id {
			return true
		}
	}
	for _, h := range t.s.helpRequests {
		if h.CreatedByMasterID == id ||
			(h.QualityManagerID != nil && *h.QualityManagerID == id) ||
			(h.AssignedMasterID != nil && *h.AssignedMasterID == id) {
			return true
		}
	}
	return false
}

func (t *tx) checkRequestRefs(req *domain.RepairRequest) error {
	if _, ok := t.s.users[req.ClientID]; !ok {
		return apperrors.NewForeignKeyMissing("repair_request.client_id")
	}
	if req.MasterID != nil {
		if _, ok := t.s.users[*req.MasterID]; !ok {
			return apperrors.NewForeignKeyMissing("repair_request.master_id")
		}
	}
	if _, ok := t.s.equipmentModels[req.EquipmentModelID]; !ok {
		return apperrors.NewForeignKeyMissing("repair_request.equipment_model_id")
	}
	if _, ok := t.s.issueTypes[req.IssueTypeID]; !ok {
		return apperrors.NewForeignKeyMissing("repair_request.issue_type_id")
	}
	if _, ok := t.s.statuses[req.StatusID]; !ok {
		return apperrors.NewForeignKeyMissing("repair_request.status_id")
	}
	return nil
}

func (t *tx) InsertRepairRequest(_ context.Context, req *domain.RepairRequest) error {
	if _, dup := t.s.requests[req.ID]; dup && req.ID != 0 {
		return apperrors.NewUniquenessViolation("repair_request", "id")
	}
	if err := t.checkRequestRefs(req); err != nil {
		return err
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = t.now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	req.ID = t.s.nextID("repair_request", req.ID)
	t.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (t *tx) UpdateRepairRequest(_ context.Context, req *domain.RepairRequest) error {
	existing, ok := t.s.requests[req.ID]
	if !ok {
		return store.ErrNotFound
	}
	if err := t.checkRequestRefs(req); err != nil {
		return err
	}
	req.CreatedAt = existing.CreatedAt
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = t.now
	}
	t.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (t *tx) DeleteRepairRequest(_ context.Context, id int64) error {
	if _, ok := t.s.requests[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.s.requests, id)
	for cid, c := range t.s.comments {
		if c.RequestID == id {
			delete(t.s.comments, cid)
		}
	}
	for pid, p := range t.s.requestParts {
		if p.RequestID == id {
			delete(t.s.requestParts, pid)
		}
	}
	for hid, h := range t.s.helpRequests {
		if h.RequestID == id {
			delete(t.s.helpRequests, hid)
		}
	}
	return nil
}

func (t *tx) InsertComment(_ context.Context, comment *domain.RequestComment) error {
	if _, dup := t.s.comments[comment.ID]; dup && comment.ID != 0 {
		return apperrors.NewUniquenessViolation("request_comment", "id")
	}
	if _, ok := t.s.requests[comment.RequestID]; !ok {
		return apperrors.NewForeignKeyMissing("request_comment.request_id")
	}
	if _, ok := t.s.users[comment.MasterID]; !ok {
		return apperrors.NewForeignKeyMissing("request_comment.master_id")
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = t.now
	}
	comment.ID = t.s.nextID("request_comment", comment.ID)
	t.s.comments[comment.ID] = *comment
	return nil
}

func (t *tx) InsertRequestSparePart(_ context.Context, part *domain.RequestSparePart) error {
	if part.Quantity <= 0 {
		return apperrors.NewValidationError("quantity must be positive", map[string]any{"field": "quantity"})
	}
	if _, dup := t.s.requestParts[part.ID]; dup && part.ID != 0 {
		return apperrors.NewUniquenessViolation("request_spare_part", "id")
	}
	if _, ok := t.s.requests[part.RequestID]; !ok {
		return apperrors.NewForeignKeyMissing("request_spare_part.request_id")
	}
	if _, ok := t.s.spareParts[part.SparePartID]; !ok {
		return apperrors.NewForeignKeyMissing("request_spare_part.spare_part_id")
	}
	for _, existing := range t.s.requestParts {
		if existing.RequestID == part.RequestID && existing.SparePartID == part.SparePartID {
			return apperrors.NewUniquenessViolation("request_spare_part", "request_id,spare_part_id")
		}
	}
	part.ID = t.s.nextID("request_spare_part", part.ID)
	t.s.requestParts[part.ID] = cloneRequestPart(*part)
	return nil
}

func (t *tx) DeleteRequestSparePart(_ context.Context, id int64) error {
	if _, ok := t.s.requestParts[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.s.requestParts, id)
	return nil
}

func (t *tx) checkHelpRefs(help *domain.HelpRequest) error {
	if _, ok := t.s.requests[help.RequestID]; !ok {
		return apperrors.NewForeignKeyMissing("help_request.request_id")
	}
	if _, ok := t.s.users[help.CreatedByMasterID]; !ok {
		return apperrors.NewForeignKeyMissing("help_request.created_by_master_id")
	}
	if help.QualityManagerID != nil {
		if _, ok := t.s.users[*help.QualityManagerID]; !ok {
			return apperrors.NewForeignKeyMissing("help_request.quality_manager_id")
		}
	}
	if help.AssignedMasterID != nil {
		if _, ok := t.s.users[*help.AssignedMasterID]; !ok {
			return apperrors.NewForeignKeyMissing("help_request.assigned_master_id")
		}
	}
	if help.Status != domain.HelpStatusOpen && help.Status != domain.HelpStatusClosed {
		return apperrors.NewValidationError("invalid help request status", map[string]any{"status": string(help.Status)})
	}
	return nil
}

func (t *tx) InsertHelpRequest(_ context.Context, help *domain.HelpRequest) error {
	if _, dup := t.s.helpRequests[help.ID]; dup && help.ID != 0 {
		return apperrors.NewUniquenessViolation("help_request", "id")
	}
	if err := t.checkHelpRefs(help); err != nil {
		return err
	}
	if help.CreatedAt.IsZero() {
		help.CreatedAt = t.now
	}
	help.ID = t.s.nextID("help_request", help.ID)
	t.s.helpRequests[help.ID] = cloneHelp(*help)
	return nil
}

func (t *tx) UpdateHelpRequest(_ context.Context, help *domain.HelpRequest) error {
	existing, ok := t.s.helpRequests[help.ID]
	if !ok {
		return store.ErrNotFound
	}
	if err := t.checkHelpRefs(help); err != nil {
		return err
	}
	help.CreatedAt = existing.CreatedAt
	t.s.helpRequests[help.ID] = cloneHelp(*help)
	return nil
}
