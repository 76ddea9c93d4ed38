package postgres

import (
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/repairdesk/repair-service/internal/domain"
)

const (
	roleColumns    = `id, name`
	statusColumns  = `id, name, is_final`
	namedColumns   = `id, name`
	modelColumns   = `id, equipment_type_id, name`
	userColumns    = `id, fio, phone, login, password_hash, role_id`
	requestColumns = `id, start_date, equipment_model_id, issue_type_id, problem_description, status_id,
        completion_date, due_date, repair_parts_legacy, master_id, client_id, created_at, updated_at`
	commentColumns = `id, request_id, master_id, message, created_at`
	reqPartColumns = `id, request_id, spare_part_id, quantity, note`
	helpColumns    = `id, request_id, created_by_master_id, quality_manager_id, assigned_master_id, status,
        message, resolution_note, proposed_due_date, created_at, closed_at`
)

func scanRole(row pgx.Row) (domain.UserRole, error) {
	var r domain.UserRole
	err := row.Scan(&r.ID, &r.Name)
	return r, err
}

func scanStatus(row pgx.Row) (domain.RequestStatus, error) {
	var st domain.RequestStatus
	err := row.Scan(&st.ID, &st.Name, &st.IsFinal)
	return st, err
}

func scanEquipmentType(row pgx.Row) (domain.EquipmentType, error) {
	var et domain.EquipmentType
	err := row.Scan(&et.ID, &et.Name)
	return et, err
}

func scanModel(row pgx.Row) (domain.EquipmentModel, error) {
	var m domain.EquipmentModel
	err := row.Scan(&m.ID, &m.EquipmentTypeID, &m.Name)
	return m, err
}

func scanIssueType(row pgx.Row) (domain.IssueType, error) {
	var it domain.IssueType
	err := row.Scan(&it.ID, &it.Name)
	return it, err
}

func scanSparePart(row pgx.Row) (domain.SparePart, error) {
	var p domain.SparePart
	err := row.Scan(&p.ID, &p.Name)
	return p, err
}

func scanUser(row pgx.Row) (domain.AppUser, error) {
	var u domain.AppUser
	err := row.Scan(&u.ID, &u.FIO, &u.Phone, &u.Login, &u.PasswordHash, &u.RoleID)
	return u, err
}

func scanRequest(row pgx.Row) (domain.RepairRequest, error) {
	var r domain.RepairRequest
	err := row.Scan(
		&r.ID,
		&r.StartDate,
		&r.EquipmentModelID,
		&r.IssueTypeID,
		&r.ProblemDescription,
		&r.StatusID,
		&r.CompletionDate,
		&r.DueDate,
		&r.RepairPartsLegacy,
		&r.MasterID,
		&r.ClientID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}
	r.StartDate = domain.DateOf(r.StartDate)
	r.CompletionDate = datePtr(r.CompletionDate)
	r.DueDate = datePtr(r.DueDate)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func scanComment(row pgx.Row) (domain.RequestComment, error) {
	var c domain.RequestComment
	err := row.Scan(&c.ID, &c.RequestID, &c.MasterID, &c.Message, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

func scanRequestPart(row pgx.Row) (domain.RequestSparePart, error) {
	var p domain.RequestSparePart
	err := row.Scan(&p.ID, &p.RequestID, &p.SparePartID, &p.Quantity, &p.Note)
	return p, err
}

func scanHelp(row pgx.Row) (domain.HelpRequest, error) {
	var (
		h      domain.HelpRequest
		status string
	)
	err := row.Scan(
		&h.ID,
		&h.RequestID,
		&h.CreatedByMasterID,
		&h.QualityManagerID,
		&h.AssignedMasterID,
		&status,
		&h.Message,
		&h.ResolutionNote,
		&h.ProposedDueDate,
		&h.CreatedAt,
		&h.ClosedAt,
	)
	if err != nil {
		return h, err
	}
	h.Status = domain.HelpStatus(status)
	h.ProposedDueDate = datePtr(h.ProposedDueDate)
	h.CreatedAt = h.CreatedAt.UTC()
	if h.ClosedAt != nil {
		closed := h.ClosedAt.UTC()
		h.ClosedAt = &closed
	}
	return h, nil
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}
