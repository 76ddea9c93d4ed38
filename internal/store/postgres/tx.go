package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

type writeTx struct {
	view
	now time.Time
}

// insert writes one row and stores the assigned id. An explicit id is kept
// and the table sequence is moved past it.
func (t *writeTx) insert(ctx context.Context, table string, id *int64, cols []string, args []any) error {
	explicit := *id != 0
	if explicit {
		cols = append([]string{"id"}, cols...)
		args = append([]any{*id}, args...)
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if err := t.q.QueryRow(ctx, query, args...).Scan(id); err != nil {
		return mapError(err)
	}
	if explicit {
		_, err := t.q.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence($1, 'id'), GREATEST((SELECT MAX(id) FROM `+table+`), 1))`, table)
		return err
	}
	return nil
}

// exec runs a statement that must touch exactly one row.
func (t *writeTx) exec(ctx context.Context, query string, args ...any) error {
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *writeTx) InsertRole(ctx context.Context, role *domain.UserRole) error {
	return t.insert(ctx, "user_role", &role.ID, []string{"name"}, []any{string(role.Name)})
}

func (t *writeTx) UpsertStatus(ctx context.Context, status *domain.RequestStatus) error {
	const query = `
        INSERT INTO request_status (name, is_final) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET is_final = EXCLUDED.is_final
        RETURNING id`
	if err := t.q.QueryRow(ctx, query, status.Name, status.IsFinal).Scan(&status.ID); err != nil {
		return mapError(err)
	}
	return nil
}

func (t *writeTx) InsertEquipmentType(ctx context.Context, et *domain.EquipmentType) error {
	return t.insert(ctx, "equipment_type", &et.ID, []string{"name"}, []any{et.Name})
}

func (t *writeTx) InsertEquipmentModel(ctx context.Context, model *domain.EquipmentModel) error {
	return t.insert(ctx, "equipment_model", &model.ID,
		[]string{"equipment_type_id", "name"},
		[]any{model.EquipmentTypeID, model.Name})
}

func (t *writeTx) InsertIssueType(ctx context.Context, it *domain.IssueType) error {
	return t.insert(ctx, "issue_type", &it.ID, []string{"name"}, []any{it.Name})
}

func (t *writeTx) InsertSparePart(ctx context.Context, part *domain.SparePart) error {
	return t.insert(ctx, "spare_part", &part.ID, []string{"name"}, []any{part.Name})
}

func (t *writeTx) InsertUser(ctx context.Context, user *domain.AppUser) error {
	return t.insert(ctx, "app_user", &user.ID,
		[]string{"fio", "phone", "login", "password_hash", "role_id"},
		[]any{user.FIO, user.Phone, user.Login, user.PasswordHash, user.RoleID})
}

func (t *writeTx) UpdateUser(ctx context.Context, user *domain.AppUser) error {
	const query = `
        UPDATE app_user SET fio=$1, phone=$2, login=$3, password_hash=$4, role_id=$5
        WHERE id=$6`
	return t.exec(ctx, query, user.FIO, user.Phone, user.Login, user.PasswordHash, user.RoleID, user.ID)
}

func (t *writeTx) DeleteUser(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM app_user WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return apperrors.NewConflict("user is still referenced", map[string]any{"user_id": id})
	}
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *writeTx) InsertRepairRequest(ctx context.Context, req *domain.RepairRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = t.now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	return t.insert(ctx, "repair_request", &req.ID,
		[]string{
			"start_date", "equipment_model_id", "issue_type_id", "problem_description", "status_id",
			"completion_date", "due_date", "repair_parts_legacy", "master_id", "client_id", "created_at", "updated_at",
		},
		[]any{
			req.StartDate, req.EquipmentModelID, req.IssueTypeID, req.ProblemDescription, req.StatusID,
			req.CompletionDate, req.DueDate, req.RepairPartsLegacy, req.MasterID, req.ClientID, req.CreatedAt, req.UpdatedAt,
		})
}

func (t *writeTx) UpdateRepairRequest(ctx context.Context, req *domain.RepairRequest) error {
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = t.now
	}
	const query = `
        UPDATE repair_request SET start_date=$1, equipment_model_id=$2, issue_type_id=$3, problem_description=$4,
            status_id=$5, completion_date=$6, due_date=$7, repair_parts_legacy=$8, master_id=$9, client_id=$10, updated_at=$11
        WHERE id=$12
        RETURNING created_at`
	err := t.q.QueryRow(ctx, query,
		req.StartDate,
		req.EquipmentModelID,
		req.IssueTypeID,
		req.ProblemDescription,
		req.StatusID,
		req.CompletionDate,
		req.DueDate,
		req.RepairPartsLegacy,
		req.MasterID,
		req.ClientID,
		req.UpdatedAt,
		req.ID,
	).Scan(&req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return mapError(err)
	}
	req.CreatedAt = req.CreatedAt.UTC()
	return nil
}

func (t *writeTx) DeleteRepairRequest(ctx context.Context, id int64) error {
	return t.exec(ctx, `DELETE FROM repair_request WHERE id=$1`, id)
}

func (t *writeTx) InsertComment(ctx context.Context, comment *domain.RequestComment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = t.now
	}
	return t.insert(ctx, "request_comment", &comment.ID,
		[]string{"request_id", "master_id", "message", "created_at"},
		[]any{comment.RequestID, comment.MasterID, comment.Message, comment.CreatedAt})
}

func (t *writeTx) InsertRequestSparePart(ctx context.Context, part *domain.RequestSparePart) error {
	if part.Quantity <= 0 {
		return apperrors.NewValidationError("quantity must be positive", map[string]any{"field": "quantity"})
	}
	return t.insert(ctx, "request_spare_part", &part.ID,
		[]string{"request_id", "spare_part_id", "quantity", "note"},
		[]any{part.RequestID, part.SparePartID, part.Quantity, part.Note})
}

func (t *writeTx) DeleteRequestSparePart(ctx context.Context, id int64) error {
	return t.exec(ctx, `DELETE FROM request_spare_part WHERE id=$1`, id)
}

func (t *writeTx) InsertHelpRequest(ctx context.Context, help *domain.HelpRequest) error {
	if err := checkHelpStatus(help.Status); err != nil {
		return err
	}
	if help.CreatedAt.IsZero() {
		help.CreatedAt = t.now
	}
	return t.insert(ctx, "help_request", &help.ID,
		[]string{
			"request_id", "created_by_master_id", "quality_manager_id", "assigned_master_id", "status",
			"message", "resolution_note", "proposed_due_date", "created_at", "closed_at",
		},
		[]any{
			help.RequestID, help.CreatedByMasterID, help.QualityManagerID, help.AssignedMasterID, string(help.Status),
			help.Message, help.ResolutionNote, help.ProposedDueDate, help.CreatedAt, help.ClosedAt,
		})
}

func (t *writeTx) UpdateHelpRequest(ctx context.Context, help *domain.HelpRequest) error {
	if err := checkHelpStatus(help.Status); err != nil {
		return err
	}
	const query = `
        UPDATE help_request SET request_id=$1, created_by_master_id=$2, quality_manager_id=$3, assigned_master_id=$4,
            status=$5, message=$6, resolution_note=$7, proposed_due_date=$8, closed_at=$9
        WHERE id=$10`
	return t.exec(ctx, query,
		help.RequestID,
		help.CreatedByMasterID,
		help.QualityManagerID,
		help.AssignedMasterID,
		string(help.Status),
		help.Message,
		help.ResolutionNote,
		help.ProposedDueDate,
		help.ClosedAt,
		help.ID,
	)
}

func checkHelpStatus(status domain.HelpStatus) error {
	if status != domain.HelpStatusOpen && status != domain.HelpStatusClosed {
		return apperrors.NewValidationError("invalid help request status", map[string]any{"status": string(status)})
	}
	return nil
}
