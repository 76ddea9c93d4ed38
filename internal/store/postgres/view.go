package postgres

import (
	"context"

	"github.com/repairdesk/repair-service/internal/domain"
)

// view reads through a transaction. Inside write transactions (lock set) user
// and status rows are read FOR SHARE so a concurrent role or is_final change
// waits for this transaction to finish.
type view struct {
	q    querier
	lock bool
}

func (v *view) share() string {
	if v.lock {
		return " FOR SHARE"
	}
	return ""
}

func (v *view) FindUser(ctx context.Context, id int64) (domain.AppUser, error) {
	return findOne(ctx, v.q, scanUser, `SELECT `+userColumns+` FROM app_user WHERE id=$1`+v.share(), id)
}

func (v *view) FindUserByLogin(ctx context.Context, login string) (domain.AppUser, error) {
	return findOne(ctx, v.q, scanUser, `SELECT `+userColumns+` FROM app_user WHERE login=$1 ORDER BY id LIMIT 1`, login)
}

func (v *view) FindRole(ctx context.Context, id int64) (domain.UserRole, error) {
	return findOne(ctx, v.q, scanRole, `SELECT `+roleColumns+` FROM user_role WHERE id=$1`+v.share(), id)
}

func (v *view) FindRoleByName(ctx context.Context, name domain.RoleName) (domain.UserRole, error) {
	return findOne(ctx, v.q, scanRole, `SELECT `+roleColumns+` FROM user_role WHERE name=$1 ORDER BY id LIMIT 1`, string(name))
}

func (v *view) FindStatus(ctx context.Context, id int64) (domain.RequestStatus, error) {
	return findOne(ctx, v.q, scanStatus, `SELECT `+statusColumns+` FROM request_status WHERE id=$1`+v.share(), id)
}

func (v *view) FindStatusByName(ctx context.Context, name string) (domain.RequestStatus, error) {
	return findOne(ctx, v.q, scanStatus, `SELECT `+statusColumns+` FROM request_status WHERE name=$1 ORDER BY id LIMIT 1`, name)
}

func (v *view) FindEquipmentType(ctx context.Context, id int64) (domain.EquipmentType, error) {
	return findOne(ctx, v.q, scanEquipmentType, `SELECT `+namedColumns+` FROM equipment_type WHERE id=$1`, id)
}

func (v *view) FindEquipmentTypeByName(ctx context.Context, name string) (domain.EquipmentType, error) {
	return findOne(ctx, v.q, scanEquipmentType, `SELECT `+namedColumns+` FROM equipment_type WHERE name=$1 ORDER BY id LIMIT 1`, name)
}

func (v *view) FindEquipmentModelByName(ctx context.Context, typeID int64, name string) (domain.EquipmentModel, error) {
	return findOne(ctx, v.q, scanModel,
		`SELECT `+modelColumns+` FROM equipment_model WHERE equipment_type_id=$1 AND name=$2 ORDER BY id LIMIT 1`, typeID, name)
}

func (v *view) FindIssueType(ctx context.Context, id int64) (domain.IssueType, error) {
	return findOne(ctx, v.q, scanIssueType, `SELECT `+namedColumns+` FROM issue_type WHERE id=$1`, id)
}

func (v *view) FindIssueTypeByName(ctx context.Context, name string) (domain.IssueType, error) {
	return findOne(ctx, v.q, scanIssueType, `SELECT `+namedColumns+` FROM issue_type WHERE name=$1 ORDER BY id LIMIT 1`, name)
}

func (v *view) FindSparePartByName(ctx context.Context, name string) (domain.SparePart, error) {
	return findOne(ctx, v.q, scanSparePart, `SELECT `+namedColumns+` FROM spare_part WHERE name=$1 ORDER BY id LIMIT 1`, name)
}

func (v *view) FindRepairRequest(ctx context.Context, id int64) (domain.RepairRequest, error) {
	return findOne(ctx, v.q, scanRequest, `SELECT `+requestColumns+` FROM repair_request WHERE id=$1`, id)
}

func (v *view) FindHelpRequest(ctx context.Context, id int64) (domain.HelpRequest, error) {
	return findOne(ctx, v.q, scanHelp, `SELECT `+helpColumns+` FROM help_request WHERE id=$1`, id)
}

func (v *view) FindOpenHelpRequest(ctx context.Context, requestID int64) (domain.HelpRequest, error) {
	return findOne(ctx, v.q, scanHelp,
		`SELECT `+helpColumns+` FROM help_request WHERE request_id=$1 AND status='open' ORDER BY id LIMIT 1`, requestID)
}

func (v *view) ListRoles(ctx context.Context) ([]domain.UserRole, error) {
	return list(ctx, v.q, scanRole, `SELECT `+roleColumns+` FROM user_role ORDER BY id`)
}

func (v *view) ListStatuses(ctx context.Context) ([]domain.RequestStatus, error) {
	return list(ctx, v.q, scanStatus, `SELECT `+statusColumns+` FROM request_status ORDER BY id`)
}

func (v *view) ListEquipmentTypes(ctx context.Context) ([]domain.EquipmentType, error) {
	return list(ctx, v.q, scanEquipmentType, `SELECT `+namedColumns+` FROM equipment_type ORDER BY id`)
}

func (v *view) ListEquipmentModels(ctx context.Context) ([]domain.EquipmentModel, error) {
	return list(ctx, v.q, scanModel, `SELECT `+modelColumns+` FROM equipment_model ORDER BY id`)
}

func (v *view) ListIssueTypes(ctx context.Context) ([]domain.IssueType, error) {
	return list(ctx, v.q, scanIssueType, `SELECT `+namedColumns+` FROM issue_type ORDER BY id`)
}

func (v *view) ListSpareParts(ctx context.Context) ([]domain.SparePart, error) {
	return list(ctx, v.q, scanSparePart, `SELECT `+namedColumns+` FROM spare_part ORDER BY id`)
}

func (v *view) ListUsers(ctx context.Context) ([]domain.AppUser, error) {
	return list(ctx, v.q, scanUser, `SELECT `+userColumns+` FROM app_user ORDER BY id`)
}

func (v *view) ListRepairRequests(ctx context.Context) ([]domain.RepairRequest, error) {
	return list(ctx, v.q, scanRequest, `SELECT `+requestColumns+` FROM repair_request ORDER BY id`)
}

func (v *view) ListComments(ctx context.Context) ([]domain.RequestComment, error) {
	return list(ctx, v.q, scanComment, `SELECT `+commentColumns+` FROM request_comment ORDER BY id`)
}

func (v *view) ListCommentsByRequest(ctx context.Context, requestID int64) ([]domain.RequestComment, error) {
	return list(ctx, v.q, scanComment, `SELECT `+commentColumns+` FROM request_comment WHERE request_id=$1 ORDER BY id`, requestID)
}

func (v *view) ListRequestSpareParts(ctx context.Context) ([]domain.RequestSparePart, error) {
	return list(ctx, v.q, scanRequestPart, `SELECT `+reqPartColumns+` FROM request_spare_part ORDER BY id`)
}

func (v *view) ListHelpRequests(ctx context.Context) ([]domain.HelpRequest, error) {
	return list(ctx, v.q, scanHelp, `SELECT `+helpColumns+` FROM help_request ORDER BY id`)
}
