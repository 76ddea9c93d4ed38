// Package store defines the Entity Store contracts shared by the in-memory and
// Postgres backends.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/repairdesk/repair-service/internal/domain"
)

// ErrNotFound is returned by Find* lookups when no row matches. It wraps
// sql.ErrNoRows so errorutil maps it to NOT_FOUND.
var ErrNotFound = fmt.Errorf("store: not found: %w", sql.ErrNoRows)

// View is a consistent read-only snapshot of the entity store. List methods
// return rows ordered by id ascending.
type View interface {
	FindUser(ctx context.Context, id int64) (domain.AppUser, error)
	FindUserByLogin(ctx context.Context, login string) (domain.AppUser, error)
	FindRole(ctx context.Context, id int64) (domain.UserRole, error)
	FindRoleByName(ctx context.Context, name domain.RoleName) (domain.UserRole, error)
	FindStatus(ctx context.Context, id int64) (domain.RequestStatus, error)
	FindStatusByName(ctx context.Context, name string) (domain.RequestStatus, error)
	FindEquipmentType(ctx context.Context, id int64) (domain.EquipmentType, error)
	FindEquipmentTypeByName(ctx context.Context, name string) (domain.EquipmentType, error)
	FindEquipmentModelByName(ctx context.Context, typeID int64, name string) (domain.EquipmentModel, error)
	FindIssueType(ctx context.Context, id int64) (domain.IssueType, error)
	FindIssueTypeByName(ctx context.Context, name string) (domain.IssueType, error)
	FindSparePartByName(ctx context.Context, name string) (domain.SparePart, error)
	FindRepairRequest(ctx context.Context, id int64) (domain.RepairRequest, error)
	FindHelpRequest(ctx context.Context, id int64) (domain.HelpRequest, error)
	FindOpenHelpRequest(ctx context.Context, requestID int64) (domain.HelpRequest, error)

	ListRoles(ctx context.Context) ([]domain.UserRole, error)
	ListStatuses(ctx context.Context) ([]domain.RequestStatus, error)
	ListEquipmentTypes(ctx context.Context) ([]domain.EquipmentType, error)
	ListEquipmentModels(ctx context.Context) ([]domain.EquipmentModel, error)
	ListIssueTypes(ctx context.Context) ([]domain.IssueType, error)
	ListSpareParts(ctx context.Context) ([]domain.SparePart, error)
	ListUsers(ctx context.Context) ([]domain.AppUser, error)
	ListRepairRequests(ctx context.Context) ([]domain.RepairRequest, error)
	ListComments(ctx context.Context) ([]domain.RequestComment, error)
	ListCommentsByRequest(ctx context.Context, requestID int64) ([]domain.RequestComment, error)
	ListRequestSpareParts(ctx context.Context) ([]domain.RequestSparePart, error)
	ListHelpRequests(ctx context.Context) ([]domain.HelpRequest, error)
}

// Tx is a mutable unit of work. Inserts assign ID when it is zero and keep it
// otherwise. Uniqueness and referential constraints are enforced here and
// reported as errorutil UNIQUENESS_VIOLATION and FOREIGN_KEY_MISSING errors.
type Tx interface {
	View

	InsertRole(ctx context.Context, role *domain.UserRole) error
	// UpsertStatus inserts the status or, when the name exists, overwrites is_final.
	UpsertStatus(ctx context.Context, status *domain.RequestStatus) error
	InsertEquipmentType(ctx context.Context, et *domain.EquipmentType) error
	InsertEquipmentModel(ctx context.Context, model *domain.EquipmentModel) error
	InsertIssueType(ctx context.Context, it *domain.IssueType) error
	InsertSparePart(ctx context.Context, part *domain.SparePart) error

	InsertUser(ctx context.Context, user *domain.AppUser) error
	UpdateUser(ctx context.Context, user *domain.AppUser) error
	// DeleteUser is restricted while the user is referenced.
	DeleteUser(ctx context.Context, id int64) error

	InsertRepairRequest(ctx context.Context, req *domain.RepairRequest) error
	UpdateRepairRequest(ctx context.Context, req *domain.RepairRequest) error
	// DeleteRepairRequest cascades to comments, spare parts and help requests.
	DeleteRepairRequest(ctx context.Context, id int64) error

	InsertComment(ctx context.Context, comment *domain.RequestComment) error
	InsertRequestSparePart(ctx context.Context, part *domain.RequestSparePart) error
	DeleteRequestSparePart(ctx context.Context, id int64) error
	InsertHelpRequest(ctx context.Context, help *domain.HelpRequest) error
	UpdateHelpRequest(ctx context.Context, help *domain.HelpRequest) error
}

// Store runs read snapshots and atomic write transactions. A non-nil error
// returned from fn rolls the transaction back.
type Store interface {
	View(ctx context.Context, fn func(View) error) error
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
}
