// Package diagnostics runs read-only integrity checks over committed state.
// Findings are advisory and never block writes.
package diagnostics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
)

// Check names.
const (
	CheckDuplicateName          = "duplicate_name"
	CheckDuplicateModelName     = "duplicate_model_name"
	CheckDuplicateLogin         = "duplicate_login"
	CheckOrphanReference        = "orphan_reference"
	CheckDuplicateRequestPart   = "duplicate_request_spare_part"
	CheckCompletionBeforeStart  = "completion_before_start"
	CheckDueBeforeStart         = "due_before_start"
	CheckLegacyPartsNotMigrated = "legacy_parts_not_migrated"
)

// Finding names the offending rows of one check. Key identifies the duplicate
// value, the broken column or the request.
type Finding struct {
	Check  string  `json:"check"`
	Entity string  `json:"entity"`
	Key    string  `json:"key"`
	RowIDs []int64 `json:"row_ids"`
}

// Run executes every check against view and returns findings sorted by
// check, entity, key.
func Run(ctx context.Context, view store.View) ([]Finding, error) {
	t, err := loadTables(ctx, view)
	if err != nil {
		return nil, err
	}
	var out []Finding
	out = append(out, t.duplicateNames()...)
	out = append(out, t.orphans()...)
	out = append(out, t.duplicateRequestParts()...)
	out = append(out, t.dateOrder()...)
	out = append(out, t.legacyParts()...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Check != b.Check {
			return a.Check < b.Check
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return firstID(a.RowIDs) < firstID(b.RowIDs)
	})
	if out == nil {
		out = []Finding{}
	}
	return out, nil
}

// Counts groups findings per check.
func Counts(findings []Finding) map[string]int {
	out := map[string]int{}
	for _, f := range findings {
		out[f.Check]++
	}
	return out
}

func firstID(ids []int64) int64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

type tables struct {
	roles        []domain.UserRole
	statuses     []domain.RequestStatus
	types        []domain.EquipmentType
	models       []domain.EquipmentModel
	issues       []domain.IssueType
	parts        []domain.SparePart
	users        []domain.AppUser
	requests     []domain.RepairRequest
	comments     []domain.RequestComment
	requestParts []domain.RequestSparePart
	helps        []domain.HelpRequest
}

func loadTables(ctx context.Context, v store.View) (*tables, error) {
	t := &tables{}
	var err error
	if t.roles, err = v.ListRoles(ctx); err != nil {
		return nil, err
	}
	if t.statuses, err = v.ListStatuses(ctx); err != nil {
		return nil, err
	}
	if t.types, err = v.ListEquipmentTypes(ctx); err != nil {
		return nil, err
	}
	if t.models, err = v.ListEquipmentModels(ctx); err != nil {
		return nil, err
	}
	if t.issues, err = v.ListIssueTypes(ctx); err != nil {
		return nil, err
	}
	if t.parts, err = v.ListSpareParts(ctx); err != nil {
		return nil, err
	}
	if t.users, err = v.ListUsers(ctx); err != nil {
		return nil, err
	}
	if t.requests, err = v.ListRepairRequests(ctx); err != nil {
		return nil, err
	}
	if t.comments, err = v.ListComments(ctx); err != nil {
		return nil, err
	}
	if t.requestParts, err = v.ListRequestSpareParts(ctx); err != nil {
		return nil, err
	}
	if t.helps, err = v.ListHelpRequests(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// groupDuplicates emits one finding per key shared by more than one row.
// Rows arrive ordered by id, so RowIDs are ascending.
func groupDuplicates(check, entity string, n int, key func(int) string, id func(int) int64) []Finding {
	groups := map[string][]int64{}
	for i := 0; i < n; i++ {
		k := key(i)
		groups[k] = append(groups[k], id(i))
	}
	var out []Finding
	for k, ids := range groups {
		if len(ids) > 1 {
			out = append(out, Finding{Check: check, Entity: entity, Key: k, RowIDs: ids})
		}
	}
	return out
}

func (t *tables) duplicateNames() []Finding {
	var out []Finding
	out = append(out, groupDuplicates(CheckDuplicateName, "user_role", len(t.roles),
		func(i int) string { return string(t.roles[i].Name) }, func(i int) int64 { return t.roles[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateName, "request_status", len(t.statuses),
		func(i int) string { return t.statuses[i].Name }, func(i int) int64 { return t.statuses[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateName, "equipment_type", len(t.types),
		func(i int) string { return t.types[i].Name }, func(i int) int64 { return t.types[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateName, "issue_type", len(t.issues),
		func(i int) string { return t.issues[i].Name }, func(i int) int64 { return t.issues[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateName, "spare_part", len(t.parts),
		func(i int) string { return t.parts[i].Name }, func(i int) int64 { return t.parts[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateModelName, "equipment_model", len(t.models),
		func(i int) string { return fmt.Sprintf("%d/%s", t.models[i].EquipmentTypeID, t.models[i].Name) },
		func(i int) int64 { return t.models[i].ID })...)
	out = append(out, groupDuplicates(CheckDuplicateLogin, "app_user", len(t.users),
		func(i int) string { return t.users[i].Login }, func(i int) int64 { return t.users[i].ID })...)
	return out
}

func idSet[T any](rows []T, id func(T) int64) map[int64]bool {
	out := make(map[int64]bool, len(rows))
	for _, r := range rows {
		out[id(r)] = true
	}
	return out
}

type orphanCollector struct {
	byColumn map[string][]int64
}

func (c *orphanCollector) check(column string, rowID int64, ref *int64, present map[int64]bool) {
	if ref == nil || present[*ref] {
		return
	}
	c.byColumn[column] = append(c.byColumn[column], rowID)
}

func (t *tables) orphans() []Finding {
	roles := idSet(t.roles, func(r domain.UserRole) int64 { return r.ID })
	statuses := idSet(t.statuses, func(s domain.RequestStatus) int64 { return s.ID })
	types := idSet(t.types, func(e domain.EquipmentType) int64 { return e.ID })
	models := idSet(t.models, func(m domain.EquipmentModel) int64 { return m.ID })
	issues := idSet(t.issues, func(i domain.IssueType) int64 { return i.ID })
	parts := idSet(t.parts, func(p domain.SparePart) int64 { return p.ID })
	users := idSet(t.users, func(u domain.AppUser) int64 { return u.ID })
	requests := idSet(t.requests, func(r domain.RepairRequest) int64 { return r.ID })

	c := &orphanCollector{byColumn: map[string][]int64{}}
	for _, m := range t.models {
		c.check("equipment_model.equipment_type_id", m.ID, &m.EquipmentTypeID, types)
	}
	for _, u := range t.users {
		c.check("app_user.role_id", u.ID, &u.RoleID, roles)
	}
	for _, r := range t.requests {
		c.check("repair_request.equipment_model_id", r.ID, &r.EquipmentModelID, models)
		c.check("repair_request.issue_type_id", r.ID, &r.IssueTypeID, issues)
		c.check("repair_request.status_id", r.ID, &r.StatusID, statuses)
		c.check("repair_request.client_id", r.ID, &r.ClientID, users)
		c.check("repair_request.master_id", r.ID, r.MasterID, users)
	}
	for _, cm := range t.comments {
		c.check("request_comment.request_id", cm.ID, &cm.RequestID, requests)
		c.check("request_comment.master_id", cm.ID, &cm.MasterID, users)
	}
	for _, p := range t.requestParts {
		c.check("request_spare_part.request_id", p.ID, &p.RequestID, requests)
		c.check("request_spare_part.spare_part_id", p.ID, &p.SparePartID, parts)
	}
	for _, h := range t.helps {
		c.check("help_request.request_id", h.ID, &h.RequestID, requests)
		c.check("help_request.created_by_master_id", h.ID, &h.CreatedByMasterID, users)
		c.check("help_request.quality_manager_id", h.ID, h.QualityManagerID, users)
		c.check("help_request.assigned_master_id", h.ID, h.AssignedMasterID, users)
	}

	out := make([]Finding, 0, len(c.byColumn))
	for column, ids := range c.byColumn {
		entity := column[:strings.IndexByte(column, '.')]
		out = append(out, Finding{Check: CheckOrphanReference, Entity: entity, Key: column, RowIDs: ids})
	}
	return out
}

func (t *tables) duplicateRequestParts() []Finding {
	return groupDuplicates(CheckDuplicateRequestPart, "request_spare_part", len(t.requestParts),
		func(i int) string {
			return fmt.Sprintf("%d/%d", t.requestParts[i].RequestID, t.requestParts[i].SparePartID)
		},
		func(i int) int64 { return t.requestParts[i].ID })
}

func (t *tables) dateOrder() []Finding {
	var out []Finding
	for _, r := range t.requests {
		start := domain.DateOf(r.StartDate)
		if r.CompletionDate != nil && domain.DateOf(*r.CompletionDate).Before(start) {
			out = append(out, requestFinding(CheckCompletionBeforeStart, r.ID))
		}
		if r.DueDate != nil && domain.DateOf(*r.DueDate).Before(start) {
			out = append(out, requestFinding(CheckDueBeforeStart, r.ID))
		}
	}
	return out
}

func (t *tables) legacyParts() []Finding {
	linked := map[int64]bool{}
	for _, p := range t.requestParts {
		linked[p.RequestID] = true
	}
	var out []Finding
	for _, r := range t.requests {
		if r.RepairPartsLegacy == nil || strings.TrimSpace(*r.RepairPartsLegacy) == "" {
			continue
		}
		if !linked[r.ID] {
			out = append(out, requestFinding(CheckLegacyPartsNotMigrated, r.ID))
		}
	}
	return out
}

// requestFinding keys per-request findings by zero-padded id so keys sort numerically.
func requestFinding(check string, id int64) Finding {
	return Finding{Check: check, Entity: "repair_request", Key: fmt.Sprintf("%012d", id), RowIDs: []int64{id}}
}
