package memory

import (
	"sort"

	"github.com/repairdesk/repair-service/internal/domain"
)

type state struct {
	roles           map[int64]domain.UserRole
	statuses        map[int64]domain.RequestStatus
	equipmentTypes  map[int64]domain.EquipmentType
	equipmentModels map[int64]domain.EquipmentModel
	issueTypes      map[int64]domain.IssueType
	spareParts      map[int64]domain.SparePart
	users           map[int64]domain.AppUser
	requests        map[int64]domain.RepairRequest
	comments        map[int64]domain.RequestComment
	requestParts    map[int64]domain.RequestSparePart
	helpRequests    map[int64]domain.HelpRequest
	seq             map[string]int64
}

// Snapshot is a point-in-time copy of every table. ImportState loads it
// verbatim, without constraint checks.
type Snapshot struct {
	Roles             []domain.UserRole         `json:"roles"`
	Statuses          []domain.RequestStatus    `json:"statuses"`
	EquipmentTypes    []domain.EquipmentType    `json:"equipment_types"`
	EquipmentModels   []domain.EquipmentModel   `json:"equipment_models"`
	IssueTypes        []domain.IssueType        `json:"issue_types"`
	SpareParts        []domain.SparePart        `json:"spare_parts"`
	Users             []domain.AppUser          `json:"users"`
	RepairRequests    []domain.RepairRequest    `json:"repair_requests"`
	Comments          []domain.RequestComment   `json:"comments"`
	RequestSpareParts []domain.RequestSparePart `json:"request_spare_parts"`
	HelpRequests      []domain.HelpRequest      `json:"help_requests"`
}

func newState() state {
	return state{
		roles:           make(map[int64]domain.UserRole),
		statuses:        make(map[int64]domain.RequestStatus),
		equipmentTypes:  make(map[int64]domain.EquipmentType),
		equipmentModels: make(map[int64]domain.EquipmentModel),
		issueTypes:      make(map[int64]domain.IssueType),
		spareParts:      make(map[int64]domain.SparePart),
		users:           make(map[int64]domain.AppUser),
		requests:        make(map[int64]domain.RepairRequest),
		comments:        make(map[int64]domain.RequestComment),
		requestParts:    make(map[int64]domain.RequestSparePart),
		helpRequests:    make(map[int64]domain.HelpRequest),
		seq:             make(map[string]int64),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.roles {
		out.roles[k] = v
	}
	for k, v := range s.statuses {
		out.statuses[k] = v
	}
	for k, v := range s.equipmentTypes {
		out.equipmentTypes[k] = v
	}
	for k, v := range s.equipmentModels {
		out.equipmentModels[k] = v
	}
	for k, v := range s.issueTypes {
		out.issueTypes[k] = v
	}
	for k, v := range s.spareParts {
		out.spareParts[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = cloneRequest(v)
	}
	for k, v := range s.comments {
		out.comments[k] = v
	}
	for k, v := range s.requestParts {
		out.requestParts[k] = cloneRequestPart(v)
	}
	for k, v := range s.helpRequests {
		out.helpRequests[k] = cloneHelp(v)
	}
	for k, v := range s.seq {
		out.seq[k] = v
	}
	return out
}

// nextID allocates the next id for table, honoring explicit ids.
func (s *state) nextID(table string, explicit int64) int64 {
	if explicit != 0 {
		if explicit > s.seq[table] {
			s.seq[table] = explicit
		}
		return explicit
	}
	s.seq[table]++
	return s.seq[table]
}

func snapshotFromState(s state) Snapshot {
	return Snapshot{
		Roles:             sortedValues(s.roles, func(v domain.UserRole) int64 { return v.ID }, identity[domain.UserRole]),
		Statuses:          sortedValues(s.statuses, func(v domain.RequestStatus) int64 { return v.ID }, identity[domain.RequestStatus]),
		EquipmentTypes:    sortedValues(s.equipmentTypes, func(v domain.EquipmentType) int64 { return v.ID }, identity[domain.EquipmentType]),
		EquipmentModels:   sortedValues(s.equipmentModels, func(v domain.EquipmentModel) int64 { return v.ID }, identity[domain.EquipmentModel]),
		IssueTypes:        sortedValues(s.issueTypes, func(v domain.IssueType) int64 { return v.ID }, identity[domain.IssueType]),
		SpareParts:        sortedValues(s.spareParts, func(v domain.SparePart) int64 { return v.ID }, identity[domain.SparePart]),
		Users:             sortedValues(s.users, func(v domain.AppUser) int64 { return v.ID }, identity[domain.AppUser]),
		RepairRequests:    sortedValues(s.requests, func(v domain.RepairRequest) int64 { return v.ID }, cloneRequest),
		Comments:          sortedValues(s.comments, func(v domain.RequestComment) int64 { return v.ID }, identity[domain.RequestComment]),
		RequestSpareParts: sortedValues(s.requestParts, func(v domain.RequestSparePart) int64 { return v.ID }, cloneRequestPart),
		HelpRequests:      sortedValues(s.helpRequests, func(v domain.HelpRequest) int64 { return v.ID }, cloneHelp),
	}
}

func stateFromSnapshot(snap Snapshot) state {
	s := newState()
	for _, v := range snap.Roles {
		v.ID = s.nextID("user_role", v.ID)
		s.roles[v.ID] = v
	}
	for _, v := range snap.Statuses {
		v.ID = s.nextID("request_status", v.ID)
		s.statuses[v.ID] = v
	}
	for _, v := range snap.EquipmentTypes {
		v.ID = s.nextID("equipment_type", v.ID)
		s.equipmentTypes[v.ID] = v
	}
	for _, v := range snap.EquipmentModels {
		v.ID = s.nextID("equipment_model", v.ID)
		s.equipmentModels[v.ID] = v
	}
	for _, v := range snap.IssueTypes {
		v.ID = s.nextID("issue_type", v.ID)
		s.issueTypes[v.ID] = v
	}
	for _, v := range snap.SpareParts {
		v.ID = s.nextID("spare_part", v.ID)
		s.spareParts[v.ID] = v
	}
	for _, v := range snap.Users {
		v.ID = s.nextID("app_user", v.ID)
		s.users[v.ID] = v
	}
	for _, v := range snap.RepairRequests {
		v.ID = s.nextID("repair_request", v.ID)
		s.requests[v.ID] = cloneRequest(v)
	}
	for _, v := range snap.Comments {
		v.ID = s.nextID("request_comment", v.ID)
		s.comments[v.ID] = v
	}
	for _, v := range snap.RequestSpareParts {
		v.ID = s.nextID("request_spare_part", v.ID)
		s.requestParts[v.ID] = cloneRequestPart(v)
	}
	for _, v := range snap.HelpRequests {
		v.ID = s.nextID("help_request", v.ID)
		s.helpRequests[v.ID] = cloneHelp(v)
	}
	return s
}

func sortedValues[T any](m map[int64]T, id func(T) int64, cp func(T) T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, cp(v))
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func identity[T any](v T) T { return v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneRequest(r domain.RepairRequest) domain.RepairRequest {
	r.CompletionDate = clonePtr(r.CompletionDate)
	r.DueDate = clonePtr(r.DueDate)
	r.RepairPartsLegacy = clonePtr(r.RepairPartsLegacy)
	r.MasterID = clonePtr(r.MasterID)
	return r
}

func cloneRequestPart(p domain.RequestSparePart) domain.RequestSparePart {
	p.Note = clonePtr(p.Note)
	return p
}

func cloneHelp(h domain.HelpRequest) domain.HelpRequest {
	h.QualityManagerID = clonePtr(h.QualityManagerID)
	h.AssignedMasterID = clonePtr(h.AssignedMasterID)
	h.ResolutionNote = clonePtr(h.ResolutionNote)
	h.ProposedDueDate = clonePtr(h.ProposedDueDate)
	h.ClosedAt = clonePtr(h.ClosedAt)
	return h
}
