// Package memory provides an in-memory implementation of the entity store used
// for tests, the legacy importer dry runs and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every table in maps. Writers are serialized and work on a
// private copy of the state that replaces the shared state on commit; readers
// work on a copy taken under a read lock, so they never hold writers back.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the snapshot, bypassing all
// constraints.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snapshot)
}

// View runs fn against a snapshot of the committed state.
func (s *Store) View(ctx context.Context, fn func(store.View) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&view{s: &snapshot})
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	t := &tx{view: view{s: &working}, now: s.nowFn()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

type view struct {
	s *state
}

func (v *view) FindUser(_ context.Context, id int64) (domain.AppUser, error) {
	u, ok := v.s.users[id]
	if !ok {
		return domain.AppUser{}, store.ErrNotFound
	}
	return u, nil
}

func (v *view) FindUserByLogin(_ context.Context, login string) (domain.AppUser, error) {
	return findFirst(v.s.users, func(u domain.AppUser) int64 { return u.ID }, func(u domain.AppUser) bool { return u.Login == login })
}

func (v *view) FindRole(_ context.Context, id int64) (domain.UserRole, error) {
	r, ok := v.s.roles[id]
	if !ok {
		return domain.UserRole{}, store.ErrNotFound
	}
	return r, nil
}

func (v *view) FindRoleByName(_ context.Context, name domain.RoleName) (domain.UserRole, error) {
	return findFirst(v.s.roles, func(r domain.UserRole) int64 { return r.ID }, func(r domain.UserRole) bool { return r.Name == name })
}

func (v *view) FindStatus(_ context.Context, id int64) (domain.RequestStatus, error) {
	st, ok := v.s.statuses[id]
	if !ok {
		return domain.RequestStatus{}, store.ErrNotFound
	}
	return st, nil
}

func (v *view) FindStatusByName(_ context.Context, name string) (domain.RequestStatus, error) {
	return findFirst(v.s.statuses, func(st domain.RequestStatus) int64 { return st.ID }, func(st domain.RequestStatus) bool { return st.Name == name })
}

func (v *view) FindEquipmentType(_ context.Context, id int64) (domain.EquipmentType, error) {
	et, ok := v.s.equipmentTypes[id]
	if !ok {
		return domain.EquipmentType{}, store.ErrNotFound
	}
	return et, nil
}

func (v *view) FindEquipmentTypeByName(_ context.Context, name string) (domain.EquipmentType, error) {
	return findFirst(v.s.equipmentTypes, func(et domain.EquipmentType) int64 { return et.ID }, func(et domain.EquipmentType) bool { return et.Name == name })
}

func (v *view) FindEquipmentModelByName(_ context.Context, typeID int64, name string) (domain.EquipmentModel, error) {
	return findFirst(v.s.equipmentModels, func(m domain.EquipmentModel) int64 { return m.ID }, func(m domain.EquipmentModel) bool {
		return m.EquipmentTypeID == typeID && m.Name == name
	})
}

func (v *view) FindIssueType(_ context.Context, id int64) (domain.IssueType, error) {
	it, ok := v.s.issueTypes[id]
	if !ok {
		return domain.IssueType{}, store.ErrNotFound
	}
	return it, nil
}

func (v *view) FindIssueTypeByName(_ context.Context, name string) (domain.IssueType, error) {
	return findFirst(v.s.issueTypes, func(it domain.IssueType) int64 { return it.ID }, func(it domain.IssueType) bool { return it.Name == name })
}

func (v *view) FindSparePartByName(_ context.Context, name string) (domain.SparePart, error) {
	return findFirst(v.s.spareParts, func(p domain.SparePart) int64 { return p.ID }, func(p domain.SparePart) bool { return p.Name == name })
}

func (v *view) FindRepairRequest(_ context.Context, id int64) (domain.RepairRequest, error) {
	r, ok := v.s.requests[id]
	if !ok {
		return domain.RepairRequest{}, store.ErrNotFound
	}
	return cloneRequest(r), nil
}

func (v *view) FindHelpRequest(_ context.Context, id int64) (domain.HelpRequest, error) {
	h, ok := v.s.helpRequests[id]
	if !ok {
		return domain.HelpRequest{}, store.ErrNotFound
	}
	return cloneHelp(h), nil
}

func (v *view) FindOpenHelpRequest(_ context.Context, requestID int64) (domain.HelpRequest, error) {
	h, err := findFirst(v.s.helpRequests, func(h domain.HelpRequest) int64 { return h.ID }, func(h domain.HelpRequest) bool {
		return h.RequestID == requestID && h.Status == domain.HelpStatusOpen
	})
	if err != nil {
		return domain.HelpRequest{}, err
	}
	return cloneHelp(h), nil
}

func (v *view) ListRoles(context.Context) ([]domain.UserRole, error) {
	return sortedValues(v.s.roles, func(r domain.UserRole) int64 { return r.ID }, identity[domain.UserRole]), nil
}

func (v *view) ListStatuses(context.Context) ([]domain.RequestStatus, error) {
	return sortedValues(v.s.statuses, func(st domain.RequestStatus) int64 { return st.ID }, identity[domain.RequestStatus]), nil
}

func (v *view) ListEquipmentTypes(context.Context) ([]domain.EquipmentType, error) {
	return sortedValues(v.s.equipmentTypes, func(et domain.EquipmentType) int64 { return et.ID }, identity[domain.EquipmentType]), nil
}

func (v *view) ListEquipmentModels(context.Context) ([]domain.EquipmentModel, error) {
	return sortedValues(v.s.equipmentModels, func(m domain.EquipmentModel) int64 { return m.ID }, identity[domain.EquipmentModel]), nil
}

func (v *view) ListIssueTypes(context.Context) ([]domain.IssueType, error) {
	return sortedValues(v.s.issueTypes, func(it domain.IssueType) int64 { return it.ID }, identity[domain.IssueType]), nil
}

func (v *view) ListSpareParts(context.Context) ([]domain.SparePart, error) {
	return sortedValues(v.s.spareParts, func(p domain.SparePart) int64 { return p.ID }, identity[domain.SparePart]), nil
}

func (v *view) ListUsers(context.Context) ([]domain.AppUser, error) {
	return sortedValues(v.s.users, func(u domain.AppUser) int64 { return u.ID }, identity[domain.AppUser]), nil
}

func (v *view) ListRepairRequests(context.Context) ([]domain.RepairRequest, error) {
	return sortedValues(v.s.requests, func(r domain.RepairRequest) int64 { return r.ID }, cloneRequest), nil
}

func (v *view) ListComments(context.Context) ([]domain.RequestComment, error) {
	return sortedValues(v.s.comments, func(c domain.RequestComment) int64 { return c.ID }, identity[domain.RequestComment]), nil
}

func (v *view) ListCommentsByRequest(ctx context.Context, requestID int64) ([]domain.RequestComment, error) {
	all, _ := v.ListComments(ctx)
	out := make([]domain.RequestComment, 0)
	for _, c := range all {
		if c.RequestID == requestID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (v *view) ListRequestSpareParts(context.Context) ([]domain.RequestSparePart, error) {
	return sortedValues(v.s.requestParts, func(p domain.RequestSparePart) int64 { return p.ID }, cloneRequestPart), nil
}

func (v *view) ListHelpRequests(context.Context) ([]domain.HelpRequest, error) {
	return sortedValues(v.s.helpRequests, func(h domain.HelpRequest) int64 { return h.ID }, cloneHelp), nil
}

func findFirst[T any](m map[int64]T, id func(T) int64, match func(T) bool) (T, error) {
	var (
		best  T
		found bool
	)
	for _, v := range m {
		if !match(v) {
			continue
		}
		if !found || id(v) < id(best) {
			best = v
			found = true
		}
	}
	if !found {
		var zero T
		return zero, store.ErrNotFound
	}
	return best, nil
}
