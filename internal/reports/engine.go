// Package reports computes the operational reports over a consistent store view.
package reports

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
)

// Engine computes reports. Results depend only on the view and the clock.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine; now defaults to the wall clock.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{now: now}
}

// Today is the date the overdue predicate compares against.
func (e *Engine) Today() time.Time {
	return domain.DateOf(e.now())
}

// IsOverdue is shared by the overdue report and the full request list.
func IsOverdue(req domain.RepairRequest, status domain.RequestStatus, today time.Time) bool {
	return req.DueDate != nil && !status.IsFinal && domain.DateOf(*req.DueDate).Before(today)
}

// dataset indexes the tables the reports join.
type dataset struct {
	requests     []domain.RepairRequest
	helps        []domain.HelpRequest
	statuses     map[int64]domain.RequestStatus
	models       map[int64]domain.EquipmentModel
	types        map[int64]domain.EquipmentType
	issues       map[int64]domain.IssueType
	users        map[int64]domain.AppUser
	roles        map[int64]domain.UserRole
	parts        map[int64]domain.SparePart
	requestParts map[int64][]int64
}

func load(ctx context.Context, v store.View) (*dataset, error) {
	d := &dataset{
		statuses:     map[int64]domain.RequestStatus{},
		models:       map[int64]domain.EquipmentModel{},
		types:        map[int64]domain.EquipmentType{},
		issues:       map[int64]domain.IssueType{},
		users:        map[int64]domain.AppUser{},
		roles:        map[int64]domain.UserRole{},
		parts:        map[int64]domain.SparePart{},
		requestParts: map[int64][]int64{},
	}
	var err error
	if d.requests, err = v.ListRepairRequests(ctx); err != nil {
		return nil, err
	}
	if d.helps, err = v.ListHelpRequests(ctx); err != nil {
		return nil, err
	}
	statuses, err := v.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		d.statuses[s.ID] = s
	}
	models, err := v.ListEquipmentModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		d.models[m.ID] = m
	}
	types, err := v.ListEquipmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		d.types[t.ID] = t
	}
	issues, err := v.ListIssueTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range issues {
		d.issues[it.ID] = it
	}
	users, err := v.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	roles, err := v.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		d.roles[r.ID] = r
	}
	parts, err := v.ListSpareParts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		d.parts[p.ID] = p
	}
	links, err := v.ListRequestSpareParts(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		d.requestParts[l.RequestID] = append(d.requestParts[l.RequestID], l.SparePartID)
	}
	return d, nil
}

// equipmentType follows request -> model -> type; ok is false on a broken join.
func (d *dataset) equipmentType(req domain.RepairRequest) (domain.EquipmentModel, domain.EquipmentType, bool) {
	m, ok := d.models[req.EquipmentModelID]
	if !ok {
		return domain.EquipmentModel{}, domain.EquipmentType{}, false
	}
	t, ok := d.types[m.EquipmentTypeID]
	return m, t, ok
}

func (d *dataset) masterFIO(id *int64) *string {
	if id == nil {
		return nil
	}
	u, ok := d.users[*id]
	if !ok {
		return nil
	}
	fio := u.FIO
	return &fio
}

func (d *dataset) sparePartNames(requestID int64) string {
	ids := d.requestParts[requestID]
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p, ok := d.parts[id]; ok {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// FullRequests returns the most recent requests with their joins, newest first.
func (e *Engine) FullRequests(ctx context.Context, v store.View) ([]RequestRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	rows := make([]RequestRow, 0, FullRequestListLimit)
	for i := len(d.requests) - 1; i >= 0 && len(rows) < FullRequestListLimit; i-- {
		req := d.requests[i]
		model, et, ok := d.equipmentType(req)
		if !ok {
			continue
		}
		issue, ok := d.issues[req.IssueTypeID]
		if !ok {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok {
			continue
		}
		client, ok := d.users[req.ClientID]
		if !ok {
			continue
		}
		row := RequestRow{
			RequestID:          req.ID,
			StartDate:          req.StartDate,
			EquipmentType:      et.Name,
			EquipmentModel:     model.Name,
			IssueType:          issue.Name,
			ProblemDescription: req.ProblemDescription,
			Status:             status.Name,
			StatusIsFinal:      status.IsFinal,
			CompletionDate:     req.CompletionDate,
			DueDate:            req.DueDate,
			IsOverdue:          IsOverdue(req, status, today),
			ClientID:           client.ID,
			ClientFIO:          client.FIO,
			ClientPhone:        client.Phone,
			MasterFIO:          d.masterFIO(req.MasterID),
			SpareParts:         d.sparePartNames(req.ID),
		}
		if row.MasterFIO != nil {
			row.MasterID = req.MasterID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EquipmentCompleted counts settled requests per equipment type.
func (e *Engine) EquipmentCompleted(ctx context.Context, v store.View) ([]CountRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, req := range d.requests {
		_, et, ok := d.equipmentType(req)
		if !ok {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok || !status.IsFinal {
			continue
		}
		counts[et.Name]++
	}
	return sortCounts(counts), nil
}

// AvgRepairTime averages completion - start in days per equipment type over
// settled requests with a non-negative span.
func (e *Engine) AvgRepairTime(ctx context.Context, v store.View) ([]AvgRepairRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	type acc struct {
		days, n int
	}
	groups := map[string]*acc{}
	for _, req := range d.requests {
		_, et, ok := d.equipmentType(req)
		if !ok {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok || !status.IsFinal || req.CompletionDate == nil {
			continue
		}
		span := domain.DaysBetween(req.StartDate, *req.CompletionDate)
		if span < 0 {
			continue
		}
		g, ok := groups[et.Name]
		if !ok {
			g = &acc{}
			groups[et.Name] = g
		}
		g.days += span
		g.n++
	}
	rows := make([]AvgRepairRow, 0, len(groups))
	for name, g := range groups {
		rows = append(rows, AvgRepairRow{
			EquipmentType: name,
			AvgDays:       round2(float64(g.days) / float64(g.n)),
			Requests:      g.n,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AvgDays != rows[j].AvgDays {
			return rows[i].AvgDays > rows[j].AvgDays
		}
		return rows[i].EquipmentType < rows[j].EquipmentType
	})
	return rows, nil
}

// IssueTypeStats counts requests of any status per issue type.
func (e *Engine) IssueTypeStats(ctx context.Context, v store.View) ([]CountRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, req := range d.requests {
		issue, ok := d.issues[req.IssueTypeID]
		if !ok {
			continue
		}
		counts[issue.Name]++
	}
	return sortCounts(counts), nil
}

// MasterActiveLoad counts unfinished requests per master or specialist.
func (e *Engine) MasterActiveLoad(ctx context.Context, v store.View) ([]MasterLoadRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	byMaster := map[int64]*MasterLoadRow{}
	for _, req := range d.requests {
		if req.MasterID == nil {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok || status.IsFinal {
			continue
		}
		master, ok := d.users[*req.MasterID]
		if !ok {
			continue
		}
		role, ok := d.roles[master.RoleID]
		if !ok || !domain.IsMasterRole(role.Name) {
			continue
		}
		row, ok := byMaster[master.ID]
		if !ok {
			row = &MasterLoadRow{MasterID: master.ID, MasterFIO: master.FIO, Role: string(role.Name)}
			byMaster[master.ID] = row
		}
		row.ActiveRequests++
	}
	rows := make([]MasterLoadRow, 0, len(byMaster))
	for _, r := range byMaster {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ActiveRequests != b.ActiveRequests {
			return a.ActiveRequests > b.ActiveRequests
		}
		if a.MasterFIO != b.MasterFIO {
			return a.MasterFIO < b.MasterFIO
		}
		return a.MasterID < b.MasterID
	})
	return rows, nil
}

// Overdue lists unfinished requests whose due date has passed.
func (e *Engine) Overdue(ctx context.Context, v store.View) ([]OverdueRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	rows := make([]OverdueRow, 0)
	for _, req := range d.requests {
		status, ok := d.statuses[req.StatusID]
		if !ok || !IsOverdue(req, status, today) {
			continue
		}
		client, ok := d.users[req.ClientID]
		if !ok {
			continue
		}
		due := domain.DateOf(*req.DueDate)
		rows = append(rows, OverdueRow{
			RequestID:   req.ID,
			StartDate:   req.StartDate,
			DueDate:     due,
			Status:      status.Name,
			ClientFIO:   client.FIO,
			ClientPhone: client.Phone,
			MasterFIO:   d.masterFIO(req.MasterID),
			DaysOverdue: domain.DaysBetween(due, today),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.Before(rows[j].DueDate)
		}
		return rows[i].RequestID < rows[j].RequestID
	})
	return rows, nil
}

// OpenHelp lists open help requests, newest first.
func (e *Engine) OpenHelp(ctx context.Context, v store.View) ([]OpenHelpRow, error) {
	d, err := load(ctx, v)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.RepairRequest, len(d.requests))
	for _, req := range d.requests {
		byID[req.ID] = req
	}
	rows := make([]OpenHelpRow, 0)
	for _, h := range d.helps {
		if h.Status != domain.HelpStatusOpen {
			continue
		}
		req, ok := byID[h.RequestID]
		if !ok {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok {
			continue
		}
		client, ok := d.users[req.ClientID]
		if !ok {
			continue
		}
		creator, ok := d.users[h.CreatedByMasterID]
		if !ok {
			continue
		}
		rows = append(rows, OpenHelpRow{
			HelpRequestID:   h.ID,
			RequestID:       req.ID,
			RequestStatus:   status.Name,
			ClientFIO:       client.FIO,
			MasterFIO:       d.masterFIO(req.MasterID),
			CreatedByFIO:    creator.FIO,
			Message:         h.Message,
			ProposedDueDate: h.ProposedDueDate,
			CreatedAt:       h.CreatedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].HelpRequestID > rows[j].HelpRequestID
	})
	return rows, nil
}

// Summary computes the statistics page totals.
func (e *Engine) Summary(ctx context.Context, v store.View) (SummaryReport, error) {
	d, err := load(ctx, v)
	if err != nil {
		return SummaryReport{}, err
	}
	var (
		out       SummaryReport
		spanTotal int
		spans     int
	)
	byType := map[string]int{}
	byIssue := map[string]int{}
	for _, req := range d.requests {
		_, et, ok := d.equipmentType(req)
		if !ok {
			continue
		}
		issue, ok := d.issues[req.IssueTypeID]
		if !ok {
			continue
		}
		status, ok := d.statuses[req.StatusID]
		if !ok {
			continue
		}
		out.TotalRequests++
		byType[nameOrUnspecified(et.Name)]++
		byIssue[nameOrUnspecified(issue.Name)]++
		if status.IsFinal && req.CompletionDate != nil {
			out.CompletedRequests++
			if span := domain.DaysBetween(req.StartDate, *req.CompletionDate); span >= 0 {
				spanTotal += span
				spans++
			}
		}
	}
	if spans > 0 {
		avg := round2(float64(spanTotal) / float64(spans))
		out.AvgRepairDays = &avg
	}
	out.ByEquipmentType = sortCounts(byType)
	out.ByIssueType = sortCounts(byIssue)
	return out, nil
}

func nameOrUnspecified(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return domain.UnspecifiedIssue
}

func sortCounts(counts map[string]int) []CountRow {
	rows := make([]CountRow, 0, len(counts))
	for name, n := range counts {
		rows = append(rows, CountRow{Name: name, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
