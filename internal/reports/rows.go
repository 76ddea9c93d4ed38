package reports

import "time"

// Name identifies a report.
type Name string

const (
	FullRequestList    Name = "full_request_list"
	EquipmentCompleted Name = "equipment_completed"
	AvgRepairTime      Name = "avg_repair_time"
	IssueTypeStats     Name = "issue_type_stats"
	MasterActiveLoad   Name = "master_active_load"
	OverdueRequests    Name = "overdue_requests"
	OpenHelpRequests   Name = "open_help_requests"
	Summary            Name = "summary"
)

// Names lists every report in display order.
var Names = []Name{
	FullRequestList,
	EquipmentCompleted,
	AvgRepairTime,
	IssueTypeStats,
	MasterActiveLoad,
	OverdueRequests,
	OpenHelpRequests,
	Summary,
}

// FullRequestListLimit caps the full request list.
const FullRequestListLimit = 20

// RequestRow is one line of the full request list.
type RequestRow struct {
	RequestID          int64      `json:"request_id"`
	StartDate          time.Time  `json:"start_date"`
	EquipmentType      string     `json:"equipment_type"`
	EquipmentModel     string     `json:"equipment_model"`
	IssueType          string     `json:"issue_type"`
	ProblemDescription string     `json:"problem_description"`
	Status             string     `json:"status"`
	StatusIsFinal      bool       `json:"status_is_final"`
	CompletionDate     *time.Time `json:"completion_date"`
	DueDate            *time.Time `json:"due_date"`
	IsOverdue          bool       `json:"is_overdue"`
	ClientID           int64      `json:"client_id"`
	ClientFIO          string     `json:"client_fio"`
	ClientPhone        string     `json:"client_phone"`
	MasterID           *int64     `json:"master_id"`
	MasterFIO          *string    `json:"master_fio"`
	SpareParts         string     `json:"spare_parts"`
}

// CountRow is a name with its request count.
type CountRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AvgRepairRow is the mean repair span of one equipment type.
type AvgRepairRow struct {
	EquipmentType string  `json:"equipment_type"`
	AvgDays       float64 `json:"avg_days"`
	Requests      int     `json:"requests"`
}

// MasterLoadRow counts the unfinished requests of a master.
type MasterLoadRow struct {
	MasterID       int64  `json:"master_id"`
	MasterFIO      string `json:"master_fio"`
	Role           string `json:"role"`
	ActiveRequests int    `json:"active_requests"`
}

// OverdueRow is an unfinished request past its due date.
type OverdueRow struct {
	RequestID   int64     `json:"request_id"`
	StartDate   time.Time `json:"start_date"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	ClientFIO   string    `json:"client_fio"`
	ClientPhone string    `json:"client_phone"`
	MasterFIO   *string   `json:"master_fio"`
	DaysOverdue int       `json:"days_overdue"`
}

// OpenHelpRow is an open help request with its repair request context.
type OpenHelpRow struct {
	HelpRequestID   int64      `json:"help_request_id"`
	RequestID       int64      `json:"request_id"`
	RequestStatus   string     `json:"request_status"`
	ClientFIO       string     `json:"client_fio"`
	MasterFIO       *string    `json:"master_fio"`
	CreatedByFIO    string     `json:"created_by_fio"`
	Message         string     `json:"message"`
	ProposedDueDate *time.Time `json:"proposed_due_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SummaryReport aggregates the statistics page.
type SummaryReport struct {
	TotalRequests     int        `json:"total_requests"`
	CompletedRequests int        `json:"completed_requests"`
	AvgRepairDays     *float64   `json:"average_repair_time_days"`
	ByEquipmentType   []CountRow `json:"by_equipment_type"`
	ByIssueType       []CountRow `json:"by_issue_type"`
}
