package dto

import (
	"time"
)

// RepairRequestPayload creates or updates a repair request. Dates use
// YYYY-MM-DD.
type RepairRequestPayload struct {
	StartDate          string  `json:"start_date"`
	EquipmentTypeID    int64   `json:"equipment_type_id"`
	EquipmentModel     string  `json:"equipment_model"`
	IssueTypeID        *int64  `json:"issue_type_id"`
	ProblemDescription string  `json:"problem_description"`
	StatusID           *int64  `json:"status_id"`
	CompletionDate     *string `json:"completion_date"`
	DueDate            *string `json:"due_date"`
	RepairParts        *string `json:"repair_parts"`
	MasterID           *int64  `json:"master_id"`
	ClientID           int64   `json:"client_id"`
}

// RepairRequestResponse represents a stored request.
type RepairRequestResponse struct {
	ID                 int64     `json:"id"`
	StartDate          string    `json:"start_date"`
	EquipmentModelID   int64     `json:"equipment_model_id"`
	IssueTypeID        int64     `json:"issue_type_id"`
	ProblemDescription string    `json:"problem_description"`
	StatusID           int64     `json:"status_id"`
	CompletionDate     *string   `json:"completion_date"`
	DueDate            *string   `json:"due_date"`
	RepairParts        *string   `json:"repair_parts"`
	MasterID           *int64    `json:"master_id"`
	ClientID           int64     `json:"client_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RepairRequestDetail adds comments, spare parts and the help flag.
type RepairRequestDetail struct {
	RepairRequestResponse
	Comments   []CommentResponse          `json:"comments"`
	SpareParts []RequestSparePartResponse `json:"spare_parts"`
	HelpOpen   bool                       `json:"help_open"`
	SurveyURL  string                     `json:"survey_url,omitempty"`
}

// CommentRequest payload.
type CommentRequest struct {
	Message string `json:"message"`
}

// CommentResponse represents a master's comment.
type CommentResponse struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	MasterID  int64     `json:"master_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SparePartRequest links a spare part by name.
type SparePartRequest struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Note     *string `json:"note"`
}

// RequestSparePartResponse represents a request/spare part link.
type RequestSparePartResponse struct {
	ID          int64   `json:"id"`
	RequestID   int64   `json:"request_id"`
	SparePartID int64   `json:"spare_part_id"`
	Quantity    int     `json:"quantity"`
	Note        *string `json:"note"`
}

// HelpOpenRequest payload.
type HelpOpenRequest struct {
	Message         string  `json:"message"`
	ProposedDueDate *string `json:"proposed_due_date"`
}

// HelpCloseRequest payload.
type HelpCloseRequest struct {
	AssignedMasterID *int64  `json:"assigned_master_id"`
	NewDueDate       *string `json:"new_due_date"`
	ResolutionNote   *string `json:"resolution_note"`
}

// HelpResponse represents a help request.
type HelpResponse struct {
	ID                int64      `json:"id"`
	RequestID         int64      `json:"request_id"`
	CreatedByMasterID int64      `json:"created_by_master_id"`
	QualityManagerID  *int64     `json:"quality_manager_id"`
	AssignedMasterID  *int64     `json:"assigned_master_id"`
	Status            string     `json:"status"`
	Message           string     `json:"message"`
	ResolutionNote    *string    `json:"resolution_note"`
	ProposedDueDate   *string    `json:"proposed_due_date"`
	CreatedAt         time.Time  `json:"created_at"`
	ClosedAt          *time.Time `json:"closed_at"`
}
