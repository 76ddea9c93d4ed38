package domain

import "time"

// HelpStatus is the two-state lifecycle of a help request.
type HelpStatus string

const (
	HelpStatusOpen   HelpStatus = "open"
	HelpStatusClosed HelpStatus = "closed"
)

// HelpRequest is a master's escalation to the quality desk.
type HelpRequest struct {
	ID                int64
	RequestID         int64
	CreatedByMasterID int64
	QualityManagerID  *int64
	AssignedMasterID  *int64
	Status            HelpStatus
	Message           string
	ResolutionNote    *string
	ProposedDueDate   *time.Time
	CreatedAt         time.Time
	ClosedAt          *time.Time
}
