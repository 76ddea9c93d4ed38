package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated      EventType = "repair_request_created"
	EventRequestUpdated      EventType = "repair_request_updated"
	EventRequestDeleted      EventType = "repair_request_deleted"
	EventCommentAdded        EventType = "request_comment_added"
	EventSparePartsChanged   EventType = "request_spare_parts_changed"
	EventHelpRequestOpened   EventType = "help_request_opened"
	EventHelpRequestClosed   EventType = "help_request_closed"
	EventHelpRequestReopened EventType = "help_request_reopened"
	EventReferenceChanged    EventType = "reference_data_changed"
	EventUserChanged         EventType = "app_user_changed"
)

// AllEventTypes lists every event type, for subscribers interested in any write.
var AllEventTypes = []EventType{
	EventRequestCreated,
	EventRequestUpdated,
	EventRequestDeleted,
	EventCommentAdded,
	EventSparePartsChanged,
	EventHelpRequestOpened,
	EventHelpRequestClosed,
	EventHelpRequestReopened,
	EventReferenceChanged,
	EventUserChanged,
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID int64     `json:"request_id,omitempty"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestChangedPayload payload.
type RequestChangedPayload struct {
	StatusID       int64  `json:"status_id"`
	StatusName     string `json:"status_name,omitempty"`
	MasterID       *int64 `json:"master_id,omitempty"`
	CompletionDate string `json:"completion_date,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	MasterID    int64  `json:"master_id"`
	BodyPreview string `json:"body_preview"`
}

// SparePartsChangedPayload payload.
type SparePartsChangedPayload struct {
	SparePartID int64 `json:"spare_part_id"`
	Removed     bool  `json:"removed"`
}

// HelpRequestPayload payload.
type HelpRequestPayload struct {
	HelpRequestID    int64  `json:"help_request_id"`
	CreatedByID      int64  `json:"created_by_master_id"`
	QualityManagerID *int64 `json:"quality_manager_id,omitempty"`
	AssignedMasterID *int64 `json:"assigned_master_id,omitempty"`
	Status           string `json:"status"`
}

// ReferenceChangedPayload payload.
type ReferenceChangedPayload struct {
	Source string `json:"source"`
}
