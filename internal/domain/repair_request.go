package domain

import "time"

// RepairRequest is the aggregate a client files and masters work.
type RepairRequest struct {
	ID                 int64
	StartDate          time.Time
	EquipmentModelID   int64
	IssueTypeID        int64
	ProblemDescription string
	StatusID           int64
	CompletionDate     *time.Time
	DueDate            *time.Time
	RepairPartsLegacy  *string
	MasterID           *int64
	ClientID           int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RequestComment is a master's note on a repair request.
type RequestComment struct {
	ID        int64
	RequestID int64
	MasterID  int64
	Message   string
	CreatedAt time.Time
}

// RequestSparePart links a spare part to a request; unique per (RequestID, SparePartID).
type RequestSparePart struct {
	ID          int64
	RequestID   int64
	SparePartID int64
	Quantity    int
	Note        *string
}
