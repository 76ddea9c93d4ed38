package dto

// NamedRequest creates a named reference row.
type NamedRequest struct {
	Name string `json:"name"`
}

// NamedResponse represents a named reference row.
type NamedResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StatusResponse represents a request status.
type StatusResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsFinal bool   `json:"is_final"`
}

// ModelResponse represents an equipment model.
type ModelResponse struct {
	ID              int64  `json:"id"`
	EquipmentTypeID int64  `json:"equipment_type_id"`
	Name            string `json:"name"`
}

// CatalogResponse lists all reference data.
type CatalogResponse struct {
	Roles           []NamedResponse  `json:"roles"`
	Statuses        []StatusResponse `json:"statuses"`
	EquipmentTypes  []NamedResponse  `json:"equipment_types"`
	EquipmentModels []ModelResponse  `json:"equipment_models"`
	IssueTypes      []NamedResponse  `json:"issue_types"`
	SpareParts      []NamedResponse  `json:"spare_parts"`
}
