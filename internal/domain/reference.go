package domain

// UserRole is a seeded role name such as Мастер or Заказчик.
type UserRole struct {
	ID   int64
	Name RoleName
}

// RequestStatus is a repair request status; final statuses settle a request.
type RequestStatus struct {
	ID      int64
	Name    string
	IsFinal bool
}

// EquipmentType groups equipment models (washing machine, conditioner, ...).
type EquipmentType struct {
	ID   int64
	Name string
}

// EquipmentModel is unique per (EquipmentTypeID, Name).
type EquipmentModel struct {
	ID              int64
	EquipmentTypeID int64
	Name            string
}

// IssueType classifies the reported problem.
type IssueType struct {
	ID   int64
	Name string
}

// SparePart is a catalogue entry referenced by RequestSparePart rows.
type SparePart struct {
	ID   int64
	Name string
}

// DefaultStatuses is the seeded status catalogue.
var DefaultStatuses = []RequestStatus{
	{Name: StatusNew, IsFinal: false},
	{Name: "В процессе ремонта", IsFinal: false},
	{Name: "Ожидание комплектующих", IsFinal: false},
	{Name: "Готова к выдаче", IsFinal: true},
	{Name: "Завершена", IsFinal: true},
}

// StatusNew is assigned to requests filed by clients.
const StatusNew = "Новая заявка"

// UnspecifiedIssue names the issue type of requests without a description.
const UnspecifiedIssue = "Не указано"
