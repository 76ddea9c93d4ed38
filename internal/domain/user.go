package domain

// RoleName is the display name stored in user_role.name.
type RoleName string

const (
	RoleManager        RoleName = "Менеджер"
	RoleOperator       RoleName = "Оператор"
	RoleMaster         RoleName = "Мастер"
	RoleSpecialist     RoleName = "Специалист"
	RoleClient         RoleName = "Заказчик"
	RoleQualityManager RoleName = "Менеджер по качеству"
)

// DefaultRoles is the seeded role catalogue.
var DefaultRoles = []RoleName{
	RoleManager,
	RoleOperator,
	RoleMaster,
	RoleSpecialist,
	RoleClient,
	RoleQualityManager,
}

// IsMasterRole reports whether role can work repair requests.
func IsMasterRole(role RoleName) bool {
	return role == RoleMaster || role == RoleSpecialist
}

// AppUser is a registered person of any role.
type AppUser struct {
	ID           int64
	FIO          string
	Phone        string
	Login        string
	PasswordHash string
	RoleID       int64
}
