package auth

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/repairdesk/repair-service/internal/domain"
)

// Operation is an action on an entity listed in the policy file.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Entities guarded by the HTTP layer.
const (
	EntityRepairRequest = "repair_request"
	EntityComment       = "request_comment"
	EntitySparePart     = "request_spare_part"
	EntityHelpRequest   = "help_request"
	EntityReport        = "report"
	EntityDiagnostics   = "diagnostics"
	EntityReference     = "reference"
	EntityUser          = "app_user"
)

// Policy maps role → entity → allowed operations.
type Policy struct {
	Roles map[domain.RoleName]map[string][]Operation `yaml:"roles"`
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if len(p.Roles) == 0 {
		return nil, fmt.Errorf("parse policy: no roles defined")
	}
	for role := range p.Roles {
		if !knownRole(role) {
			return nil, fmt.Errorf("parse policy: unknown role %q", role)
		}
	}
	return &p, nil
}

// Allows reports whether role may perform op on entity.
func (p *Policy) Allows(role domain.RoleName, entity string, op Operation) bool {
	if p == nil {
		return false
	}
	for _, allowed := range p.Roles[role][entity] {
		if allowed == op {
			return true
		}
	}
	return false
}

// RolesFor lists the roles allowed to perform op on entity, sorted.
func (p *Policy) RolesFor(entity string, op Operation) []domain.RoleName {
	var out []domain.RoleName
	for role := range p.Roles {
		if p.Allows(role, entity, op) {
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func knownRole(role domain.RoleName) bool {
	for _, r := range domain.DefaultRoles {
		if r == role {
			return true
		}
	}
	return false
}
