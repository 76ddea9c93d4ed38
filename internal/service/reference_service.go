package service

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// issueTypeNameLimit is the width of issue_type.name.
const issueTypeNameLimit = 255

// NormalizeIssueTypeName derives an issue type name from a problem description.
func NormalizeIssueTypeName(problemDescription string) string {
	name := strings.TrimSpace(problemDescription)
	if name == "" {
		return domain.UnspecifiedIssue
	}
	if utf8.RuneCountInString(name) > issueTypeNameLimit {
		runes := []rune(name)
		name = strings.TrimRightFunc(string(runes[:issueTypeNameLimit-3]), unicode.IsSpace) + "..."
	}
	return name
}

// GetOrCreateEquipmentModel finds the model by type and trimmed name or inserts it.
func GetOrCreateEquipmentModel(ctx context.Context, tx store.Tx, typeID int64, name string) (domain.EquipmentModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.EquipmentModel{}, apperrors.NewValidationError("equipment model name is required", map[string]any{"field": "equipment_model_name"})
	}
	if _, err := tx.FindEquipmentType(ctx, typeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.EquipmentModel{}, apperrors.NewForeignKeyMissing("equipment_model.equipment_type_id")
		}
		return domain.EquipmentModel{}, err
	}
	model, err := tx.FindEquipmentModelByName(ctx, typeID, name)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.EquipmentModel{}, err
	}
	model = domain.EquipmentModel{EquipmentTypeID: typeID, Name: name}
	if err := tx.InsertEquipmentModel(ctx, &model); err != nil {
		return domain.EquipmentModel{}, err
	}
	return model, nil
}

// GetOrCreateIssueType resolves the issue type named after problemDescription.
func GetOrCreateIssueType(ctx context.Context, tx store.Tx, problemDescription string) (domain.IssueType, error) {
	return getOrCreateNamed(ctx, NormalizeIssueTypeName(problemDescription),
		tx.FindIssueTypeByName,
		func(ctx context.Context, name string) (domain.IssueType, error) {
			it := domain.IssueType{Name: name}
			err := tx.InsertIssueType(ctx, &it)
			return it, err
		})
}

// GetOrCreateEquipmentType resolves an equipment type by trimmed name.
func GetOrCreateEquipmentType(ctx context.Context, tx store.Tx, name string) (domain.EquipmentType, error) {
	return getOrCreateNamed(ctx, strings.TrimSpace(name),
		tx.FindEquipmentTypeByName,
		func(ctx context.Context, name string) (domain.EquipmentType, error) {
			et := domain.EquipmentType{Name: name}
			err := tx.InsertEquipmentType(ctx, &et)
			return et, err
		})
}

// GetOrCreateSparePart resolves a spare part by trimmed name.
func GetOrCreateSparePart(ctx context.Context, tx store.Tx, name string) (domain.SparePart, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SparePart{}, apperrors.NewValidationError("spare part name is required", map[string]any{"field": "spare_part"})
	}
	return getOrCreateNamed(ctx, name,
		tx.FindSparePartByName,
		func(ctx context.Context, name string) (domain.SparePart, error) {
			p := domain.SparePart{Name: name}
			err := tx.InsertSparePart(ctx, &p)
			return p, err
		})
}

func getOrCreateNamed[T any](ctx context.Context, name string,
	find func(context.Context, string) (T, error),
	create func(context.Context, string) (T, error),
) (T, error) {
	found, err := find(ctx, name)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return found, err
	}
	created, err := create(ctx, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// Catalog is the reference data shown on request forms.
type Catalog struct {
	Roles           []domain.UserRole       `json:"roles"`
	Statuses        []domain.RequestStatus  `json:"statuses"`
	EquipmentTypes  []domain.EquipmentType  `json:"equipment_types"`
	EquipmentModels []domain.EquipmentModel `json:"equipment_models"`
	IssueTypes      []domain.IssueType      `json:"issue_types"`
	SpareParts      []domain.SparePart      `json:"spare_parts"`
}

// ReferenceService seeds and lists reference data.
type ReferenceService struct {
	store      store.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ReferenceDependencies bundles collaborators for ReferenceService.
type ReferenceDependencies struct {
	Store      store.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewReferenceService constructs the service.
func NewReferenceService(deps ReferenceDependencies) *ReferenceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{store: deps.Store, dispatcher: deps.Dispatcher, logger: logger}
}

// SeedReference inserts missing roles and upserts the default statuses,
// overwriting is_final of existing status names. Requests already referencing
// a status are not revalidated.
func SeedReference(ctx context.Context, tx store.Tx) error {
	for _, name := range domain.DefaultRoles {
		_, err := tx.FindRoleByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		role := domain.UserRole{Name: name}
		if err := tx.InsertRole(ctx, &role); err != nil {
			return err
		}
	}
	for _, st := range domain.DefaultStatuses {
		st := st
		if err := tx.UpsertStatus(ctx, &st); err != nil {
			return err
		}
	}
	return nil
}

// Seed runs SeedReference in its own transaction.
func (s *ReferenceService) Seed(ctx context.Context) error {
	if err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		return SeedReference(ctx, tx)
	}); err != nil {
		return err
	}
	s.logger.Info("reference data seeded",
		zap.Int("roles", len(domain.DefaultRoles)),
		zap.Int("statuses", len(domain.DefaultStatuses)))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventReferenceChanged,
		Payload: events.ReferenceChangedPayload{Source: "seed"},
	})
	return nil
}

// CreateEquipmentType adds an equipment type.
func (s *ReferenceService) CreateEquipmentType(ctx context.Context, name string) (domain.EquipmentType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.EquipmentType{}, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	et := domain.EquipmentType{Name: name}
	if err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertEquipmentType(ctx, &et)
	}); err != nil {
		return domain.EquipmentType{}, err
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventReferenceChanged,
		Payload: events.ReferenceChangedPayload{Source: "equipment_type"},
	})
	return et, nil
}

// Catalog returns every reference table.
func (s *ReferenceService) Catalog(ctx context.Context) (Catalog, error) {
	var out Catalog
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		if out.Roles, err = v.ListRoles(ctx); err != nil {
			return err
		}
		if out.Statuses, err = v.ListStatuses(ctx); err != nil {
			return err
		}
		if out.EquipmentTypes, err = v.ListEquipmentTypes(ctx); err != nil {
			return err
		}
		if out.EquipmentModels, err = v.ListEquipmentModels(ctx); err != nil {
			return err
		}
		if out.IssueTypes, err = v.ListIssueTypes(ctx); err != nil {
			return err
		}
		out.SpareParts, err = v.ListSpareParts(ctx)
		return err
	})
	return out, err
}
