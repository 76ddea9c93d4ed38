package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/api/dto"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// ReferenceHandler serves the lookup tables used by request forms.
type ReferenceHandler struct {
	reference *service.ReferenceService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(reference *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

// Catalog handles GET /reference.
func (h *ReferenceHandler) Catalog(c *fiber.Ctx) error {
	cat, err := h.reference.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	out := dto.CatalogResponse{
		Roles:           make([]dto.NamedResponse, 0, len(cat.Roles)),
		Statuses:        make([]dto.StatusResponse, 0, len(cat.Statuses)),
		EquipmentTypes:  make([]dto.NamedResponse, 0, len(cat.EquipmentTypes)),
		EquipmentModels: make([]dto.ModelResponse, 0, len(cat.EquipmentModels)),
		IssueTypes:      make([]dto.NamedResponse, 0, len(cat.IssueTypes)),
		SpareParts:      make([]dto.NamedResponse, 0, len(cat.SpareParts)),
	}
	for _, r := range cat.Roles {
		out.Roles = append(out.Roles, dto.NamedResponse{ID: r.ID, Name: string(r.Name)})
	}
	for _, s := range cat.Statuses {
		out.Statuses = append(out.Statuses, dto.StatusResponse{ID: s.ID, Name: s.Name, IsFinal: s.IsFinal})
	}
	for _, t := range cat.EquipmentTypes {
		out.EquipmentTypes = append(out.EquipmentTypes, dto.NamedResponse{ID: t.ID, Name: t.Name})
	}
	for _, m := range cat.EquipmentModels {
		out.EquipmentModels = append(out.EquipmentModels, dto.ModelResponse{ID: m.ID, EquipmentTypeID: m.EquipmentTypeID, Name: m.Name})
	}
	for _, i := range cat.IssueTypes {
		out.IssueTypes = append(out.IssueTypes, dto.NamedResponse{ID: i.ID, Name: i.Name})
	}
	for _, p := range cat.SpareParts {
		out.SpareParts = append(out.SpareParts, dto.NamedResponse{ID: p.ID, Name: p.Name})
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateEquipmentType handles POST /reference/equipment-types.
func (h *ReferenceHandler) CreateEquipmentType(c *fiber.Ctx) error {
	var req dto.NamedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	et, err := h.reference.CreateEquipmentType(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NamedResponse{ID: et.ID, Name: et.Name}})
}
