package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/api/dto"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// HelpHandler serves the quality desk.
type HelpHandler struct {
	help *service.HelpService
}

// NewHelpHandler constructs handler.
func NewHelpHandler(help *service.HelpService) *HelpHandler {
	return &HelpHandler{help: help}
}

// List handles GET /help-requests. ?status=open|closed filters the list.
func (h *HelpHandler) List(c *fiber.Ctx) error {
	status := domain.HelpStatus(c.Query("status"))
	if status != "" && status != domain.HelpStatusOpen && status != domain.HelpStatusClosed {
		return apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
	}
	rows, err := h.help.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.HelpResponse, 0, len(rows))
	for _, r := range rows {
		if status == "" || r.Status == status {
			out = append(out, helpResponse(r))
		}
	}
	return c.JSON(fiber.Map{"data": out})
}

// Open handles POST /requests/:id/help.
func (h *HelpHandler) Open(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.HelpOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	due, err := parseOptionalDate("proposed_due_date", req.ProposedDueDate)
	if err != nil {
		return err
	}
	help, err := h.help.Open(c.UserContext(), service.OpenHelpInput{
		RequestID:       id,
		MasterID:        principal.User.ID,
		Message:         req.Message,
		ProposedDueDate: due,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": helpResponse(help)})
}

// Close handles POST /help-requests/:id/close.
func (h *HelpHandler) Close(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.HelpCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	due, err := parseOptionalDate("new_due_date", req.NewDueDate)
	if err != nil {
		return err
	}
	help, err := h.help.Close(c.UserContext(), service.CloseHelpInput{
		HelpID:           id,
		QualityManagerID: principal.User.ID,
		AssignedMasterID: req.AssignedMasterID,
		NewDueDate:       due,
		ResolutionNote:   req.ResolutionNote,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": helpResponse(help)})
}

// Reopen handles POST /help-requests/:id/reopen.
func (h *HelpHandler) Reopen(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	help, err := h.help.Reopen(c.UserContext(), principal.User.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": helpResponse(help)})
}
