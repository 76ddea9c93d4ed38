package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/api/dto"
	"github.com/repairdesk/repair-service/internal/auth"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

const qrSize = 256

// RequestsHandler serves repair requests and their comments and spare parts.
type RequestsHandler struct {
	requests   *service.RequestService
	surveyBase string
}

// NewRequestsHandler constructs handler. surveyBase is the quality survey
// form linked from completed requests.
func NewRequestsHandler(requests *service.RequestService, surveyBase string) *RequestsHandler {
	return &RequestsHandler{requests: requests, surveyBase: surveyBase}
}

// canView limits clients to their own requests and masters to assigned ones.
func canView(p *auth.Principal, req domain.RepairRequest) bool {
	switch {
	case p.Role == domain.RoleClient:
		return req.ClientID == p.User.ID
	case domain.IsMasterRole(p.Role):
		return req.MasterID != nil && *req.MasterID == p.User.ID
	default:
		return true
	}
}

// List handles GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	rows, err := h.requests.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.RepairRequestResponse, 0, len(rows))
	for _, r := range rows {
		if canView(principal, r) {
			out = append(out, requestResponse(r))
		}
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	details, err := h.requests.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !canView(principal, details.Request) {
		return apperrors.NewForbidden("request not accessible")
	}

	resp := dto.RepairRequestDetail{
		RepairRequestResponse: requestResponse(details.Request),
		Comments:              make([]dto.CommentResponse, 0, len(details.Comments)),
		SpareParts:            make([]dto.RequestSparePartResponse, 0, len(details.SpareParts)),
		HelpOpen:              details.HelpOpen,
	}
	for _, cm := range details.Comments {
		resp.Comments = append(resp.Comments, commentResponse(cm))
	}
	for _, p := range details.SpareParts {
		resp.SpareParts = append(resp.SpareParts, sparePartResponse(p))
	}
	if details.Request.CompletionDate != nil && h.surveyBase != "" {
		resp.SurveyURL = service.SurveyURL(h.surveyBase, details.Request.ID)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create handles POST /requests. Clients always file for themselves.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var payload dto.RepairRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input, err := requestInput(payload)
	if err != nil {
		return err
	}
	if principal.Role == domain.RoleClient {
		input.ClientID = principal.User.ID
		input.StatusID = nil
		input.MasterID = nil
		input.DueDate = nil
		input.RepairParts = nil
	}

	saved, err := h.requests.Create(c.UserContext(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestResponse(saved)})
}

// Update handles PUT /requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ensureVisible(c, principal, id); err != nil {
		return err
	}
	var payload dto.RepairRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input, err := requestInput(payload)
	if err != nil {
		return err
	}

	editor := service.Editor{ID: principal.User.ID, Role: principal.Role}
	saved, err := h.requests.Update(c.UserContext(), editor, id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(saved)})
}

// QR handles GET /requests/:id/qr with a PNG of the quality survey link.
func (h *RequestsHandler) QR(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ensureVisible(c, principal, id); err != nil {
		return err
	}
	raw, err := service.SurveyQRCode(h.surveyBase, id, qrSize)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(raw)
}

// Delete handles DELETE /requests/:id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.requests.Delete(c.UserContext(), principal.User.ID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment handles POST /requests/:id/comments.
func (h *RequestsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.requests.AddComment(c.UserContext(), id, principal.User.ID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AddSparePart handles POST /requests/:id/spare-parts.
func (h *RequestsHandler) AddSparePart(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.ensureVisible(c, principal, id); err != nil {
		return err
	}
	var req dto.SparePartRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	link, err := h.requests.AddSparePart(c.UserContext(), principal.User.ID, id, req.Name, req.Quantity, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sparePartResponse(link)})
}

// RemoveSparePart handles DELETE /requests/:id/spare-parts/:linkID.
func (h *RequestsHandler) RemoveSparePart(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	linkID, err := paramID(c, "linkID")
	if err != nil {
		return err
	}
	if err := h.ensureVisible(c, principal, id); err != nil {
		return err
	}
	if err := h.requests.RemoveSparePart(c.UserContext(), principal.User.ID, id, linkID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *RequestsHandler) ensureVisible(c *fiber.Ctx, principal *auth.Principal, id int64) error {
	details, err := h.requests.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !canView(principal, details.Request) {
		return apperrors.NewForbidden("request not accessible")
	}
	return nil
}
