package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/api/dto"
	"github.com/repairdesk/repair-service/internal/auth"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

func principalOf(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"param": name})
	}
	return id, nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid date", map[string]any{"field": field, "format": "YYYY-MM-DD"})
	}
	return t, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func requestInput(p dto.RepairRequestPayload) (service.RequestInput, error) {
	var (
		input service.RequestInput
		err   error
	)
	if strings.TrimSpace(p.StartDate) != "" {
		if input.StartDate, err = parseDate("start_date", p.StartDate); err != nil {
			return input, err
		}
	}
	if input.CompletionDate, err = parseOptionalDate("completion_date", p.CompletionDate); err != nil {
		return input, err
	}
	if input.DueDate, err = parseOptionalDate("due_date", p.DueDate); err != nil {
		return input, err
	}
	input.EquipmentTypeID = p.EquipmentTypeID
	input.EquipmentModelName = p.EquipmentModel
	input.IssueTypeID = p.IssueTypeID
	input.ProblemDescription = p.ProblemDescription
	input.StatusID = p.StatusID
	input.RepairParts = p.RepairParts
	input.MasterID = p.MasterID
	input.ClientID = p.ClientID
	return input, nil
}

func requestResponse(r domain.RepairRequest) dto.RepairRequestResponse {
	return dto.RepairRequestResponse{
		ID:                 r.ID,
		StartDate:          r.StartDate.Format(time.DateOnly),
		EquipmentModelID:   r.EquipmentModelID,
		IssueTypeID:        r.IssueTypeID,
		ProblemDescription: r.ProblemDescription,
		StatusID:           r.StatusID,
		CompletionDate:     formatDate(r.CompletionDate),
		DueDate:            formatDate(r.DueDate),
		RepairParts:        r.RepairPartsLegacy,
		MasterID:           r.MasterID,
		ClientID:           r.ClientID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func commentResponse(c domain.RequestComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		RequestID: c.RequestID,
		MasterID:  c.MasterID,
		Message:   c.Message,
		CreatedAt: c.CreatedAt,
	}
}

func sparePartResponse(p domain.RequestSparePart) dto.RequestSparePartResponse {
	return dto.RequestSparePartResponse{
		ID:          p.ID,
		RequestID:   p.RequestID,
		SparePartID: p.SparePartID,
		Quantity:    p.Quantity,
		Note:        p.Note,
	}
}

func helpResponse(h domain.HelpRequest) dto.HelpResponse {
	return dto.HelpResponse{
		ID:                h.ID,
		RequestID:         h.RequestID,
		CreatedByMasterID: h.CreatedByMasterID,
		QualityManagerID:  h.QualityManagerID,
		AssignedMasterID:  h.AssignedMasterID,
		Status:            string(h.Status),
		Message:           h.Message,
		ResolutionNote:    h.ResolutionNote,
		ProposedDueDate:   formatDate(h.ProposedDueDate),
		CreatedAt:         h.CreatedAt,
		ClosedAt:          h.ClosedAt,
	}
}
