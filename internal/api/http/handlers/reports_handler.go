package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/repairdesk/repair-service/internal/auth"
	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/export"
	"github.com/repairdesk/repair-service/internal/reports"
	"github.com/repairdesk/repair-service/internal/service"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves reports, the xlsx export and diagnostics.
type ReportsHandler struct {
	reports     *reports.Service
	diagnostics *service.DiagnosticsService
	policy      *auth.Policy
}

// NewReportsHandler constructs handler. policy decides whether the export
// carries the findings sheet.
func NewReportsHandler(reportsService *reports.Service, diagnosticsService *service.DiagnosticsService, policy *auth.Policy) *ReportsHandler {
	return &ReportsHandler{reports: reportsService, diagnostics: diagnosticsService, policy: policy}
}

// Index handles GET /reports.
func (h *ReportsHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": reports.Names})
}

// Show handles GET /reports/:name.
func (h *ReportsHandler) Show(c *fiber.Ctx) error {
	name := reports.Name(c.Params("name"))
	if !knownReport(name) {
		return apperrors.NewNotFound("report", map[string]any{"name": name})
	}
	result, err := h.reports.Run(c.UserContext(), name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Export handles GET /reports/export, an xlsx workbook of every report.
// Findings are included for callers that may read diagnostics.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var findings []diagnostics.Finding
	if h.policy.Allows(principal.Role, auth.EntityDiagnostics, auth.OpRead) {
		if findings, err = h.diagnostics.Run(c.UserContext()); err != nil {
			return err
		}
		if findings == nil {
			findings = []diagnostics.Finding{}
		}
	}
	var buf bytes.Buffer
	if err := export.Write(c.UserContext(), &buf, h.reports, findings); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="reports-%s.xlsx"`, time.Now().UTC().Format(time.DateOnly)))
	return c.Send(buf.Bytes())
}

// Diagnostics handles GET /diagnostics.
func (h *ReportsHandler) Diagnostics(c *fiber.Ctx) error {
	findings, err := h.diagnostics.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": findings})
}

func knownReport(name reports.Name) bool {
	for _, n := range reports.Names {
		if n == name {
			return true
		}
	}
	return false
}
