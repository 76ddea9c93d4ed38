// Package export renders reports and diagnostics findings as an xlsx workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/reports"
)

// FindingsSheet names the diagnostics sheet.
const FindingsSheet = "findings"

// ReportSource computes a report by name.
type ReportSource interface {
	Run(ctx context.Context, name reports.Name) (any, error)
}

type table struct {
	header []string
	rows   [][]any
}

// Build renders one sheet per report, in display order, followed by the
// findings sheet when findings is not nil.
func Build(ctx context.Context, src ReportSource, findings []diagnostics.Finding) (*excelize.File, error) {
	f := excelize.NewFile()
	for _, name := range reports.Names {
		result, err := src.Run(ctx, name)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("report %s: %w", name, err)
		}
		header, rows, err := Table(result)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("report %s: %w", name, err)
		}
		if err := writeSheet(f, string(name), table{header: header, rows: rows}); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if findings != nil {
		if err := writeSheet(f, FindingsSheet, findingsTable(findings)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(ctx context.Context, w io.Writer, src ReportSource, findings []diagnostics.Finding) error {
	f, err := Build(ctx, src, findings)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, name string, t table) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &t.header); err != nil {
		return err
	}
	for i, row := range t.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Table flattens a report result into a header and rows.
func Table(result any) ([]string, [][]any, error) {
	t, err := tableOf(result)
	return t.header, t.rows, err
}

func tableOf(result any) (table, error) {
	switch rows := result.(type) {
	case []reports.RequestRow:
		t := table{header: []string{"request_id", "start_date", "equipment_type", "equipment_model", "issue_type",
			"problem_description", "status", "completion_date", "due_date", "is_overdue", "client_fio",
			"client_phone", "master_fio", "spare_parts"}}
		for _, r := range rows {
			t.rows = append(t.rows, []any{r.RequestID, day(&r.StartDate), r.EquipmentType, r.EquipmentModel, r.IssueType,
				r.ProblemDescription, r.Status, day(r.CompletionDate), day(r.DueDate), r.IsOverdue, r.ClientFIO,
				r.ClientPhone, str(r.MasterFIO), r.SpareParts})
		}
		return t, nil
	case []reports.CountRow:
		return countTable(rows), nil
	case []reports.AvgRepairRow:
		t := table{header: []string{"equipment_type", "avg_days", "requests"}}
		for _, r := range rows {
			t.rows = append(t.rows, []any{r.EquipmentType, r.AvgDays, r.Requests})
		}
		return t, nil
	case []reports.MasterLoadRow:
		t := table{header: []string{"master_id", "master_fio", "role", "active_requests"}}
		for _, r := range rows {
			t.rows = append(t.rows, []any{r.MasterID, r.MasterFIO, r.Role, r.ActiveRequests})
		}
		return t, nil
	case []reports.OverdueRow:
		t := table{header: []string{"request_id", "start_date", "due_date", "status", "client_fio", "client_phone",
			"master_fio", "days_overdue"}}
		for _, r := range rows {
			t.rows = append(t.rows, []any{r.RequestID, day(&r.StartDate), day(&r.DueDate), r.Status, r.ClientFIO,
				r.ClientPhone, str(r.MasterFIO), r.DaysOverdue})
		}
		return t, nil
	case []reports.OpenHelpRow:
		t := table{header: []string{"help_request_id", "request_id", "request_status", "client_fio", "master_fio",
			"created_by_fio", "message", "proposed_due_date", "created_at"}}
		for _, r := range rows {
			t.rows = append(t.rows, []any{r.HelpRequestID, r.RequestID, r.RequestStatus, r.ClientFIO, str(r.MasterFIO),
				r.CreatedByFIO, r.Message, day(r.ProposedDueDate), r.CreatedAt.Format(time.RFC3339)})
		}
		return t, nil
	case reports.SummaryReport:
		t := table{header: []string{"metric", "name", "value"}}
		var avg any = ""
		if rows.AvgRepairDays != nil {
			avg = *rows.AvgRepairDays
		}
		t.rows = append(t.rows,
			[]any{"total_requests", "", rows.TotalRequests},
			[]any{"completed_requests", "", rows.CompletedRequests},
			[]any{"average_repair_time_days", "", avg},
		)
		for _, r := range rows.ByEquipmentType {
			t.rows = append(t.rows, []any{"by_equipment_type", r.Name, r.Count})
		}
		for _, r := range rows.ByIssueType {
			t.rows = append(t.rows, []any{"by_issue_type", r.Name, r.Count})
		}
		return t, nil
	default:
		return table{}, fmt.Errorf("unsupported report result %T", result)
	}
}

func countTable(rows []reports.CountRow) table {
	t := table{header: []string{"name", "count"}}
	for _, r := range rows {
		t.rows = append(t.rows, []any{r.Name, r.Count})
	}
	return t
}

func findingsTable(findings []diagnostics.Finding) table {
	t := table{header: []string{"check", "entity", "key", "row_ids"}}
	for _, fd := range findings {
		ids := make([]string, len(fd.RowIDs))
		for i, id := range fd.RowIDs {
			ids[i] = fmt.Sprint(id)
		}
		t.rows = append(t.rows, []any{fd.Check, fd.Entity, fd.Key, strings.Join(ids, ",")})
	}
	return t
}

func day(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
