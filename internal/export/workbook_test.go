package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/repairdesk/repair-service/internal/diagnostics"
	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/export"
	"github.com/repairdesk/repair-service/internal/reports"
	"github.com/repairdesk/repair-service/internal/store/memory"
	"github.com/repairdesk/repair-service/internal/store/storetest"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newReports(t *testing.T) *reports.Service {
	t.Helper()
	s := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	f := storetest.Seed(t, s)
	req := f.Request(domain.Date(2024, 2, 1))
	req.DueDate = storetest.Ptr(domain.Date(2024, 2, 10))
	storetest.InsertRequest(t, s, req)
	return reports.NewService(reports.ServiceDependencies{
		Store:  s,
		Engine: reports.NewEngine(func() time.Time { return now }),
	})
}

func TestWriteProducesOneSheetPerReport(t *testing.T) {
	svc := newReports(t)
	findings := []diagnostics.Finding{{Check: diagnostics.CheckDuplicateName, Entity: "spare_part", Key: "pump", RowIDs: []int64{3, 4}}}

	var buf bytes.Buffer
	require.NoError(t, export.Write(context.Background(), &buf, svc, findings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	want := make([]string, 0, len(reports.Names)+1)
	for _, n := range reports.Names {
		want = append(want, string(n))
	}
	want = append(want, export.FindingsSheet)
	assert.Equal(t, want, f.GetSheetList())

	rows, err := f.GetRows(string(reports.OverdueRequests))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "request_id", rows[0][0])
	assert.Equal(t, "2024-02-10", rows[1][2])
	assert.Equal(t, "20", rows[1][7])

	rows, err = f.GetRows(export.FindingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"duplicate_name", "spare_part", "pump", "3,4"}, rows[1])
}

func TestBuildWithoutFindingsOmitsSheet(t *testing.T) {
	f, err := export.Build(context.Background(), newReports(t), nil)
	require.NoError(t, err)
	defer f.Close()
	assert.NotContains(t, f.GetSheetList(), export.FindingsSheet)
	assert.NotContains(t, f.GetSheetList(), "Sheet1")
}

type failingSource struct{}

func (failingSource) Run(context.Context, reports.Name) (any, error) {
	return nil, errors.New("store offline")
}

func TestBuildPropagatesReportErrors(t *testing.T) {
	_, err := export.Build(context.Background(), failingSource{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}
