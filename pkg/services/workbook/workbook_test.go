package workbook

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()
	cfg := domain.Config{
		AccountID:    "111122223333",
		CURTable:     "cur",
		OutputFolder: t.TempDir(),
	}
	return NewWriter(cfg, WithClock(func() time.Time {
		return time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC)
	}))
}

func advisorRun(savings float64, rows ...[]string) *domain.CheckRun {
	table := domain.NewTable("Resource_Id", "Region", domain.SavingsColumn)
	for _, row := range rows {
		table.AddRow(row...)
	}
	return &domain.CheckRun{
		Descriptor: domain.CheckDescriptor{
			Identifier:      "ta_unassociatedeips",
			CommonName:      "Unassociated Elastic IPs",
			Provider:        domain.ProviderTA,
			Domain:          domain.DomainNetwork,
			Service:         "EC2",
			ExpectedColumns: table.Columns,
		},
		Status:         domain.StatusSucceeded,
		Data:           table,
		Savings:        savings,
		Recommendation: "Release the unassociated addresses.",
	}
}

func warehouseRun(id string, savings float64) *domain.CheckRun {
	table := domain.NewTable("Resource_Id", domain.SavingsColumn)
	table.AddRow("db-1", strconv.FormatFloat(savings, 'f', 2, 64))
	return &domain.CheckRun{
		Descriptor: domain.CheckDescriptor{
			Identifier:      id,
			CommonName:      id,
			Provider:        domain.ProviderCUR,
			Domain:          domain.DomainDatabase,
			Service:         "RDS",
			ExpectedColumns: table.Columns,
		},
		Status:  domain.StatusSucceeded,
		Data:    table,
		Savings: savings,
	}
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// sumColumn adds a sheet's numeric column between the header and the
// Total row.
func sumColumn(t *testing.T, f *excelize.File, sheet, col string) int64 {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)

	colIdx := -1
	for i, header := range rows[0] {
		if header == col {
			colIdx = i
		}
	}
	require.GreaterOrEqual(t, colIdx, 0)

	var total int64
	for _, row := range rows[1:] {
		if len(row) <= colIdx || row[colIdx] == "" {
			continue
		}
		if v, err := strconv.ParseFloat(row[colIdx], 64); err == nil {
			total += cents(v)
		}
	}
	return total
}

func TestWriter_Write(t *testing.T) {
	ctx := zerolog.Nop().WithContext(context.Background())

	t.Run("success - output tree and sheet set", func(t *testing.T) {
		w := testWriter(t)
		runs := []*domain.CheckRun{
			advisorRun(7.20, []string{"eipalloc-0aaa", "us-east-1", "3.60"},
				[]string{"eipalloc-0bbb", "us-east-1", "3.60"}),
			warehouseRun("cur_rdsoldinstancessavings", 118.40),
		}

		out, err := w.Write(ctx, runs, Request{
			Accounts: []string{"111122223333"},
			Regions:  []string{"us-east-1"},
			Checks:   []string{"ta_unassociatedeips", "cur_rdsoldinstancessavings"},
		})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(w.cfg.OutputFolder, "111122223333", "cur-2026-08-15-14-30"), out.Dir)
		assert.Equal(t, filepath.Join(out.Dir, "costminimizer_111122223333.xlsx"), out.MasterPath)
		assert.DirExists(t, filepath.Join(out.Dir, ".tmp"))
		require.FileExists(t, out.MasterPath)
		require.FileExists(t, out.CheckPaths["ta_unassociatedeips"])
		require.FileExists(t, out.CheckPaths["cur_rdsoldinstancessavings"])

		f, err := excelize.OpenFile(out.MasterPath)
		require.NoError(t, err)
		defer f.Close()

		assert.ElementsMatch(t, []string{
			"README", "Summary", "Estimated savings", "Savings By Domain", "Savings By Service",
			"ta_unassociatedeips", "cur_rdsoldinstancessavings",
		}, f.GetSheetList())
	})

	t.Run("success - savings totals agree across sheets", func(t *testing.T) {
		w := testWriter(t)
		runs := []*domain.CheckRun{
			advisorRun(7.20, []string{"eipalloc-0aaa", "us-east-1", "3.60"},
				[]string{"eipalloc-0bbb", "us-east-1", "3.60"}),
			warehouseRun("cur_rdsoldinstancessavings", 118.40),
		}

		out, err := w.Write(ctx, runs, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.MasterPath)
		require.NoError(t, err)
		defer f.Close()

		want := cents(7.20 + 118.40)
		assert.Equal(t, want, sumColumn(t, f, sheetSavings, "Estimated Savings"))
		assert.Equal(t, want, sumColumn(t, f, sheetByDomain, "Estimated Savings"))
		assert.Equal(t, want, sumColumn(t, f, sheetByService, "Estimated Savings"))

		formula, err := f.GetCellFormula(sheetSavings, "E4")
		require.NoError(t, err)
		assert.Equal(t, "SUM(E2:E3)", formula)
	})

	t.Run("success - detail sheet carries the check rows", func(t *testing.T) {
		w := testWriter(t)
		runs := []*domain.CheckRun{
			advisorRun(7.20, []string{"eipalloc-0aaa", "us-east-1", "3.60"},
				[]string{"eipalloc-0bbb", "us-east-1", "3.60"}),
		}

		out, err := w.Write(ctx, runs, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.CheckPaths["ta_unassociatedeips"])
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("ta_unassociatedeips", excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"Resource_Id", "Region", domain.SavingsColumn}, rows[0])
		assert.Equal(t, "eipalloc-0aaa", rows[1][0])
		assert.Equal(t, "eipalloc-0bbb", rows[2][0])
	})

	t.Run("success - zero-row run still gets its sheets", func(t *testing.T) {
		w := testWriter(t)
		runs := []*domain.CheckRun{advisorRun(0)}

		out, err := w.Write(ctx, runs, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.CheckPaths["ta_unassociatedeips"])
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("ta_unassociatedeips")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("success - no runs yields summary-only master", func(t *testing.T) {
		w := testWriter(t)

		out, err := w.Write(ctx, nil, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.MasterPath)
		require.NoError(t, err)
		defer f.Close()

		notice, err := f.GetCellValue(sheetSummary, "A1")
		require.NoError(t, err)
		assert.Equal(t, "No checks produced data.", notice)
	})

	t.Run("success - cost-basis note lands in the recommendation cell", func(t *testing.T) {
		w := testWriter(t)
		runs := []*domain.CheckRun{warehouseRun("cur_rdsoldinstancessavings", 118.40)}

		out, err := w.Write(ctx, runs, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.MasterPath)
		require.NoError(t, err)
		defer f.Close()

		recommendation, err := f.GetCellValue(sheetSavings, "F2")
		require.NoError(t, err)
		assert.Contains(t, recommendation, "may overstate")

		// The savings figure itself stays unchanged.
		cell, err := f.GetCellValue(sheetSavings, "E2", excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		v, err := strconv.ParseFloat(cell, 64)
		require.NoError(t, err)
		assert.InDelta(t, 118.40, v, 0.001)
	})

	t.Run("success - long identifiers truncate to the sheet limit", func(t *testing.T) {
		w := testWriter(t)
		run := warehouseRun("cur_rdsoldinstancessavings", 1)
		run.Descriptor.Identifier = "cur_a_very_long_check_identifier_indeed"
		run.Descriptor.CommonName = run.Descriptor.Identifier

		out, err := w.Write(ctx, []*domain.CheckRun{run}, Request{})
		require.NoError(t, err)

		f, err := excelize.OpenFile(out.MasterPath)
		require.NoError(t, err)
		defer f.Close()

		want := run.Descriptor.Identifier[:domain.MaxIdentifierLen]
		assert.Contains(t, f.GetSheetList(), want)
	})

	t.Run("success - run log copied into the output directory", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "run.log")
		require.NoError(t, os.WriteFile(logPath, []byte(`{"level":"info","message":"run complete"}`), 0o644))

		cfg := domain.Config{AccountID: "111122223333", CURTable: "cur", OutputFolder: t.TempDir()}
		w := NewWriter(cfg,
			WithClock(func() time.Time { return time.Date(2026, 8, 15, 14, 30, 0, 0, time.UTC) }),
			WithRunLog(logPath))

		out, err := w.Write(ctx, nil, Request{})
		require.NoError(t, err)

		copied, err := os.ReadFile(filepath.Join(out.Dir, "costminimizer.log"))
		require.NoError(t, err)
		assert.Contains(t, string(copied), "run complete")
	})

	t.Run("success - missing run log is not fatal", func(t *testing.T) {
		cfg := domain.Config{AccountID: "111122223333", OutputFolder: t.TempDir()}
		w := NewWriter(cfg, WithRunLog(filepath.Join(t.TempDir(), "gone.log")))

		_, err := w.Write(ctx, nil, Request{})
		require.NoError(t, err)
	})

	t.Run("success - request metadata serialised", func(t *testing.T) {
		w := testWriter(t)
		req := Request{
			Accounts: []string{"111122223333"},
			Regions:  []string{"eu-west-1"},
			Checks:   []string{"co_ec2rightsizing"},
			Tags:     map[string]string{"team": "payments"},
		}

		out, err := w.Write(ctx, nil, req)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(out.Dir, metadataDir, metadataFile))
		require.NoError(t, err)

		var got Request
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, req, got)
	})
}
