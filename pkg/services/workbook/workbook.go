// Package workbook turns the run's terminal CheckRuns into the output
// directory: one master workbook with summary sheets and charts, one
// workbook per check, and the serialised report request.
package workbook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

const (
	sheetReadme    = "README"
	sheetSummary   = "Summary"
	sheetSavings   = "Estimated savings"
	sheetByDomain  = "Savings By Domain"
	sheetByService = "Savings By Service"

	metadataDir  = "metadata"
	metadataFile = "report_request.json"
	tmpDir       = ".tmp"
	runLogName   = "costminimizer.log"

	currencyFormat = `"$"#,##0`
)

// savingsBasisNotes marks checks whose savings total is computed from a
// cost basis rather than an explicit savings column. The number is
// reported unchanged; the note lands in the Recommendation cell.
var savingsBasisNotes = map[string]string{
	"cur_rdsoldinstancessavings": "Savings are summed from the cost column and may overstate the achievable amount.",
}

// Request is the report request captured alongside the workbooks.
type Request struct {
	Accounts []string          `json:"accounts"`
	Regions  []string          `json:"regions"`
	Checks   []string          `json:"checks"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Output locates what Write produced.
type Output struct {
	Dir        string
	MasterPath string
	CheckPaths map[string]string
}

// Writer builds the output directory for one run.
type Writer struct {
	cfg    domain.Config
	now    func() time.Time
	runLog string
}

// Option configures the writer.
type Option func(*Writer)

// WithClock overrides the time source used in the directory name.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithRunLog names the log file to copy into the output directory.
func WithRunLog(path string) Option {
	return func(w *Writer) { w.runLog = path }
}

// NewWriter builds a writer.
func NewWriter(cfg domain.Config, opts ...Option) *Writer {
	w := &Writer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write emits the master workbook, the per-check workbooks and the
// request metadata. Failures are fatal to the run.
func (w *Writer) Write(ctx context.Context, runs []*domain.CheckRun, req Request) (*Output, error) {
	dir := w.outputDir()
	for _, sub := range []string{metadataDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, domain.OutputError{Path: dir, Err: err}
		}
	}

	masterPath := filepath.Join(dir, fmt.Sprintf("costminimizer_%s.xlsx", w.cfg.AccountID))
	if err := w.writeMaster(ctx, masterPath, runs); err != nil {
		return nil, domain.OutputError{Path: masterPath, Err: err}
	}

	out := &Output{Dir: dir, MasterPath: masterPath, CheckPaths: make(map[string]string, len(runs))}
	for _, run := range runs {
		path := filepath.Join(dir, run.Descriptor.Identifier+".xlsx")
		if err := w.writeSingle(run, path); err != nil {
			return nil, domain.OutputError{Path: path, Err: err}
		}
		out.CheckPaths[run.Descriptor.Identifier] = path
	}

	metaPath := filepath.Join(dir, metadataDir, metadataFile)
	if err := writeRequest(metaPath, req); err != nil {
		return nil, domain.OutputError{Path: metaPath, Err: err}
	}

	if w.runLog != "" {
		if err := copyRunLog(w.runLog, filepath.Join(dir, runLogName)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to copy the run log into the output directory")
		}
	}
	return out, nil
}

func copyRunLog(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// outputDir scopes the run output under account and warehouse table.
func (w *Writer) outputDir() string {
	table := w.cfg.CURTable
	if table == "" {
		table = "report"
	}
	stamp := w.now().Format("2006-01-02-15-04")
	return filepath.Join(w.cfg.OutputFolder, w.cfg.AccountID, fmt.Sprintf("%s-%s", table, stamp))
}

func (w *Writer) writeMaster(ctx context.Context, path string, runs []*domain.CheckRun) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetReadme); err != nil {
		return err
	}
	if err := writeReadme(f); err != nil {
		return err
	}
	if err := w.writeEstimatedSavings(ctx, f, runs); err != nil {
		return err
	}
	if err := writeSummaryChart(f, len(runs)); err != nil {
		return err
	}
	if err := writeBreakdown(f, sheetByDomain, "Domain", breakdown(runs, func(r *domain.CheckRun) string {
		return r.Descriptor.Domain
	})); err != nil {
		return err
	}
	if err := writeBreakdown(f, sheetByService, "Service", breakdown(runs, func(r *domain.CheckRun) string {
		return r.Descriptor.Service
	})); err != nil {
		return err
	}
	for _, run := range runs {
		name := sheetName(run.Descriptor.Identifier)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeDetail(f, name, run); err != nil {
			return err
		}
	}
	if index, err := f.GetSheetIndex(sheetReadme); err == nil {
		f.SetActiveSheet(index)
	}
	return f.SaveAs(path)
}

// writeSingle emits one workbook holding only the check's detail sheet.
func (w *Writer) writeSingle(run *domain.CheckRun, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(run.Descriptor.Identifier)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}
	if err := writeDetail(f, name, run); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func writeReadme(f *excelize.File) error {
	lines := []string{
		"CostMinimizer report",
		"",
		"Summary: estimated monthly savings charted by check.",
		"Estimated savings: one row per check with its savings total and recommendation.",
		"Savings By Domain / Savings By Service: totals grouped with pie charts.",
		"Each remaining sheet holds one check's detail rows.",
		"",
		"Savings figures are estimates derived from upstream recommendations",
		"and reference pricing; validate before acting on them.",
	}
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetReadme, cell, line); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetReadme, "A", "A", 90)
}

func (w *Writer) writeEstimatedSavings(ctx context.Context, f *excelize.File, runs []*domain.CheckRun) error {
	logger := zerolog.Ctx(ctx)
	if _, err := f.NewSheet(sheetSavings); err != nil {
		return err
	}

	header := []interface{}{"Common Name", "Description", "Service", "Domain", "Estimated Savings", "Recommendation"}
	if err := f.SetSheetRow(sheetSavings, "A1", &header); err != nil {
		return err
	}

	currency, err := currencyStyle(f)
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	for i, run := range runs {
		row := i + 2
		recommendation := run.Recommendation
		if note, flagged := savingsBasisNotes[run.Descriptor.Identifier]; flagged {
			logger.Warn().
				Str("check", run.Descriptor.Identifier).
				Float64("savings", run.Savings).
				Msg("savings total uses a cost basis and may be overstated")
			if recommendation != "" {
				recommendation += " "
			}
			recommendation += note
		}
		values := []interface{}{
			run.Descriptor.CommonName,
			run.Descriptor.Description,
			run.Descriptor.Service,
			run.Descriptor.Domain,
			run.Savings,
			recommendation,
		}
		if err := f.SetSheetRow(sheetSavings, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
	}

	totalRow := len(runs) + 2
	if err := f.SetCellValue(sheetSavings, fmt.Sprintf("D%d", totalRow), "Total"); err != nil {
		return err
	}
	// The total stays a formula so the workbook remains auditable.
	if err := f.SetCellFormula(sheetSavings, fmt.Sprintf("E%d", totalRow),
		fmt.Sprintf("SUM(E2:E%d)", totalRow-1)); err != nil {
		return err
	}

	if err := f.SetColStyle(sheetSavings, "E", currency); err != nil {
		return err
	}
	if err := f.SetColStyle(sheetSavings, "B", wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetSavings, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetSavings, "B", "B", 60); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetSavings, "C", "D", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetSavings, "E", "E", 20); err != nil {
		return err
	}
	return f.SetColWidth(sheetSavings, "F", "F", 50)
}

// writeSummaryChart charts savings by check off the savings sheet data.
func writeSummaryChart(f *excelize.File, checkCount int) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}
	if checkCount == 0 {
		return f.SetCellValue(sheetSummary, "A1", "No checks produced data.")
	}
	lastRow := checkCount + 1
	return f.AddChart(sheetSummary, "A1", &excelize.Chart{
		Type: excelize.ColStacked,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$E$1", sheetSavings),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheetSavings, lastRow),
			Values:     fmt.Sprintf("'%s'!$E$2:$E$%d", sheetSavings, lastRow),
		}},
		Title: []excelize.RichTextRun{{Text: "Estimated monthly savings by check"}},
	})
}

// breakdown aggregates savings by a grouping key, sorted by key.
func breakdown(runs []*domain.CheckRun, key func(*domain.CheckRun) string) []domain.GroupTotal {
	totals := make(map[string]float64)
	for _, run := range runs {
		totals[key(run)] += run.Savings
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.GroupTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.GroupTotal{Key: k, Total: totals[k]})
	}
	return out
}

func writeBreakdown(f *excelize.File, sheet, label string, groups []domain.GroupTotal) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{label, "Estimated Savings"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, group := range groups {
		values := []interface{}{group.Key, group.Total}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}

	totalRow := len(groups) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellFormula(sheet, fmt.Sprintf("B%d", totalRow),
		fmt.Sprintf("SUM(B2:B%d)", totalRow-1)); err != nil {
		return err
	}

	currency, err := currencyStyle(f)
	if err != nil {
		return err
	}
	if err := f.SetColStyle(sheet, "B", currency); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "B", 24); err != nil {
		return err
	}

	if len(groups) == 0 {
		return nil
	}
	return f.AddChart(sheet, "D2", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, len(groups)+1),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, len(groups)+1),
		}},
		Title: []excelize.RichTextRun{{Text: fmt.Sprintf("Savings by %s", label)}},
	})
}

// writeDetail renders one check's table. Savings cells are written as
// numbers with the currency format when they coerce.
func writeDetail(f *excelize.File, sheet string, run *domain.CheckRun) error {
	table := run.Data
	if table == nil {
		table = domain.NewTable(run.Descriptor.ExpectedColumns...)
	}

	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	savingsIdx := table.ColumnIndex(domain.SavingsColumn)
	for r, row := range table.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			if c == savingsIdx {
				if v, ok := domain.ParseMoney(cell); ok {
					values[c] = v
					continue
				}
			}
			values[c] = cell
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", r+2), &values); err != nil {
			return err
		}
	}

	if savingsIdx >= 0 {
		currency, err := currencyStyle(f)
		if err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(savingsIdx + 1)
		if err != nil {
			return err
		}
		if err := f.SetColStyle(sheet, col, currency); err != nil {
			return err
		}
	}

	endCol, err := excelize.ColumnNumberToName(max(len(table.Columns), 1))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", endCol, 26)
}

func currencyStyle(f *excelize.File) (int, error) {
	format := currencyFormat
	return f.NewStyle(&excelize.Style{CustomNumFmt: &format})
}

// sheetName truncates an identifier to the sheet-name limit.
func sheetName(identifier string) string {
	if len(identifier) > domain.MaxIdentifierLen {
		return identifier[:domain.MaxIdentifierLen]
	}
	return identifier
}

func writeRequest(path string, req Request) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
