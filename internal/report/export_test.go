package report_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/xuri/excelize/v2"

	"github.com/Lucien1999s/meeting-ai/internal/report"
)

func sampleReport() report.Report {
	return report.Report{
		MeetingName: "Meeting 1",
		Summary:     "1.預算：\n- 需重新評估",
		FollowUps:   "- 確認預算\n- 安排下次會議",
		Usage:       sampleUsage(),
	}
}

func newExporter(t *testing.T, opts ...report.ExporterOption) (*report.Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	logger, _ := logtest.NewNullLogger()
	opts = append([]report.ExporterOption{report.WithExportLogger(logger)}, opts...)
	return report.NewExporter(dir, opts...), dir
}

func TestExportTxt(t *testing.T) {
	t.Parallel()

	e, dir := newExporter(t)
	path, err := e.Export(sampleReport(), report.TXTFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "Meeting 1.txt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "#Meeting 1\n") {
		t.Errorf("txt export does not start with meeting header:\n%s", got)
	}
	if !strings.Contains(got, "##會議重點\n") || !strings.Contains(got, "##費用資訊\n") {
		t.Errorf("txt export missing section headers:\n%s", got)
	}
}

func TestExportTxtWithoutCost(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.TXTFormat, false)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "##費用資訊") {
		t.Errorf("txt export contains the cost block when includeCost is false:\n%s", data)
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.JSONFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	var got report.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("exported json does not parse: %v", err)
	}
	if got.MeetingName != "Meeting 1" {
		t.Errorf("meeting_name = %q", got.MeetingName)
	}
	if got.Usage == nil || got.Usage.TotalTokens != 1500 {
		t.Errorf("usage = %+v, want total 1500 tokens", got.Usage)
	}
}

func TestExportJSONWithoutCost(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.JSONFormat, false)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "\"usage\"") {
		t.Errorf("json export contains usage when includeCost is false:\n%s", data)
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.CSVFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open exported file: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read exported csv: %v", err)
	}

	want := [][]string{
		{"待辦事項", "負責人", "簽名"},
		{"確認預算", "", ""},
		{"安排下次會議", "", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("csv rows = %d, want %d", len(rows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestExportXLSX(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.XLSXFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("後續行動")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("sheet rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "待辦事項" || rows[1][0] != "確認預算" || rows[2][0] != "安排下次會議" {
		t.Errorf("sheet content = %v", rows)
	}
}

func TestExportPDF(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	path, err := e.Export(sampleReport(), report.PDFFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("pdf export does not start with the PDF magic")
	}
	// The sample report carries list lines, which render bold.
	if !strings.Contains(string(data), "Helvetica-Bold") {
		t.Errorf("pdf export does not embed a bold face for list lines")
	}
}

func TestExportOverwritesSilently(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	r := sampleReport()
	first, err := e.Export(r, report.TXTFormat, true)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}

	r.Summary = "1.改版：\n- 新的重點"
	second, err := e.Export(r, report.TXTFormat, true)
	if err != nil {
		t.Fatalf("repeat Export() unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("paths differ across exports: %q vs %q", first, second)
	}
	data, _ := os.ReadFile(second)
	if !strings.Contains(string(data), "新的重點") {
		t.Errorf("second export did not overwrite the first:\n%s", data)
	}
}

func TestExportAll(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	formats := []report.Format{report.TXTFormat, report.JSONFormat, report.CSVFormat}
	paths, err := e.ExportAll(sampleReport(), formats, true)
	if err != nil {
		t.Fatalf("ExportAll() unexpected error: %v", err)
	}
	if len(paths) != len(formats) {
		t.Fatalf("ExportAll() wrote %d files, want %d", len(paths), len(formats))
	}
	for i, path := range paths {
		if !strings.HasSuffix(path, "."+formats[i].String()) {
			t.Errorf("paths[%d] = %q, want %s extension", i, path, formats[i])
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("stat %q: %v", path, err)
		}
	}
}

func TestExportMeetingNameWithSeparator(t *testing.T) {
	t.Parallel()

	e, dir := newExporter(t)
	r := sampleReport()
	r.MeetingName = "team/weekly"
	path, err := e.Export(r, report.TXTFormat, false)
	if err != nil {
		t.Fatalf("Export() unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "team_weekly.txt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestExportZeroFormat(t *testing.T) {
	t.Parallel()

	e, _ := newExporter(t)
	if _, err := e.Export(sampleReport(), report.Format{}, true); err == nil {
		t.Error("Export() with zero format succeeded, want error")
	}
}
