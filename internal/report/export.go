package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// xlsxSheetName is the sheet holding the follow-up table.
const xlsxSheetName = "後續行動"

// followUpHeader is the column header row of the csv/xlsx follow-up table.
// The owner and signature columns are left blank for manual completion.
var followUpHeader = []string{"待辦事項", "負責人", "簽名"}

// Exporter persists reports under a target directory. Existing files with
// the same name are overwritten silently.
type Exporter struct {
	dir     string
	pdfFont string
	log     logrus.FieldLogger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPDFFont sets a TTF font file used for PDF output. Without one the PDF
// falls back to a built-in Latin font, which cannot render CJK text.
func WithPDFFont(path string) ExporterOption {
	return func(e *Exporter) {
		e.pdfFont = path
	}
}

// WithExportLogger sets the logger.
func WithExportLogger(log logrus.FieldLogger) ExporterOption {
	return func(e *Exporter) {
		e.log = log
	}
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir string, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		dir: dir,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the report in one format and returns the written path.
// includeCost controls whether the usage tally appears in the output.
func (e *Exporter) Export(r Report, f Format, includeCost bool) (string, error) {
	if f.IsZero() {
		return "", fmt.Errorf("cannot export without a format: %w", ErrUnknownFormat)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(e.dir, fileName(r.MeetingName)+"."+f.String())

	var err error
	switch f {
	case TXTFormat:
		err = e.writeTxt(path, r, includeCost)
	case JSONFormat:
		err = e.writeJSON(path, r, includeCost)
	case PDFFormat:
		err = e.writePDF(path, r, includeCost)
	case CSVFormat:
		err = e.writeCSV(path, r)
	case XLSXFormat:
		err = e.writeXLSX(path, r)
	default:
		return "", fmt.Errorf("unknown format %q: %w", f, ErrUnknownFormat)
	}
	if err != nil {
		return "", fmt.Errorf("export %s: %w", f, err)
	}

	e.log.WithFields(logrus.Fields{
		"format": f.String(),
		"path":   path,
	}).Info("report exported")
	return path, nil
}

// ExportAll writes the report in every given format and returns the written
// paths in the same order.
func (e *Exporter) ExportAll(r Report, formats []Format, includeCost bool) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path, err := e.Export(r, f, includeCost)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) writeTxt(path string, r Report, includeCost bool) error {
	return os.WriteFile(path, []byte(r.Render(includeCost)), 0o644)
}

func (e *Exporter) writeJSON(path string, r Report, includeCost bool) error {
	if !includeCost {
		r.Usage = nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (e *Exporter) writePDF(path string, r Report, includeCost bool) error {
	pdf := fpdf.New("P", "mm", "A4", "")

	translate := func(s string) string { return s }
	if e.pdfFont != "" {
		pdf.AddUTF8Font("report", "", e.pdfFont)
		pdf.AddUTF8Font("report", "B", e.pdfFont)
		pdf.SetFont("report", "", 12)
	} else {
		// Core fonts only cover Latin; anything else degrades.
		pdf.SetFont("Helvetica", "", 12)
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()
	// List items render bold so to-do and summary points stand out.
	for _, line := range strings.Split(r.Render(includeCost), "\n") {
		if isListLine(line) {
			pdf.SetFontStyle("B")
		} else {
			pdf.SetFontStyle("")
		}
		pdf.MultiCell(0, 6, translate(line), "", "L", false)
	}
	return pdf.OutputFileAndClose(path)
}

func (e *Exporter) writeCSV(path string, r Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	rows := [][]string{followUpHeader}
	for _, item := range listItems(r.FollowUps) {
		rows = append(rows, []string{item, "", ""})
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Sync()
}

func (e *Exporter) writeXLSX(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheetName); err != nil {
		return err
	}
	for col, header := range followUpHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheetName, cell, header); err != nil {
			return err
		}
	}
	for row, item := range listItems(r.FollowUps) {
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheetName, cell, item); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// fileName flattens a meeting name into a single path element.
func fileName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" {
		return "meeting"
	}
	return name
}
