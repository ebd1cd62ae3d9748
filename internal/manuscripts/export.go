package manuscripts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	manuscriptSheet = "Manuscripts"
	historySheet    = "History"
)

// ExportFormat names a supported export encoding
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

var ErrUnknownFormat = errors.New("unknown export format")

var manuscriptColumns = []string{"ID", "Title", "Author", "Author Email", "State", "Referees", "Editor", "Created", "Updated"}
var historyColumns = []string{"Manuscript ID", "Title", "From", "Action", "To", "At"}

// WriteWorkbook writes the manuscripts and their histories as an XLSX workbook
func WriteWorkbook(w io.Writer, list []*Manuscript) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", manuscriptSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	var manuscriptRows, historyRows [][]any
	for _, m := range list {
		manuscriptRows = append(manuscriptRows, manuscriptRow(m))
		for _, h := range m.History {
			historyRows = append(historyRows, []any{
				m.ID,
				m.Title,
				h.From.DisplayName(),
				h.Action.DisplayName(),
				h.To.DisplayName(),
				formatTime(h.At),
			})
		}
	}

	if err := writeSheet(f, manuscriptSheet, manuscriptColumns, manuscriptRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, historySheet, historyColumns, historyRows, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes one row per manuscript. Histories are left to the workbook.
func WriteCSV(w io.Writer, list []*Manuscript) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(manuscriptColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(manuscriptColumns))
	for _, m := range list {
		for i, v := range manuscriptRow(m) {
			record[i] = fmt.Sprint(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func manuscriptRow(m *Manuscript) []any {
	return []any{
		m.ID,
		m.Title,
		m.Author,
		m.AuthorEmail,
		m.State.DisplayName(),
		strings.Join(m.RefereeNames(), ", "),
		m.Editor,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	}
}

func writeSheet(f *excelize.File, sheet string, columns []string, rows [][]any, headerStyle int) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", sheet, err)
		}
		for j, v := range row {
			if n := len(fmt.Sprint(v)); n > widths[j] {
				widths[j] = n
			}
		}
	}

	for i, n := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		// clamp to 10..50
		width := float64(min(max(n+2, 10), 50))
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to size %s columns: %w", sheet, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
