package people

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// MastheadPDFOptions configures the rendered masthead
type MastheadPDFOptions struct {
	Title      string
	PageSize   string
	FontFamily string
	FontSize   float64
	Date       time.Time
}

// DefaultMastheadPDFOptions returns the house layout
func DefaultMastheadPDFOptions(title string) MastheadPDFOptions {
	return MastheadPDFOptions{
		Title:      title,
		PageSize:   "A4",
		FontFamily: "Arial",
		FontSize:   11,
		Date:       time.Now().UTC(),
	}
}

// WriteMastheadPDF renders the masthead sections as a PDF
func WriteMastheadPDF(w io.Writer, sections []MastheadSection, opts MastheadPDFOptions) error {
	pdf := gofpdf.New("P", "mm", opts.PageSize, "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(opts.FontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(opts.FontFamily, "B", opts.FontSize+7)
	pdf.CellFormat(0, 12, opts.Title, "", 1, "C", false, 0, "")
	pdf.SetFont(opts.FontFamily, "", opts.FontSize-1)
	pdf.SetTextColor(96, 96, 96)
	pdf.CellFormat(0, 6, "Masthead, "+opts.Date.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(8)

	if len(sections) == 0 {
		pdf.SetFont(opts.FontFamily, "I", opts.FontSize)
		pdf.CellFormat(0, 8, "No editors are listed.", "", 1, "C", false, 0, "")
	}

	for _, section := range sections {
		pdf.SetFont(opts.FontFamily, "B", opts.FontSize+2)
		pdf.CellFormat(0, 8, section.Role, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		for _, p := range section.People {
			pdf.SetFont(opts.FontFamily, "", opts.FontSize)
			pdf.CellFormat(80, 6, p.Name, "", 0, "L", false, 0, "")
			pdf.SetFont(opts.FontFamily, "I", opts.FontSize-1)
			pdf.CellFormat(0, 6, p.Affiliation, "", 1, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render masthead: %w", err)
	}
	return nil
}
