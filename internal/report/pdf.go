package report

import (
	"fmt"

	"github.com/hyperifyio/invscrape/internal/extract"
	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls PDF rendering.
type PDFOptions struct {
	// FontPath is a UTF-8 TrueType font. Chinese labels need one; without it
	// the core Helvetica font is used and non cp1252 text is lost.
	FontPath string
	FontSize float64
}

// WritePDF renders records as a landscape A4 table at outPath.
func WritePDF(outPath, title string, records []extract.Record, layout Layout, opts PDFOptions) error {
	layout = orDefault(layout)
	if title == "" {
		title = DefaultTitle
	}
	size := opts.FontSize
	if size <= 0 {
		size = 8
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Helvetica"
	tr := func(s string) string { return s }
	if opts.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font %s: %w", opts.FontPath, err)
		}
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(layout))
	lineH := size * 0.6

	header := func() {
		pdf.SetFont(family, "B", size)
		pdf.SetFillColor(248, 249, 250)
		for _, l := range layout.Labels() {
			pdf.CellFormat(colW, lineH+1, tr(l), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", size)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})

	pdf.AddPage()
	pdf.SetFont(family, "B", size+6)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	header()

	for _, r := range records {
		for _, v := range layout.Row(r) {
			pdf.CellFormat(colW, lineH+1, tr(fit(pdf, v, colW-2)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont(family, "", size)
	pdf.Ln(2)
	pdf.CellFormat(0, lineH, fmt.Sprintf("%d records", len(records)), "", 1, "L", false, 0, "")

	return pdf.OutputFileAndClose(outPath)
}

// fit shortens s so it stays inside one cell.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"…") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
