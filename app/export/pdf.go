package export

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/luowst/fanarchive/app/archive"
)

// PDFArtifact renders a record to a PDF file. fontPath must point at a
// TTF file with coverage for the record's script; without one the CJK
// text most records carry would render as garbage, so the caller is
// expected to skip PDF output when no font is configured.
func PDFArtifact(rec *archive.PostRecord, fontPath, path string) error {
	if fontPath == "" {
		return fmt.Errorf("no pdf font configured")
	}

	doc := buildDocument(rec)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8Font("doc", "", fontPath)
	pdf.SetAutoPageBreak(true, 20)

	// Cover page.
	pdf.AddPage()
	pdf.Ln(60)
	pdf.SetFont("doc", "", 28)
	pdf.MultiCell(0, 14, doc.Title, "", "C", false)
	pdf.Ln(6)
	pdf.SetFont("doc", "", 16)
	pdf.MultiCell(0, 9, "By "+doc.Author, "", "C", false)
	if doc.Fandom != "" {
		pdf.Ln(20)
		pdf.SetFont("doc", "", 11)
		pdf.MultiCell(0, 6, doc.Fandom, "", "C", false)
	}

	if len(doc.Meta) > 0 {
		pdf.AddPage()
		pdf.SetFont("doc", "", 15)
		pdf.MultiCell(0, 8, "Details", "", "L", false)
		pdf.Ln(4)
		pdf.SetFont("doc", "", 10)
		for _, m := range doc.Meta {
			line := m.Value
			if m.Label != "" {
				line = m.Label + ": " + m.Value
			}
			pdf.MultiCell(0, 6, line, "", "L", false)
		}
		pdf.MultiCell(0, 6, "Original URL: "+doc.SourceURL, "", "L", false)
	}

	for _, ch := range doc.Chapters {
		pdf.AddPage()
		if ch.Title != "" {
			pdf.SetFont("doc", "", 15)
			pdf.MultiCell(0, 8, ch.Title, "", "C", false)
			pdf.Ln(4)
		}
		pdf.SetFont("doc", "", 11)
		for _, p := range ch.Paragraphs {
			pdf.MultiCell(0, 7, p, "", "L", false)
			pdf.Ln(2)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
