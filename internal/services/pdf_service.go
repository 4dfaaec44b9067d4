package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/Marjory00/ImageToPDF-App/internal/ocr"
)

// PDFService regenerates a downloadable PDF from recognized text the user
// may have edited in place.
type PDFService struct{}

// NewPDFService creates a new PDF service
func NewPDFService() *PDFService {
	return &PDFService{}
}

// pageBlock is one PDF page worth of text, with an optional centered header
// recovered from the page delimiters.
type pageBlock struct {
	header string
	body   string
}

// Generate renders the edited text as an A4 document. Page banner lines from
// the recognition output split the text back into PDF pages; their "--- PAGE
// n of N ---" headers are rendered centered and bold.
func (s *PDFService) Generate(editedText, fontFamily string) ([]byte, error) {
	text := strings.TrimSpace(editedText)
	if text == "" {
		return nil, fmt.Errorf("no text to render")
	}

	font := pdfFontFamily(fontFamily)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	// Core fonts are cp1252; squeeze UTF-8 input through the translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, block := range splitPages(text) {
		pdf.AddPage()
		if block.header != "" {
			pdf.SetFont(font, "B", 12)
			pdf.CellFormat(0, 8, tr(block.header), "", 1, "C", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont(font, "", 12)
		pdf.MultiCell(0, 5, tr(block.body), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// splitPages cuts edited text back into page blocks using the banner rule
// lines. Between page bodies the text carries a banner, a one-line header and
// another banner; anything that does not look like a page header is kept as
// body text instead of being dropped.
func splitPages(text string) []pageBlock {
	parts := strings.Split(text, ocr.BannerLine)

	var blocks []pageBlock
	if first := strings.TrimSpace(parts[0]); first != "" || len(parts) == 1 {
		blocks = append(blocks, pageBlock{body: first})
	}

	for i := 1; i < len(parts); i += 2 {
		if i+1 >= len(parts) {
			if tail := strings.TrimSpace(parts[i]); tail != "" {
				blocks = append(blocks, pageBlock{body: tail})
			}
			break
		}
		header := strings.TrimSpace(parts[i])
		body := strings.TrimSpace(parts[i+1])
		if isPageHeader(header) {
			blocks = append(blocks, pageBlock{header: header, body: body})
		} else {
			blocks = append(blocks, pageBlock{body: strings.TrimSpace(header + "\n" + body)})
		}
	}
	return blocks
}

// isPageHeader matches the headers the pipeline (and the edit UI, for
// appended scans) writes between pages.
func isPageHeader(s string) bool {
	return strings.HasPrefix(s, "--- PAGE") || strings.HasPrefix(s, "--- APPENDED PAGE")
}

// pdfFontFamily maps the requested font onto the core PDF families.
func pdfFontFamily(requested string) string {
	switch requested {
	case "Times":
		return "Times"
	case "Courier":
		return "Courier"
	default:
		return "Helvetica"
	}
}
